package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type shopStore interface {
	ListAvailable(ctx context.Context, ownerID, roomID string) ([]models.ShopItem, error)
	ListPurchases(ctx context.Context, ownerID, teamID string) ([]models.Purchase, error)
	Purchase(ctx context.Context, params repository.PurchaseParams) (*repository.PurchaseOutcome, error)
}

type teamLedgerReader interface {
	TeamLedger(ctx context.Context, q sqlx.QueryerContext, ownerID, teamID string) (*models.TeamLedger, error)
}

// ShopService settles purchases and lists a team's storefront.
type ShopService struct {
	store     shopStore
	ledger    teamLedgerReader
	notifier  StandingsNotifier
	metrics   *MetricsService
	rules     config.GameConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewShopService constructs the service.
func NewShopService(store shopStore, ledger teamLedgerReader, notifier StandingsNotifier, metrics *MetricsService, rules config.GameConfig, validate *validator.Validate, logger *zap.Logger) *ShopService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopService{store: store, ledger: ledger, notifier: notifier, metrics: metrics, rules: rules, validator: validate, logger: logger}
}

func (s *ShopService) currency() string {
	if s.rules.CrystalBacked() {
		return models.CurrencyCrystals
	}
	return models.CurrencyXP
}

// Purchase buys one unit of an item for a team. Availability, the XP unlock gate and the
// balance are all checked inside the settlement transaction against locked rows, so two
// concurrent purchases can never both spend the same crystals or the last unit of stock.
func (s *ShopService) Purchase(ctx context.Context, actor models.Actor, req dto.PurchaseRequest) (*dto.PurchaseResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid purchase payload")
	}
	if actor.Leader && req.TeamID != actor.TeamID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders can only buy for their own team")
	}

	var teamXPBefore int
	gate := func(ctx context.Context, q sqlx.QueryerContext, team *models.Team, item *models.ShopItem) error {
		if !item.Purchasable(team.RoomID) {
			return appErrors.Clone(appErrors.ErrItemUnavailable, fmt.Sprintf("%s is not available", item.Name))
		}
		ledger, err := s.ledger.TeamLedger(ctx, q, actor.OwnerID, team.ID)
		if err != nil {
			return err
		}
		teamXPBefore = TeamLedgerXP(ledger, s.rules)
		if item.MinTeamXP > teamXPBefore {
			return appErrors.Clone(appErrors.ErrUnlockRequirementNotMet,
				fmt.Sprintf("%s requires %d team XP, team has %d", item.Name, item.MinTeamXP, teamXPBefore))
		}
		if !s.rules.CrystalBacked() && item.Price > teamXPBefore {
			return appErrors.Clone(appErrors.ErrInsufficientCrystals, "insufficient team XP")
		}
		return nil
	}

	out, err := s.store.Purchase(ctx, repository.PurchaseParams{
		OwnerID:  actor.OwnerID,
		TeamID:   req.TeamID,
		ItemID:   req.ItemID,
		Currency: s.currency(),
		Gate:     gate,
	})
	if err != nil {
		result, mapped := purchaseError(err)
		s.metrics.RecordPurchase(result)
		if result == PurchaseResultError {
			s.logger.Error("purchase failed", zap.String("team_id", req.TeamID), zap.String("item_id", req.ItemID), zap.Error(err))
		}
		return nil, mapped
	}

	s.metrics.RecordPurchase(PurchaseResultSettled)
	s.logger.Info("purchase settled",
		zap.String("team_id", out.Team.ID),
		zap.String("item_id", out.Item.ID),
		zap.Int("cost", out.Purchase.Cost),
		zap.String("currency", out.Purchase.Currency),
	)

	teamXPAfter := teamXPBefore
	if out.Purchase.Currency == models.CurrencyXP {
		teamXPAfter -= out.Purchase.Cost
		if s.notifier != nil {
			s.notifier.RoomChanged(ctx, actor.OwnerID, out.Team.RoomID)
		}
	}
	return &dto.PurchaseResult{
		Purchase:        out.Purchase,
		CrystalsBalance: out.Team.Crystals,
		TeamXP:          teamXPAfter,
		StockRemaining:  out.Item.Stock,
	}, nil
}

func purchaseError(err error) (string, error) {
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return PurchaseResultInsufficient, appErrors.Clone(appErrors.ErrInsufficientCrystals, "")
	case errors.Is(err, repository.ErrOutOfStock):
		return PurchaseResultUnavailable, appErrors.Clone(appErrors.ErrItemUnavailable, "item out of stock")
	case errors.Is(err, appErrors.ErrItemUnavailable):
		return PurchaseResultUnavailable, err
	case errors.Is(err, appErrors.ErrUnlockRequirementNotMet):
		return PurchaseResultLocked, err
	case errors.Is(err, appErrors.ErrInsufficientCrystals):
		return PurchaseResultInsufficient, err
	}
	mapped := repoError(err, "team or item not found", "failed to settle purchase")
	if errors.Is(mapped, appErrors.ErrNotFound) {
		return PurchaseResultUnavailable, mapped
	}
	return PurchaseResultError, mapped
}

// Storefront lists the items a team can see with their unlock state, its purchases and balances.
func (s *ShopService) Storefront(ctx context.Context, actor models.Actor, teamID string) (*dto.ShopView, error) {
	if actor.Leader && actor.TeamID != teamID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leaders can only read their own team")
	}
	ledger, err := s.ledger.TeamLedger(ctx, nil, actor.OwnerID, teamID)
	if err != nil {
		return nil, repoError(err, "team not found", "failed to load team ledger")
	}
	xp := TeamLedgerXP(ledger, s.rules)

	items, err := s.store.ListAvailable(ctx, actor.OwnerID, ledger.Team.RoomID)
	if err != nil {
		return nil, repoError(err, "shop not found", "failed to list shop items")
	}
	purchases, err := s.store.ListPurchases(ctx, actor.OwnerID, teamID)
	if err != nil {
		return nil, repoError(err, "team not found", "failed to list purchases")
	}

	view := &dto.ShopView{
		Items:     make([]dto.ShopItemView, 0, len(items)),
		Purchases: purchases,
		Crystals:  ledger.Team.Crystals,
		TeamXP:    xp,
		Currency:  s.currency(),
	}
	for _, item := range items {
		view.Items = append(view.Items, dto.ShopItemView{ShopItem: item, Unlocked: item.MinTeamXP <= xp})
	}
	return view, nil
}

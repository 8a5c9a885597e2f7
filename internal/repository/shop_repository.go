package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/database"
)

// PurchaseGate runs inside the settlement transaction after the team and item rows are
// locked. Returning an error aborts the purchase.
type PurchaseGate func(ctx context.Context, q sqlx.QueryerContext, team *models.Team, item *models.ShopItem) error

// PurchaseParams describes one settlement.
type PurchaseParams struct {
	OwnerID  string
	TeamID   string
	ItemID   string
	Currency string
	Gate     PurchaseGate
}

// PurchaseOutcome carries the rows as they stand after settlement.
type PurchaseOutcome struct {
	Purchase models.Purchase
	Team     models.Team
	Item     models.ShopItem
}

// ShopRepository persists shop items and purchase settlements.
type ShopRepository struct {
	db *sqlx.DB
}

// NewShopRepository constructs the repository.
func NewShopRepository(db *sqlx.DB) *ShopRepository {
	return &ShopRepository{db: db}
}

const shopItemColumns = `id, owner_id, name, description, price, stock, active, min_team_xp, room_ids, created_at`

// GetItem fetches an item inside the owner scope.
func (r *ShopRepository) GetItem(ctx context.Context, ownerID, id string) (*models.ShopItem, error) {
	query := `SELECT ` + shopItemColumns + ` FROM shop_items WHERE id = $1 AND owner_id = $2`
	var item models.ShopItem
	if err := r.db.GetContext(ctx, &item, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get shop item: %w", err)
	}
	return &item, nil
}

// ListAvailable returns active, in-stock items visible to roomID (empty allow-list means every room).
func (r *ShopRepository) ListAvailable(ctx context.Context, ownerID, roomID string) ([]models.ShopItem, error) {
	query := `SELECT ` + shopItemColumns + ` FROM shop_items
	WHERE owner_id = $1 AND active = TRUE AND stock > 0
	AND (cardinality(room_ids) = 0 OR $2 = ANY(room_ids))
	ORDER BY price, name`
	var items []models.ShopItem
	if err := r.db.SelectContext(ctx, &items, query, ownerID, roomID); err != nil {
		return nil, fmt.Errorf("list shop items: %w", err)
	}
	return items, nil
}

// ListPurchases returns a team's purchases, newest first.
func (r *ShopRepository) ListPurchases(ctx context.Context, ownerID, teamID string) ([]models.Purchase, error) {
	const query = `SELECT id, owner_id, item_id, team_id, cost, currency, created_at FROM purchases
	WHERE owner_id = $1 AND team_id = $2 ORDER BY created_at DESC`
	var purchases []models.Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, ownerID, teamID); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}

// Purchase settles one unit in a single transaction: the team and item rows are locked,
// the gate runs, stock is decremented only while positive, crystals are debited only when
// covered, and the purchase is appended. Either everything applies or nothing does.
func (r *ShopRepository) Purchase(ctx context.Context, params PurchaseParams) (*PurchaseOutcome, error) {
	var out PurchaseOutcome
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &out.Team,
			`SELECT `+teamColumns+` FROM teams WHERE id = $1 AND owner_id = $2 FOR UPDATE`, params.TeamID, params.OwnerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock team: %w", err)
		}
		if err := tx.GetContext(ctx, &out.Item,
			`SELECT `+shopItemColumns+` FROM shop_items WHERE id = $1 AND owner_id = $2 FOR UPDATE`, params.ItemID, params.OwnerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock shop item: %w", err)
		}
		if params.Gate != nil {
			if err := params.Gate(ctx, tx, &out.Team, &out.Item); err != nil {
				return err
			}
		}

		debit := params.Currency == models.CurrencyCrystals && out.Item.Price > 0
		if debit && out.Team.Crystals < out.Item.Price {
			return ErrInsufficientBalance
		}

		res, err := tx.ExecContext(ctx, `UPDATE shop_items SET stock = stock - 1 WHERE id = $1 AND stock > 0 AND active = TRUE`, out.Item.ID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if rows, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("check stock rows: %w", err)
		} else if rows == 0 {
			return ErrOutOfStock
		}
		out.Item.Stock--

		out.Purchase = models.Purchase{
			ID:        uuid.NewString(),
			OwnerID:   params.OwnerID,
			ItemID:    out.Item.ID,
			TeamID:    out.Team.ID,
			Cost:      out.Item.Price,
			Currency:  params.Currency,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO purchases (id, owner_id, item_id, team_id, cost, currency, created_at)
	VALUES (:id, :owner_id, :item_id, :team_id, :cost, :currency, :created_at)`, &out.Purchase); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}

		if debit {
			if err := moveCrystals(ctx, tx, out.Team.ID, -out.Item.Price, nil, &out.Purchase.ID, models.CrystalReasonPurchase); err != nil {
				return err
			}
			out.Team.Crystals -= out.Item.Price
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

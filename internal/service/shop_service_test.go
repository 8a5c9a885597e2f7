package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type shopFixture struct {
	store    *memStore
	notifier *notifierSpy
	metrics  *MetricsService
	svc      *ShopService
}

func newShopFixture(rules config.GameConfig) *shopFixture {
	store := newMemStore()
	store.addRoom("r1")
	store.addRoom("r2")
	store.addTeam("t1", "r1", 50)
	store.addTeam("t2", "r1", 0)
	store.addStudent("a", "r1", "t1", models.ClassEngineer)
	store.entries = append(store.entries, &models.LedgerEntry{
		ID:           "seed",
		OwnerID:      testOwner,
		RoomID:       "r1",
		AttributedTo: models.AttributeTeam,
		XP:           120,
		TeamIDs:      []string{"t1"},
	})
	store.items["hint"] = &models.ShopItem{ID: "hint", OwnerID: testOwner, Name: "Dica", Price: 30, Stock: 5, Active: true}
	store.items["vip"] = &models.ShopItem{ID: "vip", OwnerID: testOwner, Name: "VIP", Price: 10, Stock: 5, Active: true, MinTeamXP: 300}
	store.items["r2only"] = &models.ShopItem{ID: "r2only", OwnerID: testOwner, Name: "Sala 2", Price: 1, Stock: 5, Active: true, RoomIDs: []string{"r2"}}
	store.items["retired"] = &models.ShopItem{ID: "retired", OwnerID: testOwner, Name: "Antigo", Price: 1, Stock: 5}
	store.items["last"] = &models.ShopItem{ID: "last", OwnerID: testOwner, Name: "Último", Price: 1, Stock: 1, Active: true}

	f := &shopFixture{store: store, notifier: &notifierSpy{}, metrics: NewMetricsService()}
	f.svc = NewShopService(memShop{store}, memLedger{store}, f.notifier, f.metrics, rules, nil, nil)
	return f
}

func TestPurchaseDebitsCrystals(t *testing.T) {
	f := newShopFixture(testRules())

	res, err := f.svc.Purchase(context.Background(), teacher(), dto.PurchaseRequest{TeamID: "t1", ItemID: "hint"})
	require.NoError(t, err)
	assert.Equal(t, 20, res.CrystalsBalance)
	assert.Equal(t, 4, res.StockRemaining)
	assert.Equal(t, 120, res.TeamXP)
	assert.Equal(t, 30, res.Purchase.Cost)
	assert.Equal(t, models.CurrencyCrystals, res.Purchase.Currency)
	assert.Empty(t, f.notifier.calls())
	assert.Equal(t, uint64(1), f.metrics.Snapshot().Purchases)
}

func TestPurchaseRejections(t *testing.T) {
	cases := []struct {
		name  string
		actor models.Actor
		req   dto.PurchaseRequest
		want  *appErrors.Error
	}{
		{"locked by team xp", teacher(), dto.PurchaseRequest{TeamID: "t1", ItemID: "vip"}, appErrors.ErrUnlockRequirementNotMet},
		{"other room only", teacher(), dto.PurchaseRequest{TeamID: "t1", ItemID: "r2only"}, appErrors.ErrItemUnavailable},
		{"inactive", teacher(), dto.PurchaseRequest{TeamID: "t1", ItemID: "retired"}, appErrors.ErrItemUnavailable},
		{"no crystals", teacher(), dto.PurchaseRequest{TeamID: "t2", ItemID: "hint"}, appErrors.ErrInsufficientCrystals},
		{"unknown item", teacher(), dto.PurchaseRequest{TeamID: "t1", ItemID: "ghost"}, appErrors.ErrNotFound},
		{"leader for another team", leader("t2"), dto.PurchaseRequest{TeamID: "t1", ItemID: "hint"}, appErrors.ErrForbidden},
		{"missing item id", teacher(), dto.PurchaseRequest{TeamID: "t1"}, appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newShopFixture(testRules())
			_, err := f.svc.Purchase(context.Background(), tc.actor, tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 50, f.store.crystals("t1"))
			assert.Empty(t, f.store.purchases)
		})
	}
}

func TestConcurrentPurchasesNeverOverspend(t *testing.T) {
	f := newShopFixture(testRules())
	f.store.teams["t1"].Crystals = 30

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled int
		errs    []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Purchase(context.Background(), teacher(), dto.PurchaseRequest{TeamID: "t1", ItemID: "hint"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				settled++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settled)
	for _, err := range errs {
		assert.ErrorIs(t, err, appErrors.ErrInsufficientCrystals)
	}
	assert.Zero(t, f.store.crystals("t1"))
	assert.Len(t, f.store.purchases, 1)
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	f := newShopFixture(testRules())

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Purchase(context.Background(), teacher(), dto.PurchaseRequest{TeamID: "t1", ItemID: "last"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	settled := 0
	for err := range results {
		if err == nil {
			settled++
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrItemUnavailable)
	}
	assert.Equal(t, 1, settled)
	assert.Zero(t, f.store.items["last"].Stock)
}

func TestPurchaseXPCurrencyReducesTeamXP(t *testing.T) {
	rules := testRules()
	rules.CurrencyMode = config.CurrencyXP
	f := newShopFixture(rules)

	res, err := f.svc.Purchase(context.Background(), teacher(), dto.PurchaseRequest{TeamID: "t1", ItemID: "hint"})
	require.NoError(t, err)
	assert.Equal(t, 90, res.TeamXP)
	assert.Equal(t, 50, res.CrystalsBalance)
	assert.Equal(t, []string{"r1"}, f.notifier.calls())

	view, err := f.svc.Storefront(context.Background(), teacher(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 90, view.TeamXP)
	assert.Equal(t, models.CurrencyXP, view.Currency)

	_, err = f.svc.Purchase(context.Background(), teacher(), dto.PurchaseRequest{TeamID: "t2", ItemID: "hint"})
	assert.ErrorIs(t, err, appErrors.ErrInsufficientCrystals)
}

func TestStorefront(t *testing.T) {
	f := newShopFixture(testRules())
	_, err := f.svc.Purchase(context.Background(), leader("t1"), dto.PurchaseRequest{TeamID: "t1", ItemID: "hint"})
	require.NoError(t, err)

	view, err := f.svc.Storefront(context.Background(), leader("t1"), "t1")
	require.NoError(t, err)
	assert.Equal(t, 20, view.Crystals)
	assert.Equal(t, 120, view.TeamXP)
	assert.Len(t, view.Purchases, 1)

	unlocked := map[string]bool{}
	for _, item := range view.Items {
		unlocked[item.ID] = item.Unlocked
	}
	assert.Equal(t, map[string]bool{"hint": true, "last": true, "vip": false}, unlocked)

	_, err = f.svc.Storefront(context.Background(), leader("t1"), "t2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

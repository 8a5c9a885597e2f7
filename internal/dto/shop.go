package dto

import "github.com/noah-isme/classquest-api/internal/models"

// PurchaseRequest buys one unit of an item for a team.
type PurchaseRequest struct {
	TeamID string `json:"team_id" validate:"required"`
	ItemID string `json:"item_id" validate:"required"`
}

// PortalPurchaseRequest is the leader portal variant; the team comes from the session.
type PortalPurchaseRequest struct {
	ItemID string `json:"item_id" validate:"required"`
}

// PurchaseResult returns the purchase and the team balances after settlement.
type PurchaseResult struct {
	Purchase        models.Purchase `json:"purchase"`
	CrystalsBalance int             `json:"crystals_balance"`
	TeamXP          int             `json:"team_xp"`
	StockRemaining  int             `json:"stock_remaining"`
}

// ShopItemView decorates an item with whether the viewing team can buy it now.
type ShopItemView struct {
	models.ShopItem
	Unlocked bool `json:"unlocked"`
}

// ShopView is a team's storefront: what it can see, what it bought, and what it can spend.
type ShopView struct {
	Items     []ShopItemView    `json:"items"`
	Purchases []models.Purchase `json:"purchases"`
	Crystals  int               `json:"crystals"`
	TeamXP    int               `json:"team_xp"`
	Currency  string            `json:"currency"`
}

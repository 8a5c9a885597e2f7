package models

import (
	"time"

	"github.com/lib/pq"
)

// ShopItem is a purchasable reward. An empty RoomIDs list makes it visible to every room.
type ShopItem struct {
	ID          string         `db:"id" json:"id"`
	OwnerID     string         `db:"owner_id" json:"owner_id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Price       int            `db:"price" json:"price"`
	Stock       int            `db:"stock" json:"stock"`
	Active      bool           `db:"active" json:"active"`
	MinTeamXP   int            `db:"min_team_xp" json:"min_team_xp"`
	RoomIDs     pq.StringArray `db:"room_ids" json:"room_ids"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// VisibleTo reports whether the item is offered to teams of roomID.
func (i ShopItem) VisibleTo(roomID string) bool {
	if len(i.RoomIDs) == 0 {
		return true
	}
	for _, id := range i.RoomIDs {
		if id == roomID {
			return true
		}
	}
	return false
}

// Purchasable reports whether the item can currently be bought by a team of roomID.
func (i ShopItem) Purchasable(roomID string) bool {
	return i.Active && i.Stock > 0 && i.VisibleTo(roomID)
}

// Currencies a purchase can be settled in.
const (
	CurrencyCrystals = "crystals"
	CurrencyXP       = "xp"
)

// Purchase is an append-only record of a settled purchase with its snapshotted cost.
type Purchase struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	ItemID    string    `db:"item_id" json:"item_id"`
	TeamID    string    `db:"team_id" json:"team_id"`
	Cost      int       `db:"cost" json:"cost"`
	Currency  string    `db:"currency" json:"currency"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

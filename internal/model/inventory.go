package model

import "time"

// InventoryLog is append-only; one row per applied recommendation or stock adjustment.
type InventoryLog struct {
	ID            string    `db:"id" json:"id"`
	ProductID     string    `db:"product_id" json:"product_id"`
	PreviousStock int       `db:"previous_stock" json:"previous_stock"`
	NewStock      int       `db:"new_stock" json:"new_stock"`
	Change        int       `db:"change" json:"change"`
	Reason        string    `db:"reason" json:"reason"`
	CreatedBy     *string   `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

package catalog

import "time"

// Package is an admin-managed catalog entry for purchasable minutes.
// Entries are never edited in place: price changes deactivate the old
// row and insert a new one, so old checkouts stay explainable.
type Package struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Minutes        int       `db:"minutes" json:"minutes"`
	PriceCents     int64     `db:"price_cents" json:"price_cents"`
	SavingsPercent int       `db:"savings_percent" json:"savings_percent"`
	Popular        bool      `db:"popular" json:"popular"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

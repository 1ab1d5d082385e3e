package models

import "time"

// LivePrice is a transient last-traded-price reading. A zero Price means
// the poll failed and the reading must not replace a good one.
type LivePrice struct {
	Price     float64   `json:"price"`
	Change    float64   `json:"change"` // percent
	FetchedAt time.Time `json:"fetched_at"`
}

// Valid reports whether the reading carries a usable price.
func (p LivePrice) Valid() bool {
	return p.Price > 0
}

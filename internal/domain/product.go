package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is catalog data. The storefront only ever reads it; price and name
// are looked up at computation time so catalog changes before checkout are
// honored.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	CreatedAt   time.Time
}

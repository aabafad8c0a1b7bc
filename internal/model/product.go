package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an item in the storefront catalogue.
type Product struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Category  string          `json:"category" db:"category"`
	Image     string          `json:"image" db:"image"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

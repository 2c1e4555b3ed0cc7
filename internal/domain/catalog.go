package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Storefront clients send and expect plain JSON numbers for prices.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a product in the catalog. Category holds the display
// label of the category the product belongs to; the original storefront data
// uses the label as the reference key and the API keeps that wire format.
type Product struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	ShortDesc string          `json:"shortDesc" db:"short_desc"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Category  string          `json:"category" db:"category"`
	Discount  int             `json:"discount" db:"discount"`
	Stock     int             `json:"stock" db:"stock"`
	Images    []string        `json:"images" db:"images"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Category represents a product category. Name is the internal lower-cased
// key and is unique; Label is the human-readable display text.
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Label     string    `json:"label" db:"label"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProductFields carries the mutable attributes of a product for create and
// update operations. IDs and creation timestamps are assigned by the store.
type ProductFields struct {
	Name      string
	ShortDesc string
	Price     decimal.Decimal
	Category  string
	Discount  int
	Stock     int
	Images    []string
}

// CartItem is a single line of a checkout cart.
type CartItem struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
}

// Customer holds the optional contact details submitted with a purchase.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

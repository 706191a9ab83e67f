// Package domain defines the persistent entities, value types, and error
// taxonomy shared by the storecore repositories and services.
package domain

import "time"

// EntityType identifies the kind of record held by an entity store.
type EntityType string

// Supported entity type identifiers used in persistence file names and
// error messages.
const (
	// EntityProduct identifies a catalog product record.
	EntityProduct EntityType = "product"
	// EntitySale identifies an immutable sale ledger record.
	EntitySale EntityType = "sale"
)

// Product is a catalog entry with a unit price and an on-hand stock count.
// Prices are expressed in the smallest currency unit; fractional prices are
// not representable. Stock is never negative at any observable time.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
	Stock       int64  `json:"stock"`
}

// Clone returns a deep copy of the product.
func (p Product) Clone() Product { return p }

// SoldItem captures one line of a sale as it looked at sale time. Later
// product mutations never change a recorded SoldItem.
type SoldItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
}

// Sale is an append-only ledger entry for a completed transaction. Sales are
// immutable once created and are never updated or deleted.
type Sale struct {
	ID     int64      `json:"id"`
	SoldAt time.Time  `json:"sold_at"`
	Items  []SoldItem `json:"items"`
	Total  int64      `json:"total"`
}

// Clone returns a deep copy of the sale, including its item list.
func (s Sale) Clone() Sale {
	cp := s
	cp.Items = append([]SoldItem(nil), s.Items...)
	return cp
}

// SaleItemRequest is one requested line of a sale: buy Quantity units of the
// product identified by ProductID at its current price.
type SaleItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

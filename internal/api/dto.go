package api

import (
	"fmt"
	"time"

	"storecore/pkg/domain"
)

// LoginRequest carries the credentials posted to /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse returns an issued bearer token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ProductRequest is the create-product payload.
type ProductRequest struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
	Stock       int64  `json:"stock"`
}

// PriceChangeRequest is the change-price payload.
type PriceChangeRequest struct {
	ID       int64 `json:"id"`
	NewPrice int64 `json:"new_price"`
}

// ProductResponse mirrors a catalog product. ImageURL points at the image
// serving route when an image has been uploaded.
type ProductResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
	Stock       int64  `json:"stock"`
}

// SaleRequest is the process-sale payload.
type SaleRequest struct {
	Items []SaleItemRequest `json:"items"`
}

// SaleItemRequest is one requested sale line.
type SaleItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// SoldItemResponse is one recorded sale line.
type SoldItemResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
}

// SaleResponse mirrors a recorded sale.
type SaleResponse struct {
	ID     int64              `json:"id"`
	SoldAt time.Time          `json:"sold_at"`
	Items  []SoldItemResponse `json:"items"`
	Total  int64              `json:"total"`
}

func toProductResponse(p domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Stock:       p.Stock,
	}
	if p.ImageURL != "" {
		resp.ImageURL = fmt.Sprintf("/api/products/%d/image", p.ID)
	}
	return resp
}

func toProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

func toSaleResponse(s domain.Sale) SaleResponse {
	items := make([]SoldItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, SoldItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}
	return SaleResponse{ID: s.ID, SoldAt: s.SoldAt, Items: items, Total: s.Total}
}

func toSaleResponses(sales []domain.Sale) []SaleResponse {
	out := make([]SaleResponse, 0, len(sales))
	for _, s := range sales {
		out = append(out, toSaleResponse(s))
	}
	return out
}

func toSaleItemRequests(items []SaleItemRequest) []domain.SaleItemRequest {
	out := make([]domain.SaleItemRequest, 0, len(items))
	for _, it := range items {
		out = append(out, domain.SaleItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

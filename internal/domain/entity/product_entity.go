package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Products are soft-deleted through IsActive.
type Product struct {
	ID          string          `json:"id"`
	SKU         *string         `json:"sku,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	Category    string          `json:"category"`
	CreatedBy   string          `json:"createdBy"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductSummary is the compact shape returned by batch lookups.
type ProductSummary struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
	Stock int             `json:"stock"`
}

func (p *Product) Summary() ProductSummary {
	s := ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
	if len(p.Images) > 0 {
		s.Image = p.Images[0]
	}
	return s
}

// CategoryCount is one row of the category listing.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

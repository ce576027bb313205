package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Product struct {
	ID             int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string           `gorm:"type:varchar(255);not null" json:"name"`
	Slug           string           `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	Description    string           `gorm:"type:text" json:"description"`
	BrandName      string           `gorm:"type:varchar(255)" json:"brand_name,omitempty"`
	IsActive       bool             `gorm:"not null;default:true" json:"is_active"`
	TotalSoldCount int64            `gorm:"not null;default:0" json:"total_sold_count"`
	Variants       []ProductVariant `gorm:"foreignKey:ProductID" json:"variants"`
	CreatedAt      time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`
}

// ProductVariant is the purchasable SKU. Quantity and sold count are mutated
// only through the stock ledger in order flow.
type ProductVariant struct {
	ID         int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  int64             `gorm:"not null;index" json:"product_id"`
	SKU        string            `gorm:"type:varchar(64);not null" json:"sku"`
	Price      int64             `gorm:"not null" json:"price"`
	SalePrice  *int64            `json:"sale_price,omitempty"`
	Quantity   int64             `gorm:"not null;default:0" json:"quantity"`
	SoldCount  int64             `gorm:"not null;default:0" json:"sold_count"`
	Attributes datatypes.JSONMap `json:"attributes,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }

// TotalVariantQuantity is the stock pool used when an order line does not name
// a specific variant.
func (p Product) TotalVariantQuantity() int64 {
	var total int64
	for _, v := range p.Variants {
		total += v.Quantity
	}
	return total
}

// LowestVariantPrice returns the cheapest variant price, false when the
// product has no variants.
func (p Product) LowestVariantPrice() (int64, bool) {
	if len(p.Variants) == 0 {
		return 0, false
	}
	lowest := p.Variants[0].Price
	for _, v := range p.Variants[1:] {
		if v.Price < lowest {
			lowest = v.Price
		}
	}
	return lowest, true
}

// FindVariant looks up a variant by id on the loaded product.
func (p Product) FindVariant(variantID int64) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return ProductVariant{}, false
}

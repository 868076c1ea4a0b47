package domain

import (
	"math"
	"time"
)

// PlaceholderImage is shown when a product has no image_url.
const PlaceholderImage = "/placeholder.svg?height=300&width=300&query=baby products"

// Product is a row of the products table. Optional columns are pointers so an
// unset value is never confused with a zero value.
type Product struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id" mapstructure:"id"`
	Name          string     `gorm:"size:200;not null" json:"name" mapstructure:"name"`
	Description   *string    `gorm:"type:text" json:"description,omitempty" mapstructure:"description"`
	Price         float64    `gorm:"not null;default:0" json:"price" mapstructure:"price"`
	OriginalPrice *float64   `json:"original_price,omitempty" mapstructure:"original_price"`
	ImageURL      *string    `gorm:"size:1024" json:"image_url,omitempty" mapstructure:"image_url"`
	Category      string     `gorm:"size:100;index" json:"category" mapstructure:"category"`
	InStock       bool       `gorm:"not null" json:"in_stock" mapstructure:"in_stock"`
	CreatedAt     *time.Time `gorm:"index" json:"created_at,omitempty" mapstructure:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}

// DiscountPercent returns round((original-price)/original*100), or 0 when the
// product has no original price. A negative value means original < price.
func (p Product) DiscountPercent() int {
	if p.OriginalPrice == nil || *p.OriginalPrice == 0 {
		return 0
	}
	orig := *p.OriginalPrice
	return int(math.Round((orig - p.Price) / orig * 100))
}

// HasDiscount reports whether a discount badge should be shown.
func (p Product) HasDiscount() bool {
	return p.DiscountPercent() > 0
}

// Image returns the image url or the placeholder.
func (p Product) Image() string {
	if p.ImageURL == nil || *p.ImageURL == "" {
		return PlaceholderImage
	}
	return *p.ImageURL
}

// ProductInput is the data submitted when creating a product.
type ProductInput struct {
	Name          string   `json:"name" csv:"name"`
	Description   *string  `json:"description,omitempty" csv:"-"`
	Price         float64  `json:"price" csv:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty" csv:"-"`
	ImageURL      *string  `json:"image_url,omitempty" csv:"-"`
	Category      string   `json:"category" csv:"category"`
	InStock       bool     `json:"in_stock" csv:"in_stock"`
}

// ProductPatch carries a partial update, nil fields are left unchanged.
type ProductPatch struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	ImageURL      *string  `json:"image_url,omitempty"`
	Category      *string  `json:"category,omitempty"`
	InStock       *bool    `json:"in_stock,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.OriginalPrice == nil && p.ImageURL == nil && p.Category == nil && p.InStock == nil
}

// Columns returns the changed columns keyed by column name.
func (p ProductPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.OriginalPrice != nil {
		cols["original_price"] = *p.OriginalPrice
	}
	if p.ImageURL != nil {
		cols["image_url"] = *p.ImageURL
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.InStock != nil {
		cols["in_stock"] = *p.InStock
	}
	return cols
}

// Apply copies the patched fields onto dst.
func (p ProductPatch) Apply(dst *Product) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Description != nil {
		dst.Description = StringPtr(*p.Description)
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.OriginalPrice != nil {
		dst.OriginalPrice = Float64Ptr(*p.OriginalPrice)
	}
	if p.ImageURL != nil {
		dst.ImageURL = StringPtr(*p.ImageURL)
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.InStock != nil {
		dst.InStock = *p.InStock
	}
}

// NewProduct builds a product row from create data.
func NewProduct(id string, in ProductInput, now time.Time) Product {
	ts := now
	return Product{
		ID:            id,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		ImageURL:      in.ImageURL,
		Category:      in.Category,
		InStock:       in.InStock,
		CreatedAt:     &ts,
		UpdatedAt:     &ts,
	}
}

// PatchFromInput turns full form data into a patch touching every column.
func PatchFromInput(in ProductInput) ProductPatch {
	desc := ""
	if in.Description != nil {
		desc = *in.Description
	}
	img := ""
	if in.ImageURL != nil {
		img = *in.ImageURL
	}
	return ProductPatch{
		Name:          StringPtr(in.Name),
		Description:   StringPtr(desc),
		Price:         Float64Ptr(in.Price),
		OriginalPrice: in.OriginalPrice,
		ImageURL:      StringPtr(img),
		Category:      StringPtr(in.Category),
		InStock:       BoolPtr(in.InStock),
	}
}

func StringPtr(s string) *string     { return &s }
func Float64Ptr(f float64) *float64 { return &f }
func BoolPtr(b bool) *bool          { return &b }

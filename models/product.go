package models

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Brand         string          `gorm:"size:100;not null" json:"brand"`
	Category      string          `gorm:"size:100;not null" json:"category"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	ImageFileName string          `json:"image_file_name"`
}

// ProductDto is bound from the create and edit forms. It is never persisted.
type ProductDto struct {
	Name        string     `form:"name" validate:"required,max=100"`
	Brand       string     `form:"brand" validate:"required,max=100"`
	Category    string     `form:"category" validate:"required,max=100"`
	Price       string     `form:"price" validate:"required,price"`
	Description string     `form:"description" validate:"max=2000"`
	ImageFile   *ImageFile `form:"-" validate:"-"`
}

// ImageFile is an uploaded image payload.
type ImageFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Empty reports whether no usable file was uploaded.
func (f *ImageFile) Empty() bool {
	return f == nil || f.Size == 0 || f.Filename == ""
}

// NewProductDto pre-fills a form from a stored product.
func NewProductDto(p Product) ProductDto {
	return ProductDto{
		Name:        p.Name,
		Brand:       p.Brand,
		Category:    p.Category,
		Price:       p.Price.StringFixed(2),
		Description: p.Description,
	}
}

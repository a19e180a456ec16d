package services

import (
	"reflect"
	"strings"

	"beststore/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldErrors maps a form field name to the message shown next to it. The
// empty key holds form-level errors.
type FieldErrors map[string]string

func (fe FieldErrors) Add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

const (
	FieldImage = "imageFile"
	FieldForm  = ""
)

var fieldMessages = map[string]string{
	"name.required":     "The name is required",
	"name.max":          "The name cannot exceed 100 characters",
	"brand.required":    "The brand is required",
	"brand.max":         "The brand cannot exceed 100 characters",
	"category.required": "The category is required",
	"category.max":      "The category cannot exceed 100 characters",
	"price.required":    "The price is required",
	"price.price":       "The price must be a non-negative number with at most 2 decimals",
	"description.max":   "The description cannot exceed 2000 characters",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		_, err := ParsePrice(fl.Field().String())
		return err == nil
	})
	return v
}

// maxPrice is the largest value a decimal(10,2) column holds.
var maxPrice = decimal.RequireFromString("99999999.99")

// ParsePrice parses a non-negative price with at most two decimals. Trailing
// zeros beyond the second decimal are accepted.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, ErrNegativePrice
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Decimal{}, ErrPriceScale
	}
	if d.GreaterThan(maxPrice) {
		return decimal.Decimal{}, ErrPriceTooLarge
	}
	return d.Round(2), nil
}

func (s *ProductService) validate(dto *models.ProductDto, requireImage bool) FieldErrors {
	errs := FieldErrors{}

	if err := s.validator.Struct(dto); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
				if !ok {
					msg = "The " + fe.Field() + " is invalid"
				}
				errs.Add(fe.Field(), msg)
			}
		} else {
			errs.Add(FieldForm, err.Error())
		}
	}

	if requireImage && dto.ImageFile.Empty() {
		errs.Add(FieldImage, "The image file is required")
	}
	return errs
}

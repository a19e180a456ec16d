// Package services sequences product record and image asset operations for
// the create, edit and delete flows.
package services

import (
	"context"
	"io"
	"strings"
	"time"

	"beststore/events"
	"beststore/models"
	"beststore/repository"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrRecordNotFound = errors.New("product not found")
	ErrNegativePrice  = errors.New("price must not be negative")
	ErrPriceScale     = errors.New("price has more than 2 decimals")
	ErrPriceTooLarge  = errors.New("price exceeds 99999999.99")
)

// MsgImageSaveFailed is shown when an uploaded image cannot be read or stored.
const MsgImageSaveFailed = "Failed to save the image file"

// AssetStore holds the image file that belongs to each product.
type AssetStore interface {
	StoreAt(at time.Time, r io.Reader, originalName string) (string, error)
	Remove(key string)
	Replace(oldKey string, r io.Reader, originalName string) (string, error)
}

// Notifier receives an event after each successful mutation.
type Notifier interface {
	Publish(event events.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(events.Event) {}

// Status tells the caller which branch a flow ended in.
type Status int

const (
	// StatusDone means every step of the flow completed.
	StatusDone Status = iota
	// StatusInvalid means the form must be shown again with Result.Errors.
	StatusInvalid
	// StatusNotFound means no product has the requested id. Nothing changed.
	StatusNotFound
	// StatusSuppressed means a failure was logged and must not reach the user.
	StatusSuppressed
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusInvalid:
		return "invalid"
	case StatusNotFound:
		return "not_found"
	case StatusSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

type Result struct {
	Status  Status
	Errors  FieldErrors
	Product models.Product
	Err     error
}

type ProductService struct {
	products  repository.ProductRepository
	assets    AssetStore
	notifier  Notifier
	validator *validator.Validate
	now       func() time.Time
}

// NewProductService wires the record store and asset store. notifier may be nil.
func NewProductService(products repository.ProductRepository, assets AssetStore, notifier Notifier) *ProductService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ProductService{
		products:  products,
		assets:    assets,
		notifier:  notifier,
		validator: newValidator(),
		now:       time.Now,
	}
}

// List returns all products ordered by id, newest first.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.products.FindAll(ctx)
}

func (s *ProductService) Get(ctx context.Context, id uint) (models.Product, bool, error) {
	return s.products.FindByID(ctx, id)
}

// Create writes the uploaded image first and saves the record only once the
// file exists.
func (s *ProductService) Create(ctx context.Context, dto *models.ProductDto) Result {
	normalize(dto)
	if errs := s.validate(dto, true); len(errs) > 0 {
		return Result{Status: StatusInvalid, Errors: errs, Err: ErrValidation}
	}
	price, _ := ParsePrice(dto.Price)

	createdAt := s.now()
	key, err := s.assets.StoreAt(createdAt, dto.ImageFile.Content, dto.ImageFile.Filename)
	if err != nil {
		zap.L().Error("failed to save the image file", zap.String("filename", dto.ImageFile.Filename), zap.Error(err))
		return Result{
			Status: StatusInvalid,
			Errors: FieldErrors{FieldImage: MsgImageSaveFailed},
			Err:    err,
		}
	}

	product := models.Product{
		Name:          dto.Name,
		Brand:         dto.Brand,
		Category:      dto.Category,
		Price:         price,
		Description:   dto.Description,
		CreatedAt:     createdAt,
		ImageFileName: key,
	}
	if err := s.products.Save(ctx, &product); err != nil {
		zap.L().Error("failed to create product", zap.String("image", key), zap.Error(err))
		s.assets.Remove(key)
		return Result{
			Status: StatusInvalid,
			Errors: FieldErrors{FieldForm: "Failed to save the product"},
			Err:    err,
		}
	}

	s.notifier.Publish(events.NewProductEvent(events.ProductCreated, product))
	return Result{Status: StatusDone, Product: product}
}

// Edit applies dto to the product with the given id. A new image replaces the
// old one; without one the stored image is kept.
func (s *ProductService) Edit(ctx context.Context, id uint, dto *models.ProductDto) Result {
	product, found, err := s.products.FindByID(ctx, id)
	if err != nil {
		zap.L().Warn("edit: lookup failed", zap.Uint("id", id), zap.Error(err))
		return Result{Status: StatusSuppressed, Err: err}
	}
	if !found {
		return Result{Status: StatusNotFound, Err: ErrRecordNotFound}
	}

	normalize(dto)
	if errs := s.validate(dto, false); len(errs) > 0 {
		return Result{Status: StatusInvalid, Errors: errs, Product: product, Err: ErrValidation}
	}
	price, _ := ParsePrice(dto.Price)

	if !dto.ImageFile.Empty() {
		key, err := s.assets.Replace(product.ImageFileName, dto.ImageFile.Content, dto.ImageFile.Filename)
		if err != nil {
			zap.L().Error("failed to save the image file", zap.Uint("id", id), zap.Error(err))
			return Result{
				Status:  StatusInvalid,
				Errors:  FieldErrors{FieldImage: MsgImageSaveFailed},
				Product: product,
				Err:     err,
			}
		}
		product.ImageFileName = key
	}

	product.Name = dto.Name
	product.Brand = dto.Brand
	product.Category = dto.Category
	product.Price = price
	product.Description = dto.Description

	if err := s.products.Save(ctx, &product); err != nil {
		zap.L().Warn("edit: save failed", zap.Uint("id", id), zap.Error(err))
		return Result{Status: StatusSuppressed, Product: product, Err: err}
	}

	s.notifier.Publish(events.NewProductEvent(events.ProductUpdated, product))
	return Result{Status: StatusDone, Product: product}
}

// Delete removes the product image, then the record. A missing image does not
// stop the record from being deleted.
func (s *ProductService) Delete(ctx context.Context, id uint) Result {
	product, found, err := s.products.FindByID(ctx, id)
	if err != nil {
		zap.L().Warn("delete: lookup failed", zap.Uint("id", id), zap.Error(err))
		return Result{Status: StatusSuppressed, Err: err}
	}
	if !found {
		return Result{Status: StatusNotFound, Err: ErrRecordNotFound}
	}

	s.assets.Remove(product.ImageFileName)

	if err := s.products.Delete(ctx, &product); err != nil {
		zap.L().Warn("delete: record not deleted", zap.Uint("id", id), zap.Error(err))
		return Result{Status: StatusSuppressed, Product: product, Err: err}
	}

	s.notifier.Publish(events.NewProductEvent(events.ProductDeleted, product))
	return Result{Status: StatusDone, Product: product}
}

func normalize(dto *models.ProductDto) {
	dto.Name = strings.TrimSpace(dto.Name)
	dto.Brand = strings.TrimSpace(dto.Brand)
	dto.Category = strings.TrimSpace(dto.Category)
	dto.Price = strings.TrimSpace(dto.Price)
	dto.Description = strings.TrimSpace(dto.Description)
}

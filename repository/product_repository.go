package repository

import (
	"context"

	"beststore/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrPersistence = errors.New("persistence failure")

// ProductRepository is the record store for products.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]models.Product, error)
	// FindByID reports found=false, with a nil error, when no row has id.
	FindByID(ctx context.Context, id uint) (product models.Product, found bool, err error)
	Save(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, product *models.Product) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// FindAll returns every product, newest id first.
func (r *productRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&products).Error; err != nil {
		return nil, errors.Wrapf(ErrPersistence, "find products: %v", err)
	}
	return products, nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (models.Product, bool, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Product{}, false, nil
	}
	if err != nil {
		return models.Product{}, false, errors.Wrapf(ErrPersistence, "find product %d: %v", id, err)
	}
	return product, true, nil
}

// Save inserts a product without an id and updates every column otherwise.
func (r *productRepository) Save(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return errors.Wrapf(ErrPersistence, "save product: %v", err)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Delete(product).Error; err != nil {
		return errors.Wrapf(ErrPersistence, "delete product %d: %v", product.ID, err)
	}
	return nil
}

// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrProductNotFound is returned for unknown or inactive products
var ErrProductNotFound = errors.New("product not found or inactive")

// Repository provides read-only access to the product catalog
type Repository interface {
	FindProduct(ctx context.Context, id string) (*Product, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a catalog repository backed by GORM
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// FindProduct loads an active product by id
func (r *gormRepository) FindProduct(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, ErrProductNotFound
	}

	var prod Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&prod).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}

	return &prod, nil
}

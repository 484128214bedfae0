// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

// Service records confirmed orders
type Service struct {
	db       *gorm.DB
	currency string
	logger   *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, currency string, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		currency: currency,
		logger:   logger,
	}
}

// Record stores a placed order with its items
func (s *Service) Record(ctx context.Context, placed Placed) (*Order, error) {
	if placed.Number == "" {
		return nil, fmt.Errorf("order number is required")
	}
	if len(placed.Items) == 0 {
		return nil, fmt.Errorf("order %s has no items", placed.Number)
	}

	order := FromPlaced(placed, s.currency)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_number":      order.OrderNumber,
		"payment_method":    order.PaymentMethod,
		"confirmation_kind": order.ConfirmationKind,
		"total":             order.TotalAmount,
	}).Info("Order recorded")

	return order, nil
}

// FindByNumber retrieves a single order by order number
func (s *Service) FindByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	if orderNumber == "" {
		return nil, ErrOrderNotFound
	}

	var order Order
	result := s.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &order, nil
}

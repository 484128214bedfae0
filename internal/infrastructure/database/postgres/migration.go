// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fitfood-checkout/internal/domain/catalog"
	"github.com/your-org/fitfood-checkout/internal/domain/order"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("Running database auto-migrations")

	models := []interface{}{
		&catalog.Product{},
		&order.Order{},
		&order.OrderItem{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment ON orders(payment_method, confirmation_kind)",
		"CREATE INDEX IF NOT EXISTS idx_orders_provider_id ON orders(payment_provider_id)",
	}

	failed := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).Warn("Failed to create index")
			failed++
		}
	}

	m.log.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("Database indexes created")
	return nil
}

// SeedCatalog inserts sample products into an empty catalog
func (m *Migration) SeedCatalog() error {
	var count int64
	if err := m.db.Model(&catalog.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		m.log.Debug("Catalog already seeded")
		return nil
	}

	discount := int64(2490)
	products := []catalog.Product{
		{
			ID:          "marmita-frango-batata-doce",
			Name:        "Marmita Frango com Batata-Doce",
			Description: "Peito de frango grelhado, batata-doce assada e brócolis.",
			Price:       2990,
			IsActive:    true,
		},
		{
			ID:            "marmita-carne-arroz-integral",
			Name:          "Marmita Carne com Arroz Integral",
			Description:   "Patinho moído, arroz integral e legumes no vapor.",
			Price:         3290,
			DiscountPrice: &discount,
			IsActive:      true,
		},
		{
			ID:          "suco-verde-detox",
			Name:        "Suco Verde Detox",
			Description: "Couve, limão, gengibre e maçã. 300 ml.",
			Price:       1200,
			IsActive:    true,
		},
	}

	if err := m.db.Create(&products).Error; err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	m.log.WithField("count", len(products)).Info("Catalog seeded")
	return nil
}

// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/customer"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/promotion"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		// Catalog domain - base tables
		&catalog.Category{},
		&catalog.Product{},

		// Customer domain
		&customer.Customer{},

		// Promotion domain
		&promotion.Special{},

		// Order domain - dependent tables
		&order.Order{},
		&order.OrderLine{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Special indexes
		"CREATE INDEX IF NOT EXISTS idx_specials_active_window ON specials(is_active, start_date, end_date)",
		"CREATE INDEX IF NOT EXISTS idx_specials_code_active ON specials(code, is_active)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_customer_status ON orders(customer_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_customer_email ON orders(customer_email)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Order line indexes
		"CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_lines_product ON order_lines(product_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if err := m.seedSpecials(); err != nil {
		return fmt.Errorf("failed to seed specials: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedCategories creates default product categories
func (m *Migration) seedCategories() error {
	log.Println("🏷️ Seeding categories...")

	categories := []catalog.Category{
		{
			Name:        "Coffee & Espresso",
			Description: "Hot and iced coffee drinks",
			SortOrder:   1,
			IsActive:    true,
		},
		{
			Name:        "Pastries",
			Description: "Fresh-baked pastries and desserts",
			SortOrder:   2,
			IsActive:    true,
		},
		{
			Name:        "Sandwiches",
			Description: "Breakfast and lunch sandwiches",
			SortOrder:   3,
			IsActive:    true,
		},
	}

	for _, category := range categories {
		var existing catalog.Category
		result := m.db.Where("name = ?", category.Name).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&category).Error; err != nil {
				return err
			}
			log.Printf("✅ Created category: %s", category.Name)
		} else {
			log.Printf("⏭️ Category already exists: %s", category.Name)
		}
	}

	return nil
}

// seedProducts creates test products for checkout testing
func (m *Migration) seedProducts() error {
	log.Println("📦 Seeding products...")

	var coffee catalog.Category
	if err := m.db.Where("name = ?", "Coffee & Espresso").First(&coffee).Error; err != nil {
		return err
	}

	products := []catalog.Product{
		{
			Name:        "Latte",
			Description: "Double shot with steamed milk",
			Price:       decimal.NewFromFloat(4.50),
			CategoryID:  &coffee.ID,
			IsActive:    true,
		},
		{
			Name:        "Cold Brew",
			Description: "Slow-steeped, served over ice",
			Price:       decimal.NewFromFloat(5.00),
			CategoryID:  &coffee.ID,
			IsActive:    true,
		},
		{
			Name:        "Croissant",
			Description: "Butter croissant, baked daily",
			Price:       decimal.NewFromFloat(3.75),
			IsActive:    true,
		},
	}

	for _, p := range products {
		var existing catalog.Product
		result := m.db.Where("name = ?", p.Name).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&p).Error; err != nil {
				return err
			}
			log.Printf("✅ Created product: %s", p.Name)
		} else {
			log.Printf("⏭️ Product already exists: %s", p.Name)
		}
	}

	return nil
}

// seedSpecials creates sample promotional rules
func (m *Migration) seedSpecials() error {
	log.Println("🎟️ Seeding specials...")

	now := time.Now().UTC()
	welcomeCode := "WELCOME10"
	bundleCode := "BUNDLE3"
	minPurchase := decimal.NewFromInt(20)
	maxUses := 500

	specials := []promotion.Special{
		{
			Name:        "Welcome 10% Off",
			Description: "10% off your first order",
			Type:        promotion.SpecialTypePercentage,
			Value:       decimal.NewFromInt(10),
			StartDate:   now.AddDate(0, -1, 0),
			EndDate:     now.AddDate(1, 0, 0),
			IsActive:    true,
			MinPurchase: &minPurchase,
			MaxUses:     &maxUses,
			Code:        &welcomeCode,
		},
		{
			Name:        "Buy 2 Get 1",
			Description: "Buy two drinks, get a third free",
			Type:        promotion.SpecialTypeBuyXGetY,
			StartDate:   now.AddDate(0, -1, 0),
			EndDate:     now.AddDate(0, 3, 0),
			IsActive:    true,
			Code:        &bundleCode,
		},
	}

	for _, sp := range specials {
		var existing promotion.Special
		result := m.db.Where("code = ?", *sp.Code).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&sp).Error; err != nil {
				return err
			}
			log.Printf("✅ Created special: %s", sp.Name)
		} else {
			log.Printf("⏭️ Special already exists: %s", sp.Name)
		}
	}

	return nil
}

// GetTableInfo logs row counts for the main tables, useful in development
func (m *Migration) GetTableInfo() {
	tables := []string{"categories", "products", "customers", "specials", "orders", "order_lines"}

	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			log.Printf("⚠️ Failed to count %s: %v", table, err)
			continue
		}
		log.Printf("📊 %s: %d rows", table, count)
	}
}

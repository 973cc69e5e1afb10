package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/supermart/supermart/internal/app"
	"github.com/supermart/supermart/internal/catalog"
	"github.com/supermart/supermart/internal/platform/db"
	"github.com/supermart/supermart/internal/shared"
	"github.com/supermart/supermart/internal/users"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.Pool("seed"))
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	// Seeded stock goes through the catalog service so every unit has a RESTOCK ledger entry.
	core := app.NewCore(app.CoreParams{Pool: pool, Config: cfg, Logger: app.NewLogger(cfg)})

	fmt.Println("→ Seeding users...")
	adminID, err := seedUsers(ctx, pool, core.Users)
	if err != nil {
		log.Fatalf("seed users: %v", err)
	}

	fmt.Println("→ Seeding catalog...")
	if err := seedCatalog(ctx, core.Catalog, adminID); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, svc *users.Service) (int64, error) {
	accounts := []users.CreateInput{
		{Email: "admin@supermart.com", Username: "admin"},
		{Email: "manager@supermart.com", Username: "manager"},
		{Email: "staff@supermart.com", Username: "staff"},
		{Email: "shopper@example.com", Username: "shopper", Address: "1 Market Street"},
	}
	for _, input := range accounts {
		_, err := svc.Create(ctx, 0, input)
		if err != nil && !errors.Is(err, shared.ErrValidation) {
			return 0, fmt.Errorf("%s: %w", input.Email, err)
		}
	}
	var adminID int64
	if err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, "admin@supermart.com").Scan(&adminID); err != nil {
		return 0, err
	}
	return adminID, nil
}

type seedProduct struct {
	sku      string
	name     string
	category string
	price    string
	quantity int
	supplier string
}

func seedCatalog(ctx context.Context, svc *catalog.Service, actorID int64) error {
	categories := map[string]int64{}
	for _, name := range []string{"Dairy", "Bakery", "Produce", "Beverages", "Household"} {
		c, err := svc.CreateCategory(ctx, catalog.CreateCategoryInput{Name: name})
		if err != nil && !errors.Is(err, shared.ErrValidation) {
			return fmt.Errorf("category %s: %w", name, err)
		}
		if err == nil {
			categories[name] = c.ID
		}
	}
	if len(categories) < 5 {
		existing, err := svc.ListCategories(ctx)
		if err != nil {
			return err
		}
		for _, c := range existing {
			categories[c.Name] = c.ID
		}
	}

	products := []seedProduct{
		{"MILK-1L", "Milk 1L", "Dairy", "1.49", 240, "Green Valley Dairy"},
		{"BUTTER-250", "Butter 250g", "Dairy", "2.99", 80, "Green Valley Dairy"},
		{"BREAD-WHT", "White Bread", "Bakery", "2.49", 60, "Corner Bakery"},
		{"CROIS-4", "Croissants 4-pack", "Bakery", "3.99", 8, "Corner Bakery"},
		{"APPLE-1KG", "Apples 1kg", "Produce", "3.20", 150, "Orchard Farms"},
		{"BANANA-1KG", "Bananas 1kg", "Produce", "1.80", 0, "Orchard Farms"},
		{"WATER-6", "Spring Water 6-pack", "Beverages", "4.50", 120, "Clearsprings"},
		{"DETERG-2L", "Laundry Detergent 2L", "Household", "9.99", 25, "CleanCo"},
	}
	for _, p := range products {
		_, err := svc.CreateProduct(ctx, catalog.CreateProductInput{
			SKU:        p.sku,
			Name:       p.name,
			Supplier:   p.supplier,
			CategoryID: categories[p.category],
			Price:      decimal.RequireFromString(p.price),
			Quantity:   p.quantity,
			ActorID:    actorID,
		})
		if err != nil && !errors.Is(err, shared.ErrValidation) {
			return fmt.Errorf("product %s: %w", p.sku, err)
		}
	}
	return nil
}

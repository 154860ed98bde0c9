package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "platecost/internal/log"
	"platecost/internal/store"
	"platecost/models"
)

// New returns an in-memory sqlite database seeded with a small kitchen: the
// same ingredient bought from several sources, a few dishes and the completed
// foods built from them. Each call gets its own database.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	dsn := fmt.Sprintf("file:platecost-mock-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Ingredient{},
		&models.Dish{},
		&models.DishComponent{},
		&models.CompletedFood{},
		&models.FoodComponent{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, store.New(db)); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, s *store.Store) error {
	applog.Debug(ctx, "seeding mock database")

	ingredients := []models.IngredientPayload{
		{Name: "Flour", Source: "Mill Co", Quantity: 1000, Unit: "g", Price: 1200, Category: "dry goods"},
		{Name: "Flour", Source: "Corner Market", Quantity: 2000, Unit: "g", Price: 2100, Category: "dry goods"},
		{Name: "Sugar", Source: "Corner Market", Quantity: 1000, Unit: "g", Price: 500, Category: "dry goods"},
		{Name: "Butter", Source: "Valley Dairy", Quantity: 450, Unit: "g", Price: 900, Category: "dairy"},
		{Name: "Eggs", Source: "Valley Dairy", Quantity: 12, Unit: "piece", Price: 600, Category: "dairy"},
		{Name: "Eggs", Source: "Corner Market", Quantity: 30, Unit: "piece", Price: 1350, Category: "dairy"},
		{Name: "Mozzarella", Source: "Valley Dairy", Quantity: 250, Unit: "g", Price: 700, Category: "dairy"},
		{Name: "Tomato", Source: "Green Grocer", Quantity: 1, Unit: "kg", Price: 800, Category: "produce"},
		{Name: "Basil", Source: "Green Grocer", Quantity: 1, Unit: "bunch", Price: 300, Category: "produce"},
		{Name: "Olive oil", Source: "Corner Market", Quantity: 1000, Unit: "ml", Price: 2400, Category: "pantry"},
	}

	ids := make(map[string]uint, len(ingredients))
	for _, payload := range ingredients {
		result, err := s.Ingredients.Create(ctx, payload)
		if err != nil {
			return err
		}
		key := payload.Name + "@" + payload.Source
		ids[key] = result.Data.ID
	}

	dishes := []models.DishPayload{
		{
			Name:        "Shortcrust",
			Category:    "pastry",
			Description: "Sweet tart base.",
			Components: []models.DishComponentPayload{
				{IngredientID: ids["Flour@Mill Co"], UsedQuantity: 250},
				{IngredientID: ids["Butter@Valley Dairy"], UsedQuantity: 125},
				{IngredientID: ids["Sugar@Corner Market"], UsedQuantity: 50},
				{IngredientID: ids["Eggs@Valley Dairy"], UsedQuantity: 1},
			},
		},
		{
			Name:     "Tomato sauce",
			Category: "sauce",
			Components: []models.DishComponentPayload{
				{IngredientID: ids["Tomato@Green Grocer"], UsedQuantity: 0.5},
				{IngredientID: ids["Olive oil@Corner Market"], UsedQuantity: 30},
				{IngredientID: ids["Basil@Green Grocer"], UsedQuantity: 0.5},
			},
		},
		{
			Name:     "Pizza dough",
			Category: "bread",
			Components: []models.DishComponentPayload{
				{IngredientID: ids["Flour@Corner Market"], UsedQuantity: 300},
				{IngredientID: ids["Olive oil@Corner Market"], UsedQuantity: 20},
			},
		},
	}

	dishIDs := make(map[string]uint, len(dishes))
	for _, payload := range dishes {
		result, err := s.Dishes.Create(ctx, payload)
		if err != nil {
			return err
		}
		dishIDs[payload.Name] = result.Data.ID
	}

	tartPrice := 1800.0
	pizzaPrice := 1400.0
	foods := []models.FoodPayload{
		{
			Name:        "Lemon tart",
			Description: "Shortcrust shell, served by the slice.",
			Price:       &tartPrice,
			Components: []models.FoodComponentPayload{
				{DishID: dishIDs["Shortcrust"], UsageQuantity: 1, UsageUnit: models.UsageServing},
			},
		},
		{
			Name:  "Margherita",
			Price: &pizzaPrice,
			Components: []models.FoodComponentPayload{
				{DishID: dishIDs["Pizza dough"], UsageQuantity: 1, UsageUnit: models.UsageServing},
				{DishID: dishIDs["Tomato sauce"], UsageQuantity: 0.25, UsageUnit: models.UsageRatio, Note: "a quarter of the batch"},
			},
		},
		{
			Name: "Staff pizza",
			Components: []models.FoodComponentPayload{
				{DishID: dishIDs["Pizza dough"], UsageQuantity: 1, UsageUnit: models.UsageServing},
			},
		},
	}

	for _, payload := range foods {
		if _, err := s.Foods.Create(ctx, payload); err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded", "ingredients", len(ingredients), "dishes", len(dishes), "foods", len(foods))
	return nil
}

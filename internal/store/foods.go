package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	applog "platecost/internal/log"
	"platecost/internal/profit"
	"platecost/internal/rollup"
	"platecost/models"
)

var foodColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"total_cost": "total_cost",
	"created_at": "created_at",
}

// FoodRepository reads and writes completed foods together with their components.
type FoodRepository struct {
	store *Store
}

func preloadFood(query *gorm.DB) *gorm.DB {
	return query.Preload("Components", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).Preload("Components.Dish")
}

// List returns completed foods matching params. profit and profit_rate sort in memory.
func (r *FoodRepository) List(ctx context.Context, params ListParams) (Result[[]models.CompletedFood], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[[]models.CompletedFood](err)
	}

	query := preloadFood(db.WithContext(ctx).Model(&models.CompletedFood{}))
	if q := strings.TrimSpace(params.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(q))
	}

	query, derived, err := orderQuery(query, params, foodColumns, "profit", "profit_rate")
	if err != nil {
		return failed[[]models.CompletedFood](err)
	}
	if !derived {
		query = paginateQuery(query, params)
	}

	var foods []models.CompletedFood
	if err := query.Find(&foods).Error; err != nil {
		logFailure(ctx, "list foods", err)
		return failed[[]models.CompletedFood](err)
	}
	if derived {
		key := func(f models.CompletedFood) float64 { return profit.Rate(f.Price, f.TotalCost) }
		if params.sortKey() == "profit" {
			key = func(f models.CompletedFood) float64 { return profit.Profit(f.Price, f.TotalCost) }
		}
		foods = sortDerived(foods, params, key)
	}
	return ok(foods), nil
}

// Get loads one completed food with its components.
func (r *FoodRepository) Get(ctx context.Context, id uint) (Result[models.CompletedFood], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[models.CompletedFood](err)
	}

	var food models.CompletedFood
	if err := preloadFood(db.WithContext(ctx)).First(&food, id).Error; err != nil {
		err = translate(err)
		logFailure(ctx, "get food", err, "id", id)
		return failed[models.CompletedFood](err)
	}
	return ok(food), nil
}

// Create stores a completed food, costing each component at the dish's stored total.
func (r *FoodRepository) Create(ctx context.Context, payload models.FoodPayload) (Result[models.CompletedFood], error) {
	if err := payload.Validate(); err != nil {
		return failed[models.CompletedFood](err)
	}

	food := models.CompletedFood{
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		Price:       copyPrice(payload.Price),
	}
	return r.create(ctx, food, payload.Components, nil)
}

func (r *FoodRepository) create(ctx context.Context, food models.CompletedFood, components []models.FoodComponentPayload, staged map[uint]float64) (Result[models.CompletedFood], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[models.CompletedFood](err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		built, err := costFoodComponents(tx, components, staged)
		if err != nil {
			return err
		}
		food.Components = built
		food.TotalCost = rollup.TotalCost(built)
		return tx.Create(&food).Error
	})
	if err != nil {
		logFailure(ctx, "create food", err)
		return failed[models.CompletedFood](err)
	}

	applog.Debug(ctx, "completed food created", "id", food.ID, "components", len(food.Components), "total_cost", food.TotalCost)
	r.store.publish(Event{Kind: KindFood, Action: ActionCreated, ID: food.ID})
	return r.Get(ctx, food.ID)
}

// Update patches scalar fields. A non-nil Components replaces every component
// and re-snapshots the total at the dishes' current stored totals.
func (r *FoodRepository) Update(ctx context.Context, id uint, patch models.FoodPatch) (Result[models.CompletedFood], error) {
	if err := patch.Validate(); err != nil {
		return failed[models.CompletedFood](err)
	}
	return r.update(ctx, id, patch, nil)
}

func (r *FoodRepository) update(ctx context.Context, id uint, patch models.FoodPatch, staged map[uint]float64) (Result[models.CompletedFood], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[models.CompletedFood](err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CompletedFood
		if err := tx.First(&existing, id).Error; err != nil {
			return translate(err)
		}

		updates := map[string]any{}
		if patch.Name != nil {
			updates["name"] = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			updates["description"] = strings.TrimSpace(*patch.Description)
		}
		if patch.Price != nil {
			updates["price"] = *patch.Price
		}
		if patch.ClearPrice {
			updates["price"] = gorm.Expr("NULL")
		}

		if patch.Components != nil {
			built, err := costFoodComponents(tx, patch.Components, staged)
			if err != nil {
				return err
			}
			if err := tx.Unscoped().Where("completed_food_id = ?", id).Delete(&models.FoodComponent{}).Error; err != nil {
				return fmt.Errorf("clear food components: %w", err)
			}
			for i := range built {
				built[i].CompletedFoodID = id
			}
			if len(built) > 0 {
				if err := tx.Create(&built).Error; err != nil {
					return fmt.Errorf("create food components: %w", err)
				}
			}
			updates["total_cost"] = rollup.TotalCost(built)
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&existing).Updates(updates).Error
	})
	if err != nil {
		logFailure(ctx, "update food", err, "id", id)
		return failed[models.CompletedFood](err)
	}

	applog.Debug(ctx, "completed food updated", "id", id, "components_replaced", patch.Components != nil)
	r.store.publish(Event{Kind: KindFood, Action: ActionUpdated, ID: id})
	return r.Get(ctx, id)
}

// Delete removes a completed food and its components.
func (r *FoodRepository) Delete(ctx context.Context, id uint) (Result[struct{}], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[struct{}](err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("completed_food_id = ?", id).Delete(&models.FoodComponent{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.CompletedFood{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		logFailure(ctx, "delete food", err, "id", id)
		return failed[struct{}](err)
	}

	applog.Debug(ctx, "completed food deleted", "id", id)
	r.store.publish(Event{Kind: KindFood, Action: ActionDeleted, ID: id})
	return ok(struct{}{}), nil
}

func costFoodComponents(tx *gorm.DB, components []models.FoodComponentPayload, staged map[uint]float64) ([]models.FoodComponent, error) {
	if len(components) == 0 {
		return []models.FoodComponent{}, nil
	}

	ids := make([]uint, 0, len(components))
	for _, component := range components {
		ids = append(ids, component.DishID)
	}

	var dishes []models.Dish
	if err := tx.Where("id IN ?", ids).Find(&dishes).Error; err != nil {
		return nil, fmt.Errorf("load dishes: %w", err)
	}
	byID := make(map[uint]models.Dish, len(dishes))
	for _, dish := range dishes {
		byID[dish.ID] = dish
	}

	built := make([]models.FoodComponent, 0, len(components))
	for i, component := range components {
		dish, found := byID[component.DishID]
		if !found {
			return nil, models.Invalid(fmt.Sprintf("components[%d].dish_id", i), fmt.Sprintf("references unknown dish %d", component.DishID))
		}
		cost, isStaged := staged[component.DishID]
		if !isStaged {
			cost = rollup.ComponentCost(dish.TotalCost, component.UsageQuantity)
		}
		built = append(built, models.FoodComponent{
			DishID:        dish.ID,
			UsageQuantity: component.UsageQuantity,
			UsageUnit:     models.NormalizeUsageUnit(component.UsageUnit),
			Note:          strings.TrimSpace(component.Note),
			UsageCost:     cost,
		})
	}
	return built, nil
}

func copyPrice(price *float64) *float64 {
	if price == nil {
		return nil
	}
	value := *price
	return &value
}

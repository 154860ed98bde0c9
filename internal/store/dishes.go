package store

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	applog "platecost/internal/log"
	"platecost/internal/rollup"
	"platecost/models"
)

var dishColumns = map[string]string{
	"name":       "name",
	"category":   "category",
	"total_cost": "total_cost",
	"created_at": "created_at",
}

// DishRepository reads and writes dishes together with their components.
type DishRepository struct {
	store *Store
}

func preloadDish(query *gorm.DB) *gorm.DB {
	return query.Preload("Components", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).Preload("Components.Ingredient")
}

// List returns dishes matching params.
func (r *DishRepository) List(ctx context.Context, params ListParams) (Result[[]models.Dish], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[[]models.Dish](err)
	}

	query := preloadDish(db.WithContext(ctx).Model(&models.Dish{}))
	if q := strings.TrimSpace(params.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(q))
	}
	if category := strings.TrimSpace(params.Category); category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(category))
	}

	query, _, err = orderQuery(query, params, dishColumns)
	if err != nil {
		return failed[[]models.Dish](err)
	}

	var dishes []models.Dish
	if err := paginateQuery(query, params).Find(&dishes).Error; err != nil {
		logFailure(ctx, "list dishes", err)
		return failed[[]models.Dish](err)
	}
	return ok(dishes), nil
}

// Get loads one dish with its components.
func (r *DishRepository) Get(ctx context.Context, id uint) (Result[models.Dish], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[models.Dish](err)
	}

	var dish models.Dish
	if err := preloadDish(db.WithContext(ctx)).First(&dish, id).Error; err != nil {
		err = translate(err)
		logFailure(ctx, "get dish", err, "id", id)
		return failed[models.Dish](err)
	}
	return ok(dish), nil
}

// Create stores a dish, costing each component at the ingredient's current
// unit price. The total is stored as a snapshot.
func (r *DishRepository) Create(ctx context.Context, payload models.DishPayload) (Result[models.Dish], error) {
	if err := payload.Validate(); err != nil {
		return failed[models.Dish](err)
	}

	dish := models.Dish{
		Name:        strings.TrimSpace(payload.Name),
		Category:    strings.TrimSpace(payload.Category),
		Description: strings.TrimSpace(payload.Description),
	}
	return r.create(ctx, dish, payload.Components, nil)
}

// create persists dish. staged, when non-nil, carries costs already computed
// by a builder, keyed by ingredient id; otherwise costs come from current prices.
func (r *DishRepository) create(ctx context.Context, dish models.Dish, components []models.DishComponentPayload, staged map[uint]float64) (Result[models.Dish], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[models.Dish](err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		built, err := costDishComponents(tx, components, staged)
		if err != nil {
			return err
		}
		dish.Components = built
		dish.TotalCost = rollup.TotalCost(built)
		return tx.Create(&dish).Error
	})
	if err != nil {
		logFailure(ctx, "create dish", err)
		return failed[models.Dish](err)
	}

	applog.Debug(ctx, "dish created", "id", dish.ID, "components", len(dish.Components), "total_cost", dish.TotalCost)
	r.store.publish(Event{Kind: KindDish, Action: ActionCreated, ID: dish.ID})
	return r.Get(ctx, dish.ID)
}

// Update patches scalar fields. A non-nil Components replaces every component
// and re-snapshots the total at current ingredient prices.
func (r *DishRepository) Update(ctx context.Context, id uint, patch models.DishPatch) (Result[models.Dish], error) {
	if err := patch.Validate(); err != nil {
		return failed[models.Dish](err)
	}
	return r.update(ctx, id, patch, nil)
}

func (r *DishRepository) update(ctx context.Context, id uint, patch models.DishPatch, staged map[uint]float64) (Result[models.Dish], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[models.Dish](err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Dish
		if err := tx.First(&existing, id).Error; err != nil {
			return translate(err)
		}

		updates := map[string]any{}
		if patch.Name != nil {
			updates["name"] = strings.TrimSpace(*patch.Name)
		}
		if patch.Category != nil {
			updates["category"] = strings.TrimSpace(*patch.Category)
		}
		if patch.Description != nil {
			updates["description"] = strings.TrimSpace(*patch.Description)
		}

		if patch.Components != nil {
			built, err := costDishComponents(tx, patch.Components, staged)
			if err != nil {
				return err
			}
			if err := tx.Unscoped().Where("dish_id = ?", id).Delete(&models.DishComponent{}).Error; err != nil {
				return fmt.Errorf("clear dish components: %w", err)
			}
			for i := range built {
				built[i].DishID = id
			}
			if len(built) > 0 {
				if err := tx.Create(&built).Error; err != nil {
					return fmt.Errorf("create dish components: %w", err)
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
		logFailure(ctx, "update dish", err, "id", id)
		return failed[models.Dish](err)
	}

	applog.Debug(ctx, "dish updated", "id", id, "components_replaced", patch.Components != nil)
	r.store.publish(Event{Kind: KindDish, Action: ActionUpdated, ID: id})
	return r.Get(ctx, id)
}

// Delete removes a dish and its components. Dishes used by a completed food
// cannot be deleted.
func (r *DishRepository) Delete(ctx context.Context, id uint) (Result[struct{}], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[struct{}](err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var uses int64
		if err := tx.Model(&models.FoodComponent{}).Where("dish_id = ?", id).Count(&uses).Error; err != nil {
			return err
		}
		if uses > 0 {
			return models.Invalid("dish", fmt.Sprintf("is used by %d completed food component(s)", uses))
		}
		if err := tx.Unscoped().Where("dish_id = ?", id).Delete(&models.DishComponent{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Dish{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		logFailure(ctx, "delete dish", err, "id", id)
		return failed[struct{}](err)
	}

	applog.Debug(ctx, "dish deleted", "id", id)
	r.store.publish(Event{Kind: KindDish, Action: ActionDeleted, ID: id})
	return ok(struct{}{}), nil
}

// Staleness compares a dish's stored total with what its components would cost
// at current ingredient prices.
type Staleness struct {
	DishID      uint    `json:"dish_id"`
	StoredTotal float64 `json:"stored_total"`
	LiveTotal   float64 `json:"live_total"`
	Delta       float64 `json:"delta"`
	Stale       bool    `json:"stale"`
}

// Staleness reports drift between the snapshot and current prices without
// changing anything. Rebuilding the dish is what refreshes the snapshot.
func (r *DishRepository) Staleness(ctx context.Context, id uint) (Result[Staleness], error) {
	result, err := r.Get(ctx, id)
	if err != nil {
		return failed[Staleness](err)
	}

	dish := result.Data
	live := 0.0
	for _, component := range dish.Components {
		if component.Ingredient == nil {
			continue
		}
		live += rollup.ComponentCost(component.Ingredient.UnitPrice(), component.UsedQuantity)
	}

	delta := live - dish.TotalCost
	return ok(Staleness{
		DishID:      dish.ID,
		StoredTotal: dish.TotalCost,
		LiveTotal:   live,
		Delta:       delta,
		Stale:       math.Abs(delta) > 1e-9,
	}), nil
}

func costDishComponents(tx *gorm.DB, components []models.DishComponentPayload, staged map[uint]float64) ([]models.DishComponent, error) {
	if len(components) == 0 {
		return []models.DishComponent{}, nil
	}

	ids := make([]uint, 0, len(components))
	for _, component := range components {
		ids = append(ids, component.IngredientID)
	}

	var ingredients []models.Ingredient
	if err := tx.Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	byID := make(map[uint]models.Ingredient, len(ingredients))
	for _, ingredient := range ingredients {
		byID[ingredient.ID] = ingredient
	}

	built := make([]models.DishComponent, 0, len(components))
	for i, component := range components {
		ingredient, found := byID[component.IngredientID]
		if !found {
			return nil, models.Invalid(fmt.Sprintf("components[%d].ingredient_id", i), fmt.Sprintf("references unknown ingredient %d", component.IngredientID))
		}
		cost, isStaged := staged[component.IngredientID]
		if !isStaged {
			cost = rollup.ComponentCost(ingredient.UnitPrice(), component.UsedQuantity)
		}
		built = append(built, models.DishComponent{
			IngredientID: ingredient.ID,
			UsedQuantity: component.UsedQuantity,
			UsedCost:     cost,
		})
	}
	return built, nil
}

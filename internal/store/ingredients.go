package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	applog "platecost/internal/log"
	"platecost/models"
)

var ingredientColumns = map[string]string{
	"name":       "name",
	"source":     "source",
	"price":      "price",
	"quantity":   "quantity",
	"category":   "category",
	"created_at": "created_at",
}

// IngredientRepository reads and writes ingredients.
type IngredientRepository struct {
	store *Store
}

// List returns ingredients matching params. Sorting by unit_price happens in memory.
func (r *IngredientRepository) List(ctx context.Context, params ListParams) (Result[[]models.Ingredient], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[[]models.Ingredient](err)
	}

	query := db.WithContext(ctx).Model(&models.Ingredient{})
	if q := strings.TrimSpace(params.Query); q != "" {
		pattern := likePattern(q)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(source) LIKE ?", pattern, pattern)
	}
	if category := strings.TrimSpace(params.Category); category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(category))
	}

	items, err := r.find(query, params)
	if err != nil {
		logFailure(ctx, "list ingredients", err)
		return failed[[]models.Ingredient](err)
	}
	return ok(items), nil
}

// Search returns the purchase candidates for one ingredient name across
// sources. Exact (case-insensitive) name matches win; when there are none the
// name is matched as a substring.
func (r *IngredientRepository) Search(ctx context.Context, name, sortKey, sortOrder string) ([]models.Ingredient, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return nil, models.Invalid("name", "is required")
	}

	db, err := r.store.handle()
	if err != nil {
		return nil, err
	}

	params := ListParams{Sort: sortKey, Order: sortOrder}
	exact := db.WithContext(ctx).Model(&models.Ingredient{}).Where("LOWER(TRIM(name)) = ?", trimmed)
	items, err := r.find(exact, params)
	if err != nil {
		logFailure(ctx, "search ingredients", err, "name", trimmed)
		return nil, err
	}
	if len(items) > 0 {
		return items, nil
	}

	partial := db.WithContext(ctx).Model(&models.Ingredient{}).Where("LOWER(name) LIKE ?", likePattern(trimmed))
	items, err = r.find(partial, params)
	if err != nil {
		logFailure(ctx, "search ingredients", err, "name", trimmed)
		return nil, err
	}
	return items, nil
}

func (r *IngredientRepository) find(query *gorm.DB, params ListParams) ([]models.Ingredient, error) {
	query, derived, err := orderQuery(query, params, ingredientColumns, "unit_price")
	if err != nil {
		return nil, err
	}
	if !derived {
		query = paginateQuery(query, params)
	}

	var items []models.Ingredient
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	if derived {
		items = sortDerived(items, params, models.Ingredient.UnitPrice)
	}
	return items, nil
}

// Lookup finds the ingredient bought as name from source, ignoring case and
// surrounding space.
func (r *IngredientRepository) Lookup(ctx context.Context, name, source string) (models.Ingredient, error) {
	db, err := r.store.handle()
	if err != nil {
		return models.Ingredient{}, err
	}

	var ingredient models.Ingredient
	err = db.WithContext(ctx).
		Where("LOWER(TRIM(name)) = ? AND LOWER(TRIM(source)) = ?", strings.ToLower(strings.TrimSpace(name)), strings.ToLower(strings.TrimSpace(source))).
		Order("id asc").
		First(&ingredient).Error
	if err != nil {
		err = translate(err)
		logFailure(ctx, "lookup ingredient", err, "name", name, "source", source)
		return models.Ingredient{}, err
	}
	return ingredient, nil
}

// Get loads one ingredient.
func (r *IngredientRepository) Get(ctx context.Context, id uint) (Result[models.Ingredient], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[models.Ingredient](err)
	}

	var ingredient models.Ingredient
	if err := db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		err = translate(err)
		logFailure(ctx, "get ingredient", err, "id", id)
		return failed[models.Ingredient](err)
	}
	return ok(ingredient), nil
}

// Create validates and stores a new ingredient.
func (r *IngredientRepository) Create(ctx context.Context, payload models.IngredientPayload) (Result[models.Ingredient], error) {
	if err := payload.Validate(); err != nil {
		return failed[models.Ingredient](err)
	}
	db, err := r.store.handle()
	if err != nil {
		return failed[models.Ingredient](err)
	}

	ingredient := models.Ingredient{
		Name:     strings.TrimSpace(payload.Name),
		Source:   strings.TrimSpace(payload.Source),
		Quantity: payload.Quantity,
		Unit:     models.NormalizeUnit(payload.Unit),
		Price:    payload.Price,
		Category: strings.TrimSpace(payload.Category),
	}
	if err := db.WithContext(ctx).Create(&ingredient).Error; err != nil {
		logFailure(ctx, "create ingredient", err)
		return failed[models.Ingredient](fmt.Errorf("create ingredient: %w", err))
	}

	applog.Debug(ctx, "ingredient created", "id", ingredient.ID, "name", ingredient.Name)
	r.store.publish(Event{Kind: KindIngredient, Action: ActionCreated, ID: ingredient.ID})
	return ok(ingredient), nil
}

// Update applies a partial update. Dishes already using the ingredient keep
// their stored costs.
func (r *IngredientRepository) Update(ctx context.Context, id uint, patch models.IngredientPatch) (Result[models.Ingredient], error) {
	if err := patch.Validate(); err != nil {
		return failed[models.Ingredient](err)
	}
	db, err := r.store.handle()
	if err != nil {
		return failed[models.Ingredient](err)
	}

	var ingredient models.Ingredient
	if err := db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		err = translate(err)
		logFailure(ctx, "load ingredient for update", err, "id", id)
		return failed[models.Ingredient](err)
	}

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Source != nil {
		updates["source"] = strings.TrimSpace(*patch.Source)
	}
	if patch.Quantity != nil {
		updates["quantity"] = *patch.Quantity
	}
	if patch.Unit != nil {
		updates["unit"] = models.NormalizeUnit(*patch.Unit)
	}
	if patch.Price != nil {
		updates["price"] = *patch.Price
	}
	if patch.Category != nil {
		updates["category"] = strings.TrimSpace(*patch.Category)
	}

	if len(updates) > 0 {
		if err := db.WithContext(ctx).Model(&ingredient).Updates(updates).Error; err != nil {
			logFailure(ctx, "update ingredient", err, "id", id)
			return failed[models.Ingredient](fmt.Errorf("update ingredient: %w", err))
		}
	}
	if err := db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		err = translate(err)
		logFailure(ctx, "reload ingredient", err, "id", id)
		return failed[models.Ingredient](err)
	}

	applog.Debug(ctx, "ingredient updated", "id", id, "fields", len(updates))
	r.store.publish(Event{Kind: KindIngredient, Action: ActionUpdated, ID: id})
	return ok(ingredient), nil
}

// Delete removes an ingredient that no dish uses.
func (r *IngredientRepository) Delete(ctx context.Context, id uint) (Result[struct{}], error) {
	db, err := r.store.handle()
	if err != nil {
		return failed[struct{}](err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var uses int64
		if err := tx.Model(&models.DishComponent{}).Where("ingredient_id = ?", id).Count(&uses).Error; err != nil {
			return err
		}
		if uses > 0 {
			return models.Invalid("ingredient", fmt.Sprintf("is used by %d dish component(s)", uses))
		}
		result := tx.Delete(&models.Ingredient{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		logFailure(ctx, "delete ingredient", err, "id", id)
		return failed[struct{}](err)
	}

	applog.Debug(ctx, "ingredient deleted", "id", id)
	r.store.publish(Event{Kind: KindIngredient, Action: ActionDeleted, ID: id})
	return ok(struct{}{}), nil
}

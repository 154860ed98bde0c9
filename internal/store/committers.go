package store

import (
	"context"
	"strings"

	"platecost/internal/builder"
	"platecost/models"
)

// DishCommitter persists dish builder drafts. Line costs computed while
// staging are stored as-is, so the stored total equals the staged total.
func DishCommitter(s *Store) builder.Committer[models.Ingredient] {
	return builder.CommitFunc[models.Ingredient](func(ctx context.Context, draft builder.Draft[models.Ingredient]) (uint, error) {
		components := make([]models.DishComponentPayload, 0, len(draft.Lines))
		staged := make(map[uint]float64, len(draft.Lines))
		for _, line := range draft.Lines {
			components = append(components, models.DishComponentPayload{
				IngredientID: line.CandidateID,
				UsedQuantity: line.Quantity,
			})
			staged[line.CandidateID] = line.Cost
		}

		if draft.TargetID == 0 {
			payload := models.DishPayload{
				Name:        draft.Name,
				Category:    draft.Category,
				Description: draft.Description,
				Components:  components,
			}
			if err := payload.Validate(); err != nil {
				return 0, err
			}
			dish := models.Dish{
				Name:        strings.TrimSpace(draft.Name),
				Category:    strings.TrimSpace(draft.Category),
				Description: strings.TrimSpace(draft.Description),
			}
			result, err := s.Dishes.create(ctx, dish, components, staged)
			if err != nil {
				return 0, err
			}
			return result.Data.ID, nil
		}

		patch := models.DishPatch{
			Name:        &draft.Name,
			Category:    &draft.Category,
			Description: &draft.Description,
			Components:  components,
		}
		if err := patch.Validate(); err != nil {
			return 0, err
		}
		result, err := s.Dishes.update(ctx, draft.TargetID, patch, staged)
		if err != nil {
			return 0, err
		}
		return result.Data.ID, nil
	})
}

// FoodCommitter persists completed food builder drafts.
func FoodCommitter(s *Store) builder.Committer[models.Dish] {
	return builder.CommitFunc[models.Dish](func(ctx context.Context, draft builder.Draft[models.Dish]) (uint, error) {
		components := make([]models.FoodComponentPayload, 0, len(draft.Lines))
		staged := make(map[uint]float64, len(draft.Lines))
		for _, line := range draft.Lines {
			components = append(components, models.FoodComponentPayload{
				DishID:        line.CandidateID,
				UsageQuantity: line.Quantity,
				UsageUnit:     line.Unit,
				Note:          line.Note,
			})
			staged[line.CandidateID] = line.Cost
		}

		if draft.TargetID == 0 {
			payload := models.FoodPayload{
				Name:        draft.Name,
				Description: draft.Description,
				Price:       draft.Price,
				Components:  components,
			}
			if err := payload.Validate(); err != nil {
				return 0, err
			}
			food := models.CompletedFood{
				Name:        strings.TrimSpace(draft.Name),
				Description: strings.TrimSpace(draft.Description),
				Price:       copyPrice(draft.Price),
			}
			result, err := s.Foods.create(ctx, food, components, staged)
			if err != nil {
				return 0, err
			}
			return result.Data.ID, nil
		}

		patch := models.FoodPatch{
			Name:        &draft.Name,
			Description: &draft.Description,
			Price:       draft.Price,
			ClearPrice:  draft.Price == nil,
			Components:  components,
		}
		if err := patch.Validate(); err != nil {
			return 0, err
		}
		result, err := s.Foods.update(ctx, draft.TargetID, patch, staged)
		if err != nil {
			return 0, err
		}
		return result.Data.ID, nil
	})
}

// LoadDish points b at an existing dish and restages its components at the
// ingredients' current unit prices.
func LoadDish(ctx context.Context, s *Store, b *builder.Builder[models.Ingredient], id uint) error {
	result, err := s.Dishes.Get(ctx, id)
	if err != nil {
		return err
	}
	dish := result.Data

	if err := b.Edit(dish.ID); err != nil {
		return err
	}
	for _, set := range []func() error{
		func() error { return b.SetName(dish.Name) },
		func() error { return b.SetDescription(dish.Description) },
		func() error { return b.SetCategory(dish.Category) },
	} {
		if err := set(); err != nil {
			return err
		}
	}
	for _, component := range dish.Components {
		if component.Ingredient == nil {
			continue
		}
		if err := b.AddComponent(*component.Ingredient, component.UsedQuantity, component.Ingredient.Unit, ""); err != nil {
			return err
		}
	}
	return nil
}

// LoadFood points b at an existing completed food and restages its dishes at
// their current stored totals.
func LoadFood(ctx context.Context, s *Store, b *builder.Builder[models.Dish], id uint) error {
	result, err := s.Foods.Get(ctx, id)
	if err != nil {
		return err
	}
	food := result.Data

	if err := b.Edit(food.ID); err != nil {
		return err
	}
	for _, set := range []func() error{
		func() error { return b.SetName(food.Name) },
		func() error { return b.SetDescription(food.Description) },
		func() error { return b.SetPrice(food.Price) },
	} {
		if err := set(); err != nil {
			return err
		}
	}
	for _, component := range food.Components {
		if component.Dish == nil {
			continue
		}
		if err := b.AddComponent(*component.Dish, component.UsageQuantity, component.UsageUnit, component.Note); err != nil {
			return err
		}
	}
	return nil
}

package models

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects a missing or invalid field before any cost is
// derived or any state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// ValidateQuantity rejects non-positive quantities.
func ValidateQuantity(field string, quantity float64) error {
	if quantity <= 0 {
		return Invalid(field, "must be greater than zero")
	}
	return nil
}

// ValidatePrice rejects negative prices.
func ValidatePrice(field string, price float64) error {
	if price < 0 {
		return Invalid(field, "must not be negative")
	}
	return nil
}

// ValidateUsage checks a dish usage inside a completed food. Ratios are a
// fraction of one dish batch and must lie in (0, 1].
func ValidateUsage(quantity float64, unit string) error {
	if err := ValidateQuantity("usage_quantity", quantity); err != nil {
		return err
	}
	if !ValidUsageUnit(unit) {
		return Invalid("usage_unit", "must be ratio or serving")
	}
	if NormalizeUsageUnit(unit) == UsageRatio && quantity > 1 {
		return Invalid("usage_quantity", "must not exceed 1 for ratio usage")
	}
	return nil
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return Invalid("name", "is required")
	}
	return nil
}

// IngredientPayload is the writable shape of an Ingredient.
type IngredientPayload struct {
	Name     string  `json:"name"`
	Source   string  `json:"source"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// Validate checks the payload.
func (p IngredientPayload) Validate() error {
	if err := requireName(p.Name); err != nil {
		return err
	}
	if err := ValidateQuantity("quantity", p.Quantity); err != nil {
		return err
	}
	return ValidatePrice("price", p.Price)
}

// IngredientPatch carries a partial ingredient update; nil fields are untouched.
type IngredientPatch struct {
	Name     *string  `json:"name"`
	Source   *string  `json:"source"`
	Quantity *float64 `json:"quantity"`
	Unit     *string  `json:"unit"`
	Price    *float64 `json:"price"`
	Category *string  `json:"category"`
}

// Validate checks the fields present in the patch.
func (p IngredientPatch) Validate() error {
	if p.Name != nil {
		if err := requireName(*p.Name); err != nil {
			return err
		}
	}
	if p.Quantity != nil {
		if err := ValidateQuantity("quantity", *p.Quantity); err != nil {
			return err
		}
	}
	if p.Price != nil {
		return ValidatePrice("price", *p.Price)
	}
	return nil
}

// DishComponentPayload references an ingredient and how much of it is used.
type DishComponentPayload struct {
	IngredientID uint    `json:"ingredient_id"`
	UsedQuantity float64 `json:"used_quantity"`
}

// DishPayload is the writable shape of a Dish. Costs are derived by the store.
type DishPayload struct {
	Name        string                 `json:"name"`
	Category    string                 `json:"category"`
	Description string                 `json:"description"`
	Components  []DishComponentPayload `json:"components"`
}

// Validate checks the payload.
func (p DishPayload) Validate() error {
	if err := requireName(p.Name); err != nil {
		return err
	}
	return validateDishComponents(p.Components)
}

// DishPatch carries a partial dish update. A non-nil Components replaces the
// whole component set and recomputes the stored total.
type DishPatch struct {
	Name        *string                `json:"name"`
	Category    *string                `json:"category"`
	Description *string                `json:"description"`
	Components  []DishComponentPayload `json:"components"`
}

// Validate checks the fields present in the patch.
func (p DishPatch) Validate() error {
	if p.Name != nil {
		if err := requireName(*p.Name); err != nil {
			return err
		}
	}
	return validateDishComponents(p.Components)
}

func validateDishComponents(components []DishComponentPayload) error {
	seen := make(map[uint]struct{}, len(components))
	for i, component := range components {
		if component.IngredientID == 0 {
			return Invalid(fmt.Sprintf("components[%d].ingredient_id", i), "is required")
		}
		if _, ok := seen[component.IngredientID]; ok {
			return Invalid(fmt.Sprintf("components[%d].ingredient_id", i), "is duplicated")
		}
		seen[component.IngredientID] = struct{}{}
		if err := ValidateQuantity(fmt.Sprintf("components[%d].used_quantity", i), component.UsedQuantity); err != nil {
			return err
		}
	}
	return nil
}

// FoodComponentPayload references a dish and how it is used.
type FoodComponentPayload struct {
	DishID        uint    `json:"dish_id"`
	UsageQuantity float64 `json:"usage_quantity"`
	UsageUnit     string  `json:"usage_unit"`
	Note          string  `json:"note"`
}

// FoodPayload is the writable shape of a CompletedFood.
type FoodPayload struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Price       *float64               `json:"price"`
	Components  []FoodComponentPayload `json:"components"`
}

// Validate checks the payload.
func (p FoodPayload) Validate() error {
	if err := requireName(p.Name); err != nil {
		return err
	}
	if p.Price != nil {
		if err := ValidatePrice("price", *p.Price); err != nil {
			return err
		}
	}
	return validateFoodComponents(p.Components)
}

// FoodPatch carries a partial completed food update. ClearPrice removes the
// selling price; a non-nil Components replaces the component set.
type FoodPatch struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Price       *float64               `json:"price"`
	ClearPrice  bool                   `json:"clear_price"`
	Components  []FoodComponentPayload `json:"components"`
}

// Validate checks the fields present in the patch.
func (p FoodPatch) Validate() error {
	if p.Name != nil {
		if err := requireName(*p.Name); err != nil {
			return err
		}
	}
	if p.Price != nil {
		if p.ClearPrice {
			return Invalid("price", "cannot be set and cleared at once")
		}
		if err := ValidatePrice("price", *p.Price); err != nil {
			return err
		}
	}
	return validateFoodComponents(p.Components)
}

func validateFoodComponents(components []FoodComponentPayload) error {
	seen := make(map[uint]struct{}, len(components))
	for i, component := range components {
		if component.DishID == 0 {
			return Invalid(fmt.Sprintf("components[%d].dish_id", i), "is required")
		}
		if _, ok := seen[component.DishID]; ok {
			return Invalid(fmt.Sprintf("components[%d].dish_id", i), "is duplicated")
		}
		seen[component.DishID] = struct{}{}
		if err := ValidateUsage(component.UsageQuantity, component.UsageUnit); err != nil {
			var validation *ValidationError
			if errors.As(err, &validation) {
				return Invalid(fmt.Sprintf("components[%d].%s", i, validation.Field), validation.Reason)
			}
			return err
		}
	}
	return nil
}

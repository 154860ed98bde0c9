package builder

import (
	"strings"

	"platecost/internal/rollup"
	"platecost/models"
)

// Kind parameterizes a builder over what it stages and how a staged line costs.
type Kind[C any] struct {
	Name      string
	ID        func(C) uint
	Label     func(C) string
	BaseValue func(C) float64
	// LineUnit resolves the unit stored on a line from the requested one.
	LineUnit func(c C, unit string) string
	// ValidateLine checks a quantity and unit before any line is touched.
	ValidateLine func(quantity float64, unit string) error
}

// DishKind stages ingredients into a dish. A line costs unit price * quantity.
var DishKind = Kind[models.Ingredient]{
	Name:  "dish",
	ID:    func(i models.Ingredient) uint { return i.ID },
	Label: func(i models.Ingredient) string { return i.Name },
	BaseValue: func(i models.Ingredient) float64 {
		return i.UnitPrice()
	},
	LineUnit: func(i models.Ingredient, unit string) string {
		if strings.TrimSpace(unit) == "" {
			return models.NormalizeUnit(i.Unit)
		}
		return models.NormalizeUnit(unit)
	},
	ValidateLine: func(quantity float64, _ string) error {
		return models.ValidateQuantity("quantity", quantity)
	},
}

// FoodKind stages dishes into a completed food. A line costs dish total * quantity
// whichever usage unit is chosen.
var FoodKind = Kind[models.Dish]{
	Name:  "food",
	ID:    func(d models.Dish) uint { return d.ID },
	Label: func(d models.Dish) string { return d.Name },
	BaseValue: func(d models.Dish) float64 {
		return d.TotalCost
	},
	LineUnit: func(_ models.Dish, unit string) string {
		return models.NormalizeUsageUnit(unit)
	},
	ValidateLine: func(quantity float64, unit string) error {
		return models.ValidateUsage(quantity, unit)
	},
}

func (k Kind[C]) cost(baseValue, quantity float64) float64 {
	return rollup.ComponentCost(baseValue, quantity)
}

package models

import (
	"gorm.io/gorm"
)

// DishComponent records how much of one ingredient a dish uses and what that
// usage cost when it was added.
type DishComponent struct {
	gorm.Model
	DishID       uint        `gorm:"index;not null" json:"dish_id"`
	IngredientID uint        `gorm:"index;not null" json:"ingredient_id"`
	Ingredient   *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	UsedQuantity float64     `gorm:"not null" json:"used_quantity"`
	UsedCost     float64     `gorm:"not null;default:0" json:"used_cost"`
}

// ComponentCost satisfies rollup.Coster.
func (c DishComponent) ComponentCost() float64 {
	return c.UsedCost
}

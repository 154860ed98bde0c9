package models

import (
	"gorm.io/gorm"
)

// FoodComponent records a dish usage inside a completed food. Both usage units
// cost dish.TotalCost * UsageQuantity; they only differ in meaning.
type FoodComponent struct {
	gorm.Model
	CompletedFoodID uint    `gorm:"index;not null" json:"completed_food_id"`
	DishID          uint    `gorm:"index;not null" json:"dish_id"`
	Dish            *Dish   `gorm:"foreignKey:DishID" json:"dish,omitempty"`
	UsageQuantity   float64 `gorm:"not null" json:"usage_quantity"`
	UsageUnit       string  `gorm:"type:varchar(16);not null;default:serving" json:"usage_unit"`
	Note            string  `gorm:"type:text" json:"note"`
	UsageCost       float64 `gorm:"not null;default:0" json:"usage_cost"`
}

// ComponentCost satisfies rollup.Coster.
func (c FoodComponent) ComponentCost() float64 {
	return c.UsageCost
}

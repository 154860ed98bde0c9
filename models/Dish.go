package models

import (
	"gorm.io/gorm"
)

// Dish is an intermediate product assembled from ingredients. TotalCost is a
// snapshot taken when the component set was last written; later ingredient
// price changes do not move it.
type Dish struct {
	gorm.Model
	Name        string          `gorm:"index;not null" json:"name"`
	Category    string          `gorm:"index" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	TotalCost   float64         `gorm:"not null;default:0" json:"total_cost"`
	Components  []DishComponent `gorm:"foreignKey:DishID" json:"components"`
}

package models

import (
	"gorm.io/gorm"
)

// CompletedFood is a sellable product assembled from dishes. Price is optional;
// an unpriced food classifies as "unset".
type CompletedFood struct {
	gorm.Model
	Name        string          `gorm:"index;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       *float64        `json:"price,omitempty"`
	TotalCost   float64         `gorm:"not null;default:0" json:"total_cost"`
	Components  []FoodComponent `gorm:"foreignKey:CompletedFoodID" json:"components"`
}

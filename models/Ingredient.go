package models

import (
	"gorm.io/gorm"

	"platecost/internal/rollup"
)

// Ingredient is a purchasable component: a price paid for a quantity of some unit
// at a given source.
type Ingredient struct {
	gorm.Model
	Name     string  `gorm:"index;not null" json:"name"`
	Source   string  `gorm:"index" json:"source"`
	Quantity float64 `gorm:"not null" json:"quantity"`
	Unit     string  `gorm:"not null" json:"unit"`
	Price    float64 `gorm:"not null" json:"price"`
	Category string  `gorm:"index" json:"category"`
}

// UnitPrice is the derived price per purchased unit. It is never persisted.
func (i Ingredient) UnitPrice() float64 {
	return rollup.UnitPrice(i.Price, i.Quantity)
}

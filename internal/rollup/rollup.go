// Package rollup derives unit prices and composite costs for ingredients,
// dishes and completed foods. Every function is pure.
package rollup

// Coster is implemented by anything that contributes a cost to a parent
// composite (dish components, food components, staged builder lines).
type Coster interface {
	ComponentCost() float64
}

// UnitPrice returns price/quantity, or 0 when quantity is not positive so
// derived values stay finite.
func UnitPrice(price, quantity float64) float64 {
	if quantity <= 0 {
		return 0
	}
	return price / quantity
}

// ComponentCost returns the cost contribution of usedQuantity units of a
// component whose base value is baseUnitValue. For ingredients the base value
// is the unit price; for dishes it is the dish's total cost.
func ComponentCost(baseUnitValue, usedQuantity float64) float64 {
	return baseUnitValue * usedQuantity
}

// TotalCost sums the cost of every component. An empty set costs 0.
func TotalCost[T Coster](components []T) float64 {
	total := 0.0
	for _, component := range components {
		total += component.ComponentCost()
	}
	return total
}

// Sum is TotalCost over bare cost values.
func Sum(costs ...float64) float64 {
	total := 0.0
	for _, cost := range costs {
		total += cost
	}
	return total
}

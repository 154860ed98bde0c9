package models

import "strings"

// Usage units for dishes inside a completed food.
const (
	UsageRatio   = "ratio"
	UsageServing = "serving"
)

// DefaultUnit is applied to ingredients entered without a unit.
const DefaultUnit = "g"

var unitKinds = map[string]string{
	"g":      "weight",
	"kg":     "weight",
	"mg":     "weight",
	"lb":     "weight",
	"oz":     "weight",
	"ml":     "volume",
	"l":      "volume",
	"cup":    "volume",
	"tbsp":   "volume",
	"tsp":    "volume",
	"piece":  "count",
	"pieces": "count",
	"pcs":    "count",
	"pc":     "count",
	"ea":     "count",
	"each":   "count",
	"pack":   "count",
	"can":    "count",
	"bottle": "count",
	"dozen":  "count",
	"slice":  "count",
}

// NormalizeUnit trims and lowercases a unit label, defaulting to grams.
func NormalizeUnit(unit string) string {
	normalized := strings.ToLower(strings.TrimSpace(unit))
	if normalized == "" {
		return DefaultUnit
	}
	return normalized
}

// UnitKind reports "weight", "volume" or "count" for known units and "" otherwise.
func UnitKind(unit string) string {
	return unitKinds[NormalizeUnit(unit)]
}

// IsCountUnit reports whether the unit counts discrete items rather than
// measuring weight or volume.
func IsCountUnit(unit string) bool {
	return UnitKind(unit) == "count"
}

// NormalizeUsageUnit canonicalises a usage unit. Blank input means serving.
func NormalizeUsageUnit(unit string) string {
	normalized := strings.ToLower(strings.TrimSpace(unit))
	if normalized == "" {
		return UsageServing
	}
	return normalized
}

// ValidUsageUnit reports whether unit is ratio or serving.
func ValidUsageUnit(unit string) bool {
	switch NormalizeUsageUnit(unit) {
	case UsageRatio, UsageServing:
		return true
	default:
		return false
	}
}

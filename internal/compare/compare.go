// Package compare ranks purchase offers for the same ingredient by price per
// normalized unit, so offers priced per piece can be weighed against offers
// priced per gram.
package compare

import (
	"fmt"
	"sort"
	"strings"

	"platecost/internal/rollup"
	"platecost/models"
)

// Mode selects the output ordering.
type Mode string

const (
	// ModeOriginal keeps candidates in input order.
	ModeOriginal Mode = "original"
	// ModeLowest orders candidates by ascending effective price.
	ModeLowest Mode = "lowest"
)

// ParseMode resolves a mode name. Blank input means ModeOriginal.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ModeOriginal):
		return ModeOriginal, nil
	case string(ModeLowest), "lowest_price", "cheapest":
		return ModeLowest, nil
	default:
		return "", models.Invalid("mode", fmt.Sprintf("unknown compare mode %q", value))
	}
}

// Options control normalization and ordering.
type Options struct {
	// NormalizeCount converts count-unit quantities to weight equivalents.
	NormalizeCount bool
	// ConversionFactor is the weight equivalent of one count unit, e.g. grams
	// per piece. It only applies when positive.
	ConversionFactor float64
	Mode             Mode
}

// Candidate is an ingredient offer annotated for comparison.
type Candidate struct {
	Ingredient         models.Ingredient `json:"ingredient"`
	NormalizedQuantity float64           `json:"normalized_quantity"`
	Normalized         bool              `json:"normalized"`
	EffectivePrice     float64           `json:"effective_price"`
	// Comparable is false when the normalized quantity is not positive; such
	// candidates never win best value.
	Comparable  bool `json:"comparable"`
	IsBestValue bool `json:"is_best_value"`
	// Position is the candidate's index in the input.
	Position int `json:"position"`
}

// NormalizedQuantity returns the quantity used for comparison.
func NormalizedQuantity(ingredient models.Ingredient, opts Options) (float64, bool) {
	if opts.NormalizeCount && opts.ConversionFactor > 0 && models.IsCountUnit(ingredient.Unit) {
		return ingredient.Quantity * opts.ConversionFactor, true
	}
	return ingredient.Quantity, false
}

// Rank annotates every ingredient with its effective price and flags the
// cheapest comparable one. Ties keep input order, so the earliest offer wins.
// When ranked (ModeLowest or count normalization), comparable candidates come
// first by ascending effective price and incomparable ones follow in input order.
func Rank(ingredients []models.Ingredient, opts Options) []Candidate {
	candidates := make([]Candidate, 0, len(ingredients))
	best := -1
	for i, ingredient := range ingredients {
		quantity, normalized := NormalizedQuantity(ingredient, opts)
		candidate := Candidate{
			Ingredient:         ingredient,
			NormalizedQuantity: quantity,
			Normalized:         normalized,
			EffectivePrice:     rollup.UnitPrice(ingredient.Price, quantity),
			Comparable:         quantity > 0,
			Position:           i,
		}
		if candidate.Comparable && (best < 0 || candidate.EffectivePrice < candidates[best].EffectivePrice) {
			best = i
		}
		candidates = append(candidates, candidate)
	}

	if best >= 0 {
		candidates[best].IsBestValue = true
	}

	if opts.Ranked() {
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if a.Comparable != b.Comparable {
				return a.Comparable
			}
			if !a.Comparable {
				return false
			}
			return a.EffectivePrice < b.EffectivePrice
		})
	}

	return candidates
}

// Ranked reports whether Rank orders candidates by effective price. Requesting
// count normalization always ranks, whatever the mode.
func (o Options) Ranked() bool {
	return o.NormalizeCount || o.Mode == ModeLowest
}

// Best returns the best-value candidate, if any candidate was comparable.
func Best(candidates []Candidate) (Candidate, bool) {
	for _, candidate := range candidates {
		if candidate.IsBestValue {
			return candidate, true
		}
	}
	return Candidate{}, false
}

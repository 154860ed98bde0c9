package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"platecost/internal/compare"
	"platecost/internal/profit"
	"platecost/models"
)

type compareCandidateResponse struct {
	compare.Candidate
	UnitPrice           float64 `json:"unit_price"`
	EffectivePriceLabel string  `json:"effective_price_label"`
}

type compareResponse struct {
	Name             string                     `json:"name"`
	Mode             compare.Mode               `json:"mode"`
	Normalize        bool                       `json:"normalize"`
	ConversionFactor float64                    `json:"grams_per_unit"`
	Candidates       []compareCandidateResponse `json:"candidates"`
	BestValueID      uint                       `json:"best_value_id,omitempty"`
}

// Compare ranks every offer for one ingredient name by effective price.
//
//	GET /app/api/compare?name=eggs&normalize=true&grams_per_unit=50
//
// Normalized requests always come back ranked; mode=lowest ranks without
// normalizing.
func Compare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireStore(w, r, "compare") {
		return
	}

	query := r.URL.Query()
	mode, err := compare.ParseMode(query.Get("mode"))
	if err != nil {
		writeError(w, r, err, "compare ingredients")
		return
	}

	normalize := false
	if raw := strings.TrimSpace(query.Get("normalize")); raw != "" {
		normalize, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, models.Invalid("normalize", "must be a boolean"), "compare ingredients")
			return
		}
	}

	factor := gramsPerPiece
	if raw := strings.TrimSpace(query.Get("grams_per_unit")); raw != "" {
		factor, err = strconv.ParseFloat(raw, 64)
		if err != nil || factor <= 0 {
			writeError(w, r, models.Invalid("grams_per_unit", "must be a positive number"), "compare ingredients")
			return
		}
	}

	name := query.Get("name")
	ingredients, err := repository.Ingredients.Search(r.Context(), name, query.Get("sort"), query.Get("order"))
	if err != nil {
		writeError(w, r, err, "compare ingredients")
		return
	}

	opts := compare.Options{
		NormalizeCount:   normalize,
		ConversionFactor: factor,
		Mode:             mode,
	}
	if opts.Ranked() {
		mode = compare.ModeLowest
	}
	candidates := compare.Rank(ingredients, opts)

	response := compareResponse{
		Name:             strings.TrimSpace(name),
		Mode:             mode,
		Normalize:        normalize,
		ConversionFactor: factor,
		Candidates:       make([]compareCandidateResponse, 0, len(candidates)),
	}
	for _, candidate := range candidates {
		response.Candidates = append(response.Candidates, compareCandidateResponse{
			Candidate:           candidate,
			UnitPrice:           candidate.Ingredient.UnitPrice(),
			EffectivePriceLabel: profit.FormatMoney(candidate.EffectivePrice),
		})
	}
	if best, ok := compare.Best(candidates); ok {
		response.BestValueID = best.Ingredient.ID
	}
	writeData(w, http.StatusOK, response)
}

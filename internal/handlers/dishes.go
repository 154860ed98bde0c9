package handlers

import (
	"net/http"
	"time"

	applog "platecost/internal/log"
	"platecost/internal/profit"
	"platecost/models"
)

type dishComponentResponse struct {
	ID             uint    `json:"id"`
	IngredientID   uint    `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	Source         string  `json:"source"`
	Unit           string  `json:"unit"`
	UsedQuantity   float64 `json:"used_quantity"`
	UsedCost       float64 `json:"used_cost"`
}

type dishResponse struct {
	ID             uint                    `json:"id"`
	Name           string                  `json:"name"`
	Category       string                  `json:"category"`
	Description    string                  `json:"description"`
	TotalCost      float64                 `json:"total_cost"`
	TotalCostLabel string                  `json:"total_cost_label"`
	Components     []dishComponentResponse `json:"components"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// DishResource handles dish CRUD and /app/api/dishes/{id}/staleness.
func DishResource(w http.ResponseWriter, r *http.Request) {
	if !requireStore(w, r, "dishes") {
		return
	}

	segments := splitPath(r.URL.Path, "/app/api/dishes")
	if len(segments) == 0 {
		switch r.Method {
		case http.MethodGet:
			listDishes(w, r)
		case http.MethodPost:
			createDish(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id, ok := parseID(segments[0])
	if !ok || len(segments) > 2 {
		applog.Debug(r.Context(), "invalid dish path", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	if len(segments) == 2 {
		if segments[1] != "staleness" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		showDishStaleness(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showDish(w, r, id)
	case http.MethodPut, http.MethodPatch:
		updateDish(w, r, id)
	case http.MethodDelete:
		deleteDish(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listDishes(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeError(w, r, err, "list dishes")
		return
	}
	result, err := repository.Dishes.List(r.Context(), params)
	if err != nil {
		writeError(w, r, err, "list dishes")
		return
	}

	responses := make([]dishResponse, 0, len(result.Data))
	for _, dish := range result.Data {
		responses = append(responses, projectDish(dish))
	}
	writeData(w, http.StatusOK, responses)
}

func showDish(w http.ResponseWriter, r *http.Request, id uint) {
	result, err := repository.Dishes.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "load dish")
		return
	}
	writeData(w, http.StatusOK, projectDish(result.Data))
}

func showDishStaleness(w http.ResponseWriter, r *http.Request, id uint) {
	result, err := repository.Dishes.Staleness(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "check dish staleness")
		return
	}
	writeData(w, http.StatusOK, result.Data)
}

func createDish(w http.ResponseWriter, r *http.Request) {
	var payload models.DishPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "create dish")
		return
	}
	result, err := repository.Dishes.Create(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "create dish")
		return
	}
	writeData(w, http.StatusCreated, projectDish(result.Data))
}

func updateDish(w http.ResponseWriter, r *http.Request, id uint) {
	var patch models.DishPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err, "update dish")
		return
	}
	result, err := repository.Dishes.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err, "update dish")
		return
	}
	writeData(w, http.StatusOK, projectDish(result.Data))
}

func deleteDish(w http.ResponseWriter, r *http.Request, id uint) {
	if _, err := repository.Dishes.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, "delete dish")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func projectDish(dish models.Dish) dishResponse {
	components := make([]dishComponentResponse, 0, len(dish.Components))
	for _, component := range dish.Components {
		item := dishComponentResponse{
			ID:           component.ID,
			IngredientID: component.IngredientID,
			UsedQuantity: component.UsedQuantity,
			UsedCost:     component.UsedCost,
		}
		if component.Ingredient != nil {
			item.IngredientName = component.Ingredient.Name
			item.Source = component.Ingredient.Source
			item.Unit = component.Ingredient.Unit
		}
		components = append(components, item)
	}

	return dishResponse{
		ID:             dish.ID,
		Name:           dish.Name,
		Category:       dish.Category,
		Description:    dish.Description,
		TotalCost:      dish.TotalCost,
		TotalCostLabel: profit.FormatMoney(dish.TotalCost),
		Components:     components,
		CreatedAt:      dish.CreatedAt,
		UpdatedAt:      dish.UpdatedAt,
	}
}

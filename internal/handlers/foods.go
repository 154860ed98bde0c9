package handlers

import (
	"net/http"
	"time"

	applog "platecost/internal/log"
	"platecost/internal/profit"
	"platecost/models"
)

type foodComponentResponse struct {
	ID            uint    `json:"id"`
	DishID        uint    `json:"dish_id"`
	DishName      string  `json:"dish_name"`
	UsageQuantity float64 `json:"usage_quantity"`
	UsageUnit     string  `json:"usage_unit"`
	Note          string  `json:"note,omitempty"`
	UsageCost     float64 `json:"usage_cost"`
}

type foodResponse struct {
	ID             uint                    `json:"id"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description"`
	Price          *float64                `json:"price"`
	TotalCost      float64                 `json:"total_cost"`
	TotalCostLabel string                  `json:"total_cost_label"`
	Profit         profit.Result           `json:"profit"`
	ProfitLabel    string                  `json:"profit_label"`
	RateLabel      string                  `json:"profit_rate_label"`
	Components     []foodComponentResponse `json:"components"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// FoodResource handles completed food CRUD.
func FoodResource(w http.ResponseWriter, r *http.Request) {
	if !requireStore(w, r, "foods") {
		return
	}

	segments := splitPath(r.URL.Path, "/app/api/foods")
	if len(segments) == 0 {
		switch r.Method {
		case http.MethodGet:
			listFoods(w, r)
		case http.MethodPost:
			createFood(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id, ok := parseID(segments[0])
	if !ok || len(segments) > 1 {
		applog.Debug(r.Context(), "invalid food path", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showFood(w, r, id)
	case http.MethodPut, http.MethodPatch:
		updateFood(w, r, id)
	case http.MethodDelete:
		deleteFood(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listFoods(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeError(w, r, err, "list foods")
		return
	}
	result, err := repository.Foods.List(r.Context(), params)
	if err != nil {
		writeError(w, r, err, "list foods")
		return
	}

	responses := make([]foodResponse, 0, len(result.Data))
	for _, food := range result.Data {
		responses = append(responses, projectFood(food))
	}
	writeData(w, http.StatusOK, responses)
}

func showFood(w http.ResponseWriter, r *http.Request, id uint) {
	result, err := repository.Foods.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "load food")
		return
	}
	writeData(w, http.StatusOK, projectFood(result.Data))
}

func createFood(w http.ResponseWriter, r *http.Request) {
	var payload models.FoodPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "create food")
		return
	}
	result, err := repository.Foods.Create(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "create food")
		return
	}
	writeData(w, http.StatusCreated, projectFood(result.Data))
}

func updateFood(w http.ResponseWriter, r *http.Request, id uint) {
	var patch models.FoodPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err, "update food")
		return
	}
	result, err := repository.Foods.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err, "update food")
		return
	}
	writeData(w, http.StatusOK, projectFood(result.Data))
}

func deleteFood(w http.ResponseWriter, r *http.Request, id uint) {
	if _, err := repository.Foods.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, "delete food")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func projectFood(food models.CompletedFood) foodResponse {
	components := make([]foodComponentResponse, 0, len(food.Components))
	for _, component := range food.Components {
		item := foodComponentResponse{
			ID:            component.ID,
			DishID:        component.DishID,
			UsageQuantity: component.UsageQuantity,
			UsageUnit:     component.UsageUnit,
			Note:          component.Note,
			UsageCost:     component.UsageCost,
		}
		if component.Dish != nil {
			item.DishName = component.Dish.Name
		}
		components = append(components, item)
	}

	classification := profit.Classify(food.Price, food.TotalCost)
	return foodResponse{
		ID:             food.ID,
		Name:           food.Name,
		Description:    food.Description,
		Price:          food.Price,
		TotalCost:      food.TotalCost,
		TotalCostLabel: profit.FormatMoney(food.TotalCost),
		Profit:         classification,
		ProfitLabel:    classification.ProfitLabel(),
		RateLabel:      classification.RateLabel(),
		Components:     components,
		CreatedAt:      food.CreatedAt,
		UpdatedAt:      food.UpdatedAt,
	}
}

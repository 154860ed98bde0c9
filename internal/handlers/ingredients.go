package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	applog "platecost/internal/log"
	"platecost/internal/pricesheet"
	"platecost/internal/profit"
	"platecost/models"
)

const maxPriceSheetSize = 10 << 20

type ingredientResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Source         string    `json:"source"`
	Quantity       float64   `json:"quantity"`
	Unit           string    `json:"unit"`
	Price          float64   `json:"price"`
	Category       string    `json:"category"`
	UnitPrice      float64   `json:"unit_price"`
	UnitPriceLabel string    `json:"unit_price_label"`
	CountUnit      bool      `json:"count_unit"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IngredientResource handles list/get/create/update/delete for ingredients and
// price-sheet uploads at /app/api/ingredients/import.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if !requireStore(w, r, "ingredients") {
		return
	}

	segments := splitPath(r.URL.Path, "/app/api/ingredients")
	if len(segments) == 0 {
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r)
		case http.MethodPost:
			createIngredient(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if segments[0] == "import" && len(segments) == 1 {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		importPriceSheet(w, r)
		return
	}

	id, ok := parseID(segments[0])
	if !ok || len(segments) > 1 {
		applog.Debug(r.Context(), "invalid ingredient path", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showIngredient(w, r, id)
	case http.MethodPut, http.MethodPatch:
		updateIngredient(w, r, id)
	case http.MethodDelete:
		deleteIngredient(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeError(w, r, err, "list ingredients")
		return
	}
	result, err := repository.Ingredients.List(r.Context(), params)
	if err != nil {
		writeError(w, r, err, "list ingredients")
		return
	}

	responses := make([]ingredientResponse, 0, len(result.Data))
	for _, ingredient := range result.Data {
		responses = append(responses, projectIngredient(ingredient))
	}
	writeData(w, http.StatusOK, responses)
}

func showIngredient(w http.ResponseWriter, r *http.Request, id uint) {
	result, err := repository.Ingredients.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "load ingredient")
		return
	}
	writeData(w, http.StatusOK, projectIngredient(result.Data))
}

func createIngredient(w http.ResponseWriter, r *http.Request) {
	var payload models.IngredientPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "create ingredient")
		return
	}
	result, err := repository.Ingredients.Create(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "create ingredient")
		return
	}
	writeData(w, http.StatusCreated, projectIngredient(result.Data))
}

func updateIngredient(w http.ResponseWriter, r *http.Request, id uint) {
	var patch models.IngredientPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err, "update ingredient")
		return
	}
	result, err := repository.Ingredients.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err, "update ingredient")
		return
	}
	writeData(w, http.StatusOK, projectIngredient(result.Data))
}

func deleteIngredient(w http.ResponseWriter, r *http.Request, id uint) {
	if _, err := repository.Ingredients.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, "delete ingredient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func importPriceSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxPriceSheetSize); err != nil {
		applog.Debug(ctx, "failed to parse price sheet form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "upload a price sheet as multipart field \"file\"")
		return
	}

	name, data, err := readPriceSheetUpload(r)
	if err != nil {
		applog.Debug(ctx, "price sheet upload read failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, rowErrs, err := pricesheet.Parse(name, data)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unable to read %s: %v", name, err))
		return
	}

	summary, err := pricesheet.Import(ctx, repository, rows)
	if err != nil {
		writeError(w, r, err, "import price sheet")
		return
	}
	summary.Errors = append(rowErrs, summary.Errors...)
	writeData(w, http.StatusOK, summary)
}

func readPriceSheetUpload(r *http.Request) (string, []byte, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, errors.New("file is required")
		}
		return "", nil, err
	}
	defer file.Close()

	if header.Size > maxPriceSheetSize {
		return "", nil, fmt.Errorf("file exceeds %d bytes", maxPriceSheetSize)
	}

	buf := bytes.NewBuffer(make([]byte, 0, header.Size))
	if _, err := io.Copy(buf, file); err != nil {
		return "", nil, err
	}
	return header.Filename, buf.Bytes(), nil
}

func projectIngredient(ingredient models.Ingredient) ingredientResponse {
	unitPrice := ingredient.UnitPrice()
	return ingredientResponse{
		ID:             ingredient.ID,
		Name:           ingredient.Name,
		Source:         ingredient.Source,
		Quantity:       ingredient.Quantity,
		Unit:           ingredient.Unit,
		Price:          ingredient.Price,
		Category:       ingredient.Category,
		UnitPrice:      unitPrice,
		UnitPriceLabel: profit.FormatMoney(unitPrice),
		CountUnit:      models.IsCountUnit(ingredient.Unit),
		CreatedAt:      ingredient.CreatedAt,
		UpdatedAt:      ingredient.UpdatedAt,
	}
}

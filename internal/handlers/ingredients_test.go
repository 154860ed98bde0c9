package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"platecost/internal/pricesheet"
	"platecost/models"
)

func uploadSheet(t *testing.T, field, name, content string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/app/api/ingredients/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	IngredientResource(w, req)
	return w
}

func TestImportPriceSheetUpsertsIngredients(t *testing.T) {
	s, cleanup := withTestStore(t)
	t.Cleanup(cleanup)

	if _, err := s.Ingredients.Create(context.Background(), models.IngredientPayload{Name: "Sugar", Source: "Mill", Quantity: 1000, Unit: "g", Price: 800}); err != nil {
		t.Fatalf("failed to seed sugar: %v", err)
	}

	sheet := "Name,Source,Quantity,Unit,Price\n" +
		"sugar,mill,1000,g,900\n" +
		"Honey,Apiary,500,g,1250\n" +
		"Salt,Mine,abc,g,10\n"

	w := uploadSheet(t, "file", "prices.csv", sheet)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	summary := decodeData[pricesheet.Summary](t, w)
	if summary.Created != 1 || summary.Updated != 1 {
		t.Fatalf("expected 1 created and 1 updated, got %+v", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].Line != 4 {
		t.Fatalf("expected one error on line 4, got %+v", summary.Errors)
	}

	sugar, err := s.Ingredients.Lookup(context.Background(), "Sugar", "Mill")
	if err != nil {
		t.Fatalf("failed to look up sugar: %v", err)
	}
	if sugar.Price != 900 {
		t.Fatalf("expected sugar price 900, got %v", sugar.Price)
	}
}

func TestImportPriceSheetRejectsBadUploads(t *testing.T) {
	_, cleanup := withTestStore(t)
	t.Cleanup(cleanup)

	if w := uploadSheet(t, "sheet", "prices.csv", "Name,Quantity,Price\n"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing file field, got %d", w.Code)
	}
	if w := uploadSheet(t, "file", "prices.csv", "Name,Unit\nSalt,g\n"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing columns, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/app/api/ingredients/import", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	IngredientResource(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for non-multipart body, got %d", w.Code)
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"platecost/internal/builder"
	"platecost/internal/compare"
	"platecost/internal/store"
	"platecost/models"
)

func withTestSessionManager(t *testing.T) (*scs.SessionManager, func()) {
	t.Helper()
	original := sessionManager
	sm := scs.New()
	sessionManager = sm
	return sm, func() {
		sessionManager = original
	}
}

func withTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	original := repository
	originalBuilders := builders

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Ingredient{}, &models.Dish{}, &models.DishComponent{}, &models.CompletedFood{}, &models.FoodComponent{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	s := store.New(db)
	repository = s
	builders = newBuilderRegistry()
	return s, func() {
		repository = original
		builders = originalBuilders
		sqlDB.Close()
	}
}

// sessionContext loads an empty session so several requests can share it.
func sessionContext(t *testing.T, sm *scs.SessionManager) context.Context {
	t.Helper()
	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("failed to load session context: %v", err)
	}
	return ctx
}

func doRequest(t *testing.T, handler http.HandlerFunc, ctx context.Context, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

type testEnvelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env testEnvelope[T]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got %q", w.Body.String())
	}
	return env.Data
}

func seedPastry(t *testing.T, s *store.Store) (models.Ingredient, models.Ingredient) {
	t.Helper()
	ctx := context.Background()
	flour, err := s.Ingredients.Create(ctx, models.IngredientPayload{Name: "Flour", Source: "Mill", Quantity: 1000, Unit: "g", Price: 1000})
	if err != nil {
		t.Fatalf("failed to seed flour: %v", err)
	}
	butter, err := s.Ingredients.Create(ctx, models.IngredientPayload{Name: "Butter", Source: "Dairy", Quantity: 200, Unit: "g", Price: 300})
	if err != nil {
		t.Fatalf("failed to seed butter: %v", err)
	}
	return flour.Data, butter.Data
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.Invalid("name", "is required"), http.StatusBadRequest},
		{"duplicate", &builder.DuplicateComponentError{CandidateID: 1, Name: "Flour"}, http.StatusConflict},
		{"commit in progress", builder.ErrCommitInProgress, http.StatusConflict},
		{"not committable", builder.ErrNotCommittable, http.StatusBadRequest},
		{"index", builder.ErrIndexOutOfRange, http.StatusBadRequest},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"persistence wraps validation", &builder.PersistenceError{Kind: "dish", Err: models.Invalid("x", "y")}, http.StatusBadRequest},
		{"persistence wraps not found", &builder.PersistenceError{Kind: "dish", Err: store.ErrNotFound}, http.StatusNotFound},
		{"persistence wraps storage failure", &builder.PersistenceError{Kind: "dish", Err: errors.New("disk full")}, http.StatusBadGateway},
		{"persistence wraps invalid db", &builder.PersistenceError{Kind: "dish", Err: gorm.ErrInvalidDB}, http.StatusBadGateway},
		{"invalid db", gorm.ErrInvalidDB, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := statusFor(tt.err); got != tt.want {
				t.Fatalf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestResourcesWithoutStore(t *testing.T) {
	original := repository
	repository = nil
	t.Cleanup(func() { repository = original })

	for _, handler := range []http.HandlerFunc{IngredientResource, DishResource, FoodResource, Compare, BuilderResource} {
		w := doRequest(t, handler, nil, http.MethodGet, "/app/api/ingredients", nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status 503 without store, got %d", w.Code)
		}
	}
}

func TestIngredientResourceCRUD(t *testing.T) {
	_, cleanup := withTestStore(t)
	t.Cleanup(cleanup)

	w := doRequest(t, IngredientResource, nil, http.MethodPost, "/app/api/ingredients", map[string]any{
		"name": "Eggs", "source": "Farm", "quantity": 3, "unit": "Piece", "price": 300,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeData[ingredientResponse](t, w)
	if created.UnitPrice != 100 || created.Unit != "piece" || !created.CountUnit || created.UnitPriceLabel != "100.00" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	w = doRequest(t, IngredientResource, nil, http.MethodPut, fmt.Sprintf("/app/api/ingredients/%d", created.ID), map[string]any{"price": 360})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if updated := decodeData[ingredientResponse](t, w); updated.UnitPrice != 120 {
		t.Fatalf("expected unit price 120 after update, got %v", updated.UnitPrice)
	}

	w = doRequest(t, IngredientResource, nil, http.MethodGet, "/app/api/ingredients?q=egg&sort=unit_price", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if list := decodeData[[]ingredientResponse](t, w); len(list) != 1 || list[0].Name != "Eggs" {
		t.Fatalf("unexpected list response: %+v", list)
	}

	w = doRequest(t, IngredientResource, nil, http.MethodDelete, fmt.Sprintf("/app/api/ingredients/%d", created.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}

	w = doRequest(t, IngredientResource, nil, http.MethodGet, fmt.Sprintf("/app/api/ingredients/%d", created.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestIngredientResourceRejectsInvalidInput(t *testing.T) {
	_, cleanup := withTestStore(t)
	t.Cleanup(cleanup)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"zero quantity", http.MethodPost, "/app/api/ingredients", map[string]any{"name": "Salt", "quantity": 0, "price": 1}, http.StatusBadRequest},
		{"negative price", http.MethodPost, "/app/api/ingredients", map[string]any{"name": "Salt", "quantity": 1, "price": -1}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/app/api/ingredients", map[string]any{"name": "Salt", "quantity": 1, "colour": "white"}, http.StatusBadRequest},
		{"unknown sort", http.MethodGet, "/app/api/ingredients?sort=colour", nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/app/api/ingredients?limit=-1", nil, http.StatusBadRequest},
		{"bad order", http.MethodGet, "/app/api/ingredients?order=sideways", nil, http.StatusBadRequest},
		{"bad identifier", http.MethodGet, "/app/api/ingredients/abc", nil, http.StatusNotFound},
		{"missing", http.MethodGet, "/app/api/ingredients/999", nil, http.StatusNotFound},
		{"method", http.MethodPatch, "/app/api/ingredients", nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		w := doRequest(t, IngredientResource, nil, tt.method, tt.target, tt.body)
		if w.Code != tt.want {
			t.Fatalf("%s: expected status %d, got %d: %s", tt.name, tt.want, w.Code, w.Body.String())
		}
	}
}

func TestDishResourceSnapshotAndStaleness(t *testing.T) {
	s, cleanup := withTestStore(t)
	t.Cleanup(cleanup)
	flour, butter := seedPastry(t, s)

	w := doRequest(t, DishResource, nil, http.MethodPost, "/app/api/dishes", map[string]any{
		"name": "Shortcrust",
		"components": []map[string]any{
			{"ingredient_id": flour.ID, "used_quantity": 50},
			{"ingredient_id": butter.ID, "used_quantity": 50},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	dish := decodeData[dishResponse](t, w)
	if dish.TotalCost != 125 || len(dish.Components) != 2 || dish.Components[1].IngredientName != "Butter" {
		t.Fatalf("unexpected dish response: %+v", dish)
	}

	if _, err := s.Ingredients.Update(context.Background(), butter.ID, models.IngredientPatch{Price: ptr(400.0)}); err != nil {
		t.Fatalf("failed to update butter: %v", err)
	}

	w = doRequest(t, DishResource, nil, http.MethodGet, fmt.Sprintf("/app/api/dishes/%d", dish.ID), nil)
	if reloaded := decodeData[dishResponse](t, w); reloaded.TotalCost != 125 {
		t.Fatalf("expected stored total to stay 125, got %v", reloaded.TotalCost)
	}

	w = doRequest(t, DishResource, nil, http.MethodGet, fmt.Sprintf("/app/api/dishes/%d/staleness", dish.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	staleness := decodeData[store.Staleness](t, w)
	if !staleness.Stale || staleness.LiveTotal != 150 {
		t.Fatalf("unexpected staleness: %+v", staleness)
	}

	w = doRequest(t, IngredientResource, nil, http.MethodDelete, fmt.Sprintf("/app/api/ingredients/%d", flour.ID), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 deleting an ingredient in use, got %d", w.Code)
	}

	w = doRequest(t, DishResource, nil, http.MethodGet, fmt.Sprintf("/app/api/dishes/%d/unknown", dish.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown sub-resource, got %d", w.Code)
	}
}

func ptr(v float64) *float64 {
	return &v
}

func TestFoodResourceClassifiesProfit(t *testing.T) {
	s, cleanup := withTestStore(t)
	t.Cleanup(cleanup)
	flour, butter := seedPastry(t, s)

	dish, err := s.Dishes.Create(context.Background(), models.DishPayload{Name: "Shortcrust", Components: []models.DishComponentPayload{
		{IngredientID: flour.ID, UsedQuantity: 50},
		{IngredientID: butter.ID, UsedQuantity: 50},
	}})
	if err != nil {
		t.Fatalf("failed to create dish: %v", err)
	}

	tests := []struct {
		name       string
		price      any
		quantity   float64
		wantProfit float64
		wantRate   float64
		wantTier   string
		wantLabel  string
	}{
		{"excellent", 200, 1, 75, 37.5, "excellent", "75.00"},
		{"loss", 80, 0.8, -20, -25, "loss", "0.00"},
		{"unset", nil, 1, 0, 0, "unset", "-"},
	}

	for _, tt := range tests {
		body := map[string]any{
			"name":       tt.name,
			"components": []map[string]any{{"dish_id": dish.Data.ID, "usage_quantity": tt.quantity, "usage_unit": "ratio"}},
		}
		if tt.price != nil {
			body["price"] = tt.price
		}
		w := doRequest(t, FoodResource, nil, http.MethodPost, "/app/api/foods", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("%s: expected status 201, got %d: %s", tt.name, w.Code, w.Body.String())
		}
		food := decodeData[foodResponse](t, w)
		if food.Profit.Profit != tt.wantProfit || food.Profit.Rate != tt.wantRate || string(food.Profit.Tier) != tt.wantTier {
			t.Fatalf("%s: unexpected profit %+v", tt.name, food.Profit)
		}
		if food.ProfitLabel != tt.wantLabel {
			t.Fatalf("%s: expected profit label %q, got %q", tt.name, tt.wantLabel, food.ProfitLabel)
		}
	}

	w := doRequest(t, FoodResource, nil, http.MethodGet, "/app/api/foods?sort=profit_rate&order=desc", nil)
	list := decodeData[[]foodResponse](t, w)
	if len(list) != 3 || list[0].Name != "excellent" || list[2].Name != "loss" {
		t.Fatalf("unexpected order: %+v", list)
	}

	w = doRequest(t, FoodResource, nil, http.MethodPost, "/app/api/foods", map[string]any{
		"name":       "too much",
		"components": []map[string]any{{"dish_id": dish.Data.ID, "usage_quantity": 1.5, "usage_unit": "ratio"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for ratio above 1, got %d", w.Code)
	}
}

func candidatesOf(resp compareResponse) []compare.Candidate {
	out := make([]compare.Candidate, 0, len(resp.Candidates))
	for _, candidate := range resp.Candidates {
		out = append(out, candidate.Candidate)
	}
	return out
}

func TestCompareRanksCandidates(t *testing.T) {
	s, cleanup := withTestStore(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	for _, payload := range []models.IngredientPayload{
		{Name: "Eggs", Source: "Farm", Quantity: 3, Unit: "piece", Price: 300},
		{Name: "Eggs", Source: "Wholesale", Quantity: 100, Unit: "g", Price: 150},
		{Name: "Eggs", Source: "Market", Quantity: 6, Unit: "piece", Price: 600},
	} {
		if _, err := s.Ingredients.Create(ctx, payload); err != nil {
			t.Fatalf("failed to seed %s: %v", payload.Source, err)
		}
	}

	w := doRequest(t, Compare, nil, http.MethodGet, "/app/api/compare?name=eggs&normalize=true&grams_per_unit=50&mode=lowest", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeData[compareResponse](t, w)
	if len(result.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(result.Candidates))
	}
	first := result.Candidates[0]
	if first.Ingredient.Source != "Wholesale" || !first.IsBestValue || first.EffectivePrice != 1.5 {
		t.Fatalf("unexpected best candidate: %+v", first)
	}
	// Farm and Market tie at 2.0 per gram; input order decides.
	if result.Candidates[1].Ingredient.Source != "Farm" || result.Candidates[1].EffectivePrice != 2 || result.Candidates[1].UnitPrice != 100 {
		t.Fatalf("unexpected second candidate: %+v", result.Candidates[1])
	}
	if result.BestValueID != first.Ingredient.ID {
		t.Fatalf("expected best value id %d, got %d", first.Ingredient.ID, result.BestValueID)
	}

	w = doRequest(t, Compare, nil, http.MethodGet, "/app/api/compare?name=eggs&normalize=true&grams_per_unit=50", nil)
	normalized := decodeData[compareResponse](t, w)
	if normalized.Mode != compare.ModeLowest {
		t.Fatalf("expected normalized request to report mode lowest, got %q", normalized.Mode)
	}
	if got := normalized.Candidates[0]; got.Ingredient.Source != "Wholesale" || !got.IsBestValue {
		t.Fatalf("expected normalized request ranked by effective price, got first %+v", got)
	}

	w = doRequest(t, Compare, nil, http.MethodGet, "/app/api/compare?name=eggs", nil)
	plain := decodeData[compareResponse](t, w)
	if plain.Mode != compare.ModeOriginal || plain.Candidates[0].Ingredient.Source != "Farm" {
		t.Fatalf("expected input order without normalization, got mode %q first %s", plain.Mode, plain.Candidates[0].Ingredient.Source)
	}
	if best, _ := compare.Best(candidatesOf(plain)); best.Ingredient.Source != "Wholesale" {
		t.Fatalf("expected Wholesale as best value in input order, got %s", best.Ingredient.Source)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/app/api/compare?name=eggs&mode=fastest", http.StatusBadRequest},
		{"/app/api/compare?name=eggs&normalize=maybe", http.StatusBadRequest},
		{"/app/api/compare?name=eggs&grams_per_unit=0", http.StatusBadRequest},
		{"/app/api/compare", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := doRequest(t, Compare, nil, http.MethodGet, tt.target, nil); w.Code != tt.want {
			t.Fatalf("%s: expected status %d, got %d", tt.target, tt.want, w.Code)
		}
	}
}

func TestBuilderSessionFlow(t *testing.T) {
	s, cleanup := withTestStore(t)
	t.Cleanup(cleanup)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)
	flour, butter := seedPastry(t, s)

	ctx := sessionContext(t, sm)

	w := doRequest(t, BuilderResource, ctx, http.MethodPut, "/app/api/builders/dish", map[string]any{"name": "Shortcrust", "category": "pastry"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	for _, id := range []uint{flour.ID, butter.ID} {
		w = doRequest(t, BuilderResource, ctx, http.MethodPost, "/app/api/builders/dish/components", map[string]any{"candidate_id": id, "quantity": 50})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
		}
	}

	snapshot := decodeData[builder.Snapshot[models.Ingredient]](t, w)
	if snapshot.RunningTotal != 125 || snapshot.State != builder.StateStaging || !snapshot.CanCommit {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodPost, "/app/api/builders/dish/components", map[string]any{"candidate_id": flour.ID, "quantity": 10})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate, got %d", w.Code)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodPut, "/app/api/builders/dish/components/0", map[string]any{"quantity": 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for zero quantity, got %d", w.Code)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodDelete, "/app/api/builders/dish/components/5", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing index, got %d", w.Code)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodPost, "/app/api/builders/dish/commit", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	committed := decodeData[struct {
		ID      uint `json:"id"`
		Created bool `json:"created"`
	}](t, w)

	dish, err := s.Dishes.Get(context.Background(), committed.ID)
	if err != nil {
		t.Fatalf("failed to load committed dish: %v", err)
	}
	if dish.Data.TotalCost != 125 || dish.Data.Category != "pastry" {
		t.Fatalf("unexpected committed dish: %+v", dish.Data)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodGet, "/app/api/builders/dish", nil)
	if after := decodeData[builder.Snapshot[models.Ingredient]](t, w); after.State != builder.StateEmpty || after.LastCommittedID != committed.ID {
		t.Fatalf("unexpected snapshot after commit: %+v", after)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodPost, fmt.Sprintf("/app/api/builders/dish/edit/%d", committed.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for edit, got %d: %s", w.Code, w.Body.String())
	}
	if edit := decodeData[builder.Snapshot[models.Ingredient]](t, w); edit.TargetID != committed.ID || len(edit.Lines) != 2 {
		t.Fatalf("unexpected snapshot after edit: %+v", edit)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodPost, "/app/api/builders/food/components", map[string]any{"candidate_id": committed.ID, "quantity": 0.5, "unit": "ratio"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 staging a dish, got %d: %s", w.Code, w.Body.String())
	}
	if food := decodeData[builder.Snapshot[models.Dish]](t, w); food.RunningTotal != 62.5 {
		t.Fatalf("expected food running total 62.5, got %v", food.RunningTotal)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodPost, "/app/api/builders/food/commit", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 committing without a name, got %d", w.Code)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodDelete, "/app/api/builders/food", nil)
	if reset := decodeData[builder.Snapshot[models.Dish]](t, w); reset.State != builder.StateEmpty {
		t.Fatalf("expected empty food builder after reset, got %q", reset.State)
	}

	if builders.size() != 1 {
		t.Fatalf("expected one builder session, got %d", builders.size())
	}
}

func TestBuilderCommitAfterIngredientRemoved(t *testing.T) {
	s, cleanup := withTestStore(t)
	t.Cleanup(cleanup)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)
	flour, _ := seedPastry(t, s)

	ctx := sessionContext(t, sm)
	doRequest(t, BuilderResource, ctx, http.MethodPut, "/app/api/builders/dish", map[string]any{"name": "Flatbread"})
	w := doRequest(t, BuilderResource, ctx, http.MethodPost, "/app/api/builders/dish/components", map[string]any{"candidate_id": flour.ID, "quantity": 100})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	if _, err := s.Ingredients.Delete(context.Background(), flour.ID); err != nil {
		t.Fatalf("failed to delete flour: %v", err)
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodPost, "/app/api/builders/dish/commit", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 committing a removed ingredient, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, BuilderResource, ctx, http.MethodGet, "/app/api/builders/dish", nil)
	snapshot := decodeData[builder.Snapshot[models.Ingredient]](t, w)
	if snapshot.State != builder.StateStaging || len(snapshot.Lines) != 1 || snapshot.LastError == "" {
		t.Fatalf("expected staged line and error kept after rejected commit, got %+v", snapshot)
	}
}

func TestBuilderSessionsAreIsolated(t *testing.T) {
	s, cleanup := withTestStore(t)
	t.Cleanup(cleanup)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)
	flour, _ := seedPastry(t, s)

	first := sessionContext(t, sm)
	second := sessionContext(t, sm)

	w := doRequest(t, BuilderResource, first, http.MethodPost, "/app/api/builders/dish/components", map[string]any{"candidate_id": flour.ID, "quantity": 10})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	w = doRequest(t, BuilderResource, second, http.MethodGet, "/app/api/builders/dish", nil)
	if snapshot := decodeData[builder.Snapshot[models.Ingredient]](t, w); len(snapshot.Lines) != 0 {
		t.Fatalf("expected second session to be empty, got %d lines", len(snapshot.Lines))
	}

	w = doRequest(t, BuilderResource, second, http.MethodGet, "/app/api/builders/drink", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown builder kind, got %d", w.Code)
	}
}

func TestBuilderRequiresSessions(t *testing.T) {
	_, cleanup := withTestStore(t)
	t.Cleanup(cleanup)
	original := sessionManager
	sessionManager = nil
	t.Cleanup(func() { sessionManager = original })

	w := doRequest(t, BuilderResource, nil, http.MethodGet, "/app/api/builders/dish", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
}

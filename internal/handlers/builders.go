package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"platecost/internal/builder"
	applog "platecost/internal/log"
	"platecost/internal/store"
	"platecost/models"
)

const sessionBuilderKey = "builder:session:id"

// builderSession holds the dish and food builders of one browser session.
type builderSession struct {
	dish     *builder.Builder[models.Ingredient]
	food     *builder.Builder[models.Dish]
	lastSeen time.Time
}

type builderRegistry struct {
	mu       sync.Mutex
	sessions map[string]*builderSession
}

func newBuilderRegistry() *builderRegistry {
	return &builderRegistry{sessions: make(map[string]*builderSession)}
}

// lookup returns the builders for id, creating them on first use. Sessions
// idle for longer than idle are dropped.
func (reg *builderRegistry) lookup(id string, s *store.Store, idle time.Duration, now time.Time) *builderSession {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if idle > 0 {
		for key, session := range reg.sessions {
			if key != id && now.Sub(session.lastSeen) > idle {
				delete(reg.sessions, key)
			}
		}
	}

	session, ok := reg.sessions[id]
	if !ok {
		session = &builderSession{
			dish: builder.NewDishBuilder(store.DishCommitter(s)),
			food: builder.NewFoodBuilder(store.FoodCommitter(s)),
		}
		reg.sessions[id] = session
	}
	session.lastSeen = now
	return session
}

func (reg *builderRegistry) size() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}

type builderMetaRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	ClearPrice  bool     `json:"clear_price"`
}

type componentRequest struct {
	CandidateID uint    `json:"candidate_id"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Note        string  `json:"note"`
}

type quantityRequest struct {
	Quantity float64 `json:"quantity"`
}

type commitResponse struct {
	ID      uint `json:"id"`
	Created bool `json:"created"`
	Builder any  `json:"builder"`
}

// builderEndpoint binds one session builder to the store lookups it needs.
type builderEndpoint[C any] struct {
	builder *builder.Builder[C]
	logger  *slog.Logger
	find    func(ctx context.Context, id uint) (C, error)
	load    func(ctx context.Context, id uint) error
}

// BuilderResource serves the session-bound composition builders:
//
//	/app/api/builders/{dish|food}                     GET snapshot, PUT metadata, DELETE reset
//	/app/api/builders/{dish|food}/components          POST add
//	/app/api/builders/{dish|food}/components/{index}  PUT quantity, DELETE remove
//	/app/api/builders/{dish|food}/commit              POST
//	/app/api/builders/{dish|food}/edit/{id}           POST load an existing composite
func BuilderResource(w http.ResponseWriter, r *http.Request) {
	if !requireStore(w, r, "builders") {
		return
	}
	if sessionManager == nil {
		applog.Debug(r.Context(), "builder request without session manager")
		writeJSONError(w, http.StatusServiceUnavailable, "sessions not available")
		return
	}

	segments := splitPath(r.URL.Path, "/app/api/builders")
	if len(segments) == 0 {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	sessionID := sessionManager.GetString(ctx, sessionBuilderKey)
	if sessionID == "" {
		sessionID = uuid.NewString()
		sessionManager.Put(ctx, sessionBuilderKey, sessionID)
		applog.Debug(ctx, "builder session started", "session", sessionID)
	}
	session := builders.lookup(sessionID, repository, sessionManager.Lifetime, time.Now())
	s := repository

	switch segments[0] {
	case "dish":
		serveBuilder(w, r, builderEndpoint[models.Ingredient]{
			builder: session.dish,
			logger:  applog.With("component", "builder", "kind", "dish", "session", sessionID),
			find: func(ctx context.Context, id uint) (models.Ingredient, error) {
				result, err := s.Ingredients.Get(ctx, id)
				return result.Data, err
			},
			load: func(ctx context.Context, id uint) error {
				return store.LoadDish(ctx, s, session.dish, id)
			},
		}, segments[1:])
	case "food":
		serveBuilder(w, r, builderEndpoint[models.Dish]{
			builder: session.food,
			logger:  applog.With("component", "builder", "kind", "food", "session", sessionID),
			find: func(ctx context.Context, id uint) (models.Dish, error) {
				result, err := s.Dishes.Get(ctx, id)
				return result.Data, err
			},
			load: func(ctx context.Context, id uint) error {
				return store.LoadFood(ctx, s, session.food, id)
			},
		}, segments[1:])
	default:
		http.NotFound(w, r)
	}
}

func serveBuilder[C any](w http.ResponseWriter, r *http.Request, ep builderEndpoint[C], rest []string) {
	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			writeData(w, http.StatusOK, ep.builder.Snapshot())
		case http.MethodPut, http.MethodPatch:
			updateBuilderMeta(w, r, ep)
		case http.MethodDelete:
			if err := ep.builder.Reset(); err != nil {
				writeError(w, r, err, "reset builder")
				return
			}
			ep.logger.DebugContext(r.Context(), "builder reset")
			writeData(w, http.StatusOK, ep.builder.Snapshot())
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case rest[0] == "components" && len(rest) == 1:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		addBuilderComponent(w, r, ep)
	case rest[0] == "components" && len(rest) == 2:
		index, err := strconv.Atoi(rest[1])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodPut, http.MethodPatch:
			updateBuilderComponent(w, r, ep, index)
		case http.MethodDelete:
			if err := ep.builder.RemoveComponent(index); err != nil {
				writeError(w, r, err, "remove component")
				return
			}
			writeData(w, http.StatusOK, ep.builder.Snapshot())
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case rest[0] == "commit" && len(rest) == 1:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		commitBuilder(w, r, ep)
	case rest[0] == "edit" && len(rest) == 2:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id, ok := parseID(rest[1])
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := ep.load(r.Context(), id); err != nil {
			writeError(w, r, err, "load composition")
			return
		}
		ep.logger.DebugContext(r.Context(), "builder loaded existing composition", "target", id)
		writeData(w, http.StatusOK, ep.builder.Snapshot())
	default:
		http.NotFound(w, r)
	}
}

func updateBuilderMeta[C any](w http.ResponseWriter, r *http.Request, ep builderEndpoint[C]) {
	var payload builderMetaRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "update builder")
		return
	}
	if payload.ClearPrice && payload.Price != nil {
		writeError(w, r, models.Invalid("price", "cannot be set and cleared at once"), "update builder")
		return
	}

	steps := make([]func() error, 0, 4)
	if payload.Name != nil {
		steps = append(steps, func() error { return ep.builder.SetName(*payload.Name) })
	}
	if payload.Description != nil {
		steps = append(steps, func() error { return ep.builder.SetDescription(*payload.Description) })
	}
	if payload.Category != nil {
		steps = append(steps, func() error { return ep.builder.SetCategory(*payload.Category) })
	}
	if payload.Price != nil || payload.ClearPrice {
		steps = append(steps, func() error { return ep.builder.SetPrice(payload.Price) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			writeError(w, r, err, "update builder")
			return
		}
	}
	writeData(w, http.StatusOK, ep.builder.Snapshot())
}

func addBuilderComponent[C any](w http.ResponseWriter, r *http.Request, ep builderEndpoint[C]) {
	var payload componentRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "add component")
		return
	}
	if payload.CandidateID == 0 {
		writeError(w, r, models.Invalid("candidate_id", "is required"), "add component")
		return
	}

	candidate, err := ep.find(r.Context(), payload.CandidateID)
	if err != nil {
		writeError(w, r, err, "add component")
		return
	}
	if err := ep.builder.AddComponent(candidate, payload.Quantity, payload.Unit, payload.Note); err != nil {
		writeError(w, r, err, "add component")
		return
	}
	ep.logger.DebugContext(r.Context(), "component staged", "candidate", payload.CandidateID, "quantity", payload.Quantity)
	writeData(w, http.StatusCreated, ep.builder.Snapshot())
}

func updateBuilderComponent[C any](w http.ResponseWriter, r *http.Request, ep builderEndpoint[C], index int) {
	var payload quantityRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "update component")
		return
	}
	if err := ep.builder.UpdateComponentQuantity(index, payload.Quantity); err != nil {
		writeError(w, r, err, "update component")
		return
	}
	writeData(w, http.StatusOK, ep.builder.Snapshot())
}

func commitBuilder[C any](w http.ResponseWriter, r *http.Request, ep builderEndpoint[C]) {
	created := ep.builder.Snapshot().TargetID == 0
	id, err := ep.builder.Commit(r.Context())
	if err != nil {
		writeError(w, r, err, "commit composition")
		return
	}

	ep.logger.InfoContext(r.Context(), "composition committed", "id", id, "created", created)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeData(w, status, commitResponse{ID: id, Created: created, Builder: ep.builder.Snapshot()})
}

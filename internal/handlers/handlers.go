package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"platecost/internal/builder"
	applog "platecost/internal/log"
	"platecost/internal/store"
	"platecost/models"
)

const maxRequestBody = 1 << 20

var (
	sessionManager *scs.SessionManager
	repository     *store.Store
	builders       = newBuilderRegistry()
	gramsPerPiece  = 1.0
)

// Configure installs the shared dependencies used by the HTTP handlers.
// Builders staged under a previous store are discarded.
func Configure(sm *scs.SessionManager, s *store.Store) {
	sessionManager = sm
	repository = s
	builders = newBuilderRegistry()
}

// ConfigureCompare sets the grams-per-piece factor used when a compare request
// asks for normalization without naming one.
func ConfigureCompare(defaultGramsPerPiece float64) {
	if defaultGramsPerPiece > 0 {
		gramsPerPiece = defaultGramsPerPiece
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// statusFor maps domain errors onto HTTP statuses. A commit the store rejected
// as invalid, or whose target is gone, answers like the direct write would;
// only storage failures behind a commit answer 502.
func statusFor(err error) int {
	var (
		persistence *builder.PersistenceError
		duplicate   *builder.DuplicateComponentError
	)
	switch {
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.Is(err, builder.ErrCommitInProgress):
		return http.StatusConflict
	case errors.Is(err, builder.ErrNotCommittable), errors.Is(err, builder.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &persistence):
		return http.StatusBadGateway
	case errors.Is(err, gorm.ErrInvalidDB):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.Error(r.Context(), "request failed", "action", action, "status", status, "error", err)
	} else {
		applog.Debug(r.Context(), "request rejected", "action", action, "status", status, "error", err)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "unable to " + action
	}
	writeJSONError(w, status, message)
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return models.Invalid("body", fmt.Sprintf("is not valid JSON: %v", err))
	}
	return nil
}

func parseID(value string) (uint, bool) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

func splitPath(path, prefix string) []string {
	path = strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func listParams(r *http.Request) (store.ListParams, error) {
	query := r.URL.Query()
	params := store.ListParams{
		Query:    strings.TrimSpace(query.Get("q")),
		Category: strings.TrimSpace(query.Get("category")),
		Sort:     strings.TrimSpace(query.Get("sort")),
		Order:    strings.TrimSpace(query.Get("order")),
	}

	for key, target := range map[string]*int{"limit": &params.Limit, "offset": &params.Offset} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return store.ListParams{}, models.Invalid(key, "must be a non-negative integer")
		}
		*target = value
	}

	switch strings.ToLower(params.Order) {
	case "", "asc", "desc":
	default:
		return store.ListParams{}, models.Invalid("order", "must be asc or desc")
	}
	return params, nil
}

func requireStore(w http.ResponseWriter, r *http.Request, resource string) bool {
	if repository == nil {
		applog.Debug(r.Context(), "request without store", "resource", resource)
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return false
	}
	return true
}

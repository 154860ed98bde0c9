// Package store is the single read/write path for ingredients, dishes and
// completed foods. Derived costs are computed here when components are
// written, and every successful mutation is announced to subscribers.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	applog "platecost/internal/log"
	"platecost/models"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("record not found")

const maxPageSize = 500

// Result mirrors the {success, data, message} envelope of the persistence contract.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func failed[T any](err error) (Result[T], error) {
	return Result[T]{Success: false, Message: err.Error()}, err
}

// ListParams filter, sort and paginate a list query.
type ListParams struct {
	Query    string
	Category string
	Sort     string
	Order    string
	Limit    int
	Offset   int
}

func (p ListParams) descending() bool {
	return strings.EqualFold(strings.TrimSpace(p.Order), "desc")
}

func (p ListParams) sortKey() string {
	return strings.ToLower(strings.TrimSpace(p.Sort))
}

// EntityKind names the entity an event refers to.
type EntityKind string

const (
	KindIngredient EntityKind = "ingredient"
	KindDish       EntityKind = "dish"
	KindFood       EntityKind = "food"
)

// Action names the mutation an event reports.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event describes a committed mutation.
type Event struct {
	Kind   EntityKind `json:"kind"`
	Action Action     `json:"action"`
	ID     uint       `json:"id"`
}

// Listener receives events synchronously after the mutation is committed.
type Listener func(Event)

// Store groups the entity repositories over one database handle.
type Store struct {
	db *gorm.DB
	// parent is set on transaction-scoped stores; their events wait in
	// pending until the transaction commits.
	parent  *Store
	pending []Event

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int

	Ingredients *IngredientRepository
	Dishes      *DishRepository
	Foods       *FoodRepository
}

// New builds a Store over db.
func New(db *gorm.DB) *Store {
	s := &Store{db: db, listeners: make(map[int]Listener)}
	s.Ingredients = &IngredientRepository{store: s}
	s.Dishes = &DishRepository{store: s}
	s.Foods = &FoodRepository{store: s}
	return s
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) publish(event Event) {
	if s.parent != nil {
		s.pending = append(s.pending, event)
		return
	}

	s.mu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Transaction runs fn against a store bound to one database transaction. An
// error from fn rolls every write back. Events raised inside fn reach
// subscribers only after the commit.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	var scoped *Store
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped = New(tx)
		scoped.parent = s
		return fn(scoped)
	})
	if err != nil {
		return err
	}
	for _, event := range scoped.pending {
		s.publish(event)
	}
	return nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) handle() (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	return s.db, nil
}

// orderQuery applies a whitelisted column sort. It reports true when the key
// is one of the derived keys, which the caller must sort in memory.
func orderQuery(query *gorm.DB, params ListParams, columns map[string]string, derived ...string) (*gorm.DB, bool, error) {
	key := params.sortKey()
	if key == "" {
		key = "name"
	}
	for _, name := range derived {
		if key == name {
			return query.Order("id asc"), true, nil
		}
	}
	column, found := columns[key]
	if !found {
		return nil, false, models.Invalid("sort", fmt.Sprintf("unknown sort key %q", key))
	}
	direction := "asc"
	if params.descending() {
		direction = "desc"
	}
	return query.Order(fmt.Sprintf("%s %s", column, direction)).Order("id asc"), false, nil
}

func paginateQuery(query *gorm.DB, params ListParams) *gorm.DB {
	limit := params.Limit
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}
	return query
}

// sortDerived orders items by a computed key and then paginates in memory.
func sortDerived[T any](items []T, params ListParams, key func(T) float64) []T {
	desc := params.descending()
	sort.SliceStable(items, func(i, j int) bool {
		a, b := key(items[i]), key(items[j])
		if desc {
			return a > b
		}
		return a < b
	})

	start := params.Offset
	if start < 0 {
		start = 0
	}
	if start > len(items) {
		start = len(items)
	}
	items = items[start:]

	limit := params.Limit
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func likePattern(value string) string {
	return "%" + strings.ToLower(strings.TrimSpace(value)) + "%"
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// logFailure records unexpected database errors. Validation and not-found
// outcomes are the caller's concern and are not logged here.
func logFailure(ctx context.Context, op string, err error, args ...any) {
	if err == nil || errors.Is(err, ErrNotFound) || models.IsValidation(err) {
		return
	}
	attrs := append([]any{"component", "store", "op", op, "error", err}, args...)
	applog.Error(ctx, "store operation failed", attrs...)
}

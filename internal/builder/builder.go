// Package builder stages a dish or completed food before it is committed.
//
// A builder moves through Empty -> Staging -> Submitting and lands back in
// Empty after a successful commit or in Staging after a failed one. Costs of
// staged lines are computed when the line is added or its quantity changes, and
// the running total is recomputed on every mutation.
package builder

import (
	"context"
	"strings"
	"sync"

	applog "platecost/internal/log"
	"platecost/internal/profit"
	"platecost/internal/rollup"
	"platecost/models"
)

// State is the lifecycle position of a builder.
type State string

const (
	StateEmpty      State = "empty"
	StateStaging    State = "staging"
	StateSubmitting State = "submitting"
)

// Line is one staged component.
type Line[C any] struct {
	Candidate   C       `json:"-"`
	CandidateID uint    `json:"candidate_id"`
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Note        string  `json:"note,omitempty"`
	BaseValue   float64 `json:"base_value"`
	Cost        float64 `json:"cost"`
}

// ComponentCost satisfies rollup.Coster.
func (l Line[C]) ComponentCost() float64 {
	return l.Cost
}

// Draft is the composition handed to a Committer. TargetID is zero for a new
// composite and the existing identity when editing.
type Draft[C any] struct {
	TargetID    uint
	Name        string
	Description string
	Category    string
	Price       *float64
	Lines       []Line[C]
	Total       float64
}

// Committer persists a draft and returns the identity of the stored composite.
type Committer[C any] interface {
	Commit(ctx context.Context, draft Draft[C]) (uint, error)
}

// CommitFunc adapts a function to Committer.
type CommitFunc[C any] func(ctx context.Context, draft Draft[C]) (uint, error)

// Commit calls f.
func (f CommitFunc[C]) Commit(ctx context.Context, draft Draft[C]) (uint, error) {
	return f(ctx, draft)
}

// Builder holds one in-progress composition. It is safe for concurrent use,
// but it is meant to back a single user session.
type Builder[C any] struct {
	mu        sync.Mutex
	kind      Kind[C]
	committer Committer[C]

	state       State
	targetID    uint
	name        string
	description string
	category    string
	price       *float64
	lines       []Line[C]
	lastErr     error
	committedID uint
}

// New returns an empty builder for the given kind.
func New[C any](kind Kind[C], committer Committer[C]) *Builder[C] {
	return &Builder[C]{kind: kind, committer: committer, state: StateEmpty}
}

// NewDishBuilder stages ingredients into a dish.
func NewDishBuilder(committer Committer[models.Ingredient]) *Builder[models.Ingredient] {
	return New(DishKind, committer)
}

// NewFoodBuilder stages dishes into a completed food.
func NewFoodBuilder(committer Committer[models.Dish]) *Builder[models.Dish] {
	return New(FoodKind, committer)
}

// Kind returns the builder's kind name.
func (b *Builder[C]) Kind() string {
	return b.kind.Name
}

// State returns the current lifecycle state.
func (b *Builder[C]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// LastError returns the error left by the most recent failed commit.
func (b *Builder[C]) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// AddComponent stages a candidate. A candidate already staged is rejected with
// a DuplicateComponentError and nothing changes.
func (b *Builder[C]) AddComponent(candidate C, quantity float64, unit, note string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateSubmitting {
		return ErrCommitInProgress
	}

	id := b.kind.ID(candidate)
	if id == 0 {
		return models.Invalid("candidate", "must be saved before it can be staged")
	}
	lineUnit := b.kind.LineUnit(candidate, unit)
	if err := b.kind.ValidateLine(quantity, lineUnit); err != nil {
		return err
	}
	for _, line := range b.lines {
		if line.CandidateID == id {
			return &DuplicateComponentError{CandidateID: id, Name: line.Name}
		}
	}

	base := b.kind.BaseValue(candidate)
	b.lines = append(b.lines, Line[C]{
		Candidate:   candidate,
		CandidateID: id,
		Name:        strings.TrimSpace(b.kind.Label(candidate)),
		Quantity:    quantity,
		Unit:        lineUnit,
		Note:        strings.TrimSpace(note),
		BaseValue:   base,
		Cost:        b.kind.cost(base, quantity),
	})
	b.state = StateStaging
	return nil
}

// RemoveComponent drops the line at index. Removing the last line empties the builder.
func (b *Builder[C]) RemoveComponent(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateSubmitting {
		return ErrCommitInProgress
	}
	if index < 0 || index >= len(b.lines) {
		return ErrIndexOutOfRange
	}

	b.lines = append(b.lines[:index:index], b.lines[index+1:]...)
	if len(b.lines) == 0 {
		b.state = StateEmpty
	}
	return nil
}

// UpdateComponentQuantity changes a staged quantity and recomputes the line cost.
// Invalid quantities leave the line untouched.
func (b *Builder[C]) UpdateComponentQuantity(index int, quantity float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateSubmitting {
		return ErrCommitInProgress
	}
	if index < 0 || index >= len(b.lines) {
		return ErrIndexOutOfRange
	}

	line := &b.lines[index]
	if err := b.kind.ValidateLine(quantity, line.Unit); err != nil {
		return err
	}
	line.Quantity = quantity
	line.Cost = b.kind.cost(line.BaseValue, quantity)
	return nil
}

// Lines returns a copy of the staged lines.
func (b *Builder[C]) Lines() []Line[C] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.copyLinesLocked()
}

// RunningTotal sums the staged line costs.
func (b *Builder[C]) RunningTotal() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return rollup.TotalCost(b.lines)
}

// ProjectedProfit is the raw profit at sellingPrice against the running total.
// A nil sellingPrice falls back to the staged price.
func (b *Builder[C]) ProjectedProfit(sellingPrice *float64) float64 {
	return b.Projection(sellingPrice).Profit
}

// ProjectedProfitRate is the profit rate at sellingPrice against the running total.
func (b *Builder[C]) ProjectedProfitRate(sellingPrice *float64) float64 {
	return b.Projection(sellingPrice).Rate
}

// Projection classifies the running total at sellingPrice, or at the staged
// price when sellingPrice is nil.
func (b *Builder[C]) Projection(sellingPrice *float64) profit.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sellingPrice == nil {
		sellingPrice = b.price
	}
	return profit.Classify(sellingPrice, rollup.TotalCost(b.lines))
}

// SetName sets the composite name.
func (b *Builder[C]) SetName(name string) error {
	return b.mutateMeta(func() { b.name = name })
}

// SetDescription sets the composite description.
func (b *Builder[C]) SetDescription(description string) error {
	return b.mutateMeta(func() { b.description = strings.TrimSpace(description) })
}

// SetCategory sets the composite category.
func (b *Builder[C]) SetCategory(category string) error {
	return b.mutateMeta(func() { b.category = strings.TrimSpace(category) })
}

// SetPrice sets or clears (nil) the selling price.
func (b *Builder[C]) SetPrice(price *float64) error {
	if price != nil {
		if err := models.ValidatePrice("price", *price); err != nil {
			return err
		}
		value := *price
		price = &value
	}
	return b.mutateMeta(func() { b.price = price })
}

func (b *Builder[C]) mutateMeta(apply func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateSubmitting {
		return ErrCommitInProgress
	}
	apply()
	return nil
}

// Edit clears the builder and points the next commit at an existing composite,
// so it is updated rather than created. Staging its components again prices
// them at current values.
func (b *Builder[C]) Edit(targetID uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateSubmitting {
		return ErrCommitInProgress
	}
	b.clearLocked()
	b.targetID = targetID
	return nil
}

// Reset discards everything staged.
func (b *Builder[C]) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateSubmitting {
		return ErrCommitInProgress
	}
	b.clearLocked()
	b.lastErr = nil
	return nil
}

// CanCommit reports whether the composition has a name and at least one line.
func (b *Builder[C]) CanCommit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canCommitLocked()
}

func (b *Builder[C]) canCommitLocked() bool {
	return b.state != StateSubmitting && strings.TrimSpace(b.name) != "" && len(b.lines) > 0
}

// Commit hands the staged composition to the committer. While the call is in
// flight further commits and mutations fail with ErrCommitInProgress. On
// success the builder empties; on failure it returns to Staging with every
// line intact and the error retained.
func (b *Builder[C]) Commit(ctx context.Context) (uint, error) {
	b.mu.Lock()
	if b.state == StateSubmitting {
		b.mu.Unlock()
		return 0, ErrCommitInProgress
	}
	if !b.canCommitLocked() {
		b.mu.Unlock()
		return 0, ErrNotCommittable
	}
	draft := Draft[C]{
		TargetID:    b.targetID,
		Name:        strings.TrimSpace(b.name),
		Description: b.description,
		Category:    b.category,
		Price:       b.price,
		Lines:       b.copyLinesLocked(),
		Total:       rollup.TotalCost(b.lines),
	}
	b.state = StateSubmitting
	b.lastErr = nil
	b.mu.Unlock()

	applog.Debug(ctx, "builder commit started", "kind", b.kind.Name, "target", draft.TargetID, "lines", len(draft.Lines), "total", draft.Total)
	id, err := b.committer.Commit(ctx, draft)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.state = StateStaging
		b.lastErr = &PersistenceError{Kind: b.kind.Name, Err: err}
		applog.Warn(ctx, "builder commit failed", "kind", b.kind.Name, "error", err)
		return 0, b.lastErr
	}

	b.clearLocked()
	b.committedID = id
	applog.Debug(ctx, "builder commit succeeded", "kind", b.kind.Name, "id", id)
	return id, nil
}

func (b *Builder[C]) clearLocked() {
	b.state = StateEmpty
	b.targetID = 0
	b.name = ""
	b.description = ""
	b.category = ""
	b.price = nil
	b.lines = nil
}

func (b *Builder[C]) copyLinesLocked() []Line[C] {
	lines := make([]Line[C], len(b.lines))
	copy(lines, b.lines)
	return lines
}

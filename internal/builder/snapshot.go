package builder

import (
	"platecost/internal/profit"
	"platecost/internal/rollup"
)

// Snapshot is a read-only view of a builder for rendering.
type Snapshot[C any] struct {
	Kind            string        `json:"kind"`
	State           State         `json:"state"`
	TargetID        uint          `json:"target_id,omitempty"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Category        string        `json:"category"`
	Price           *float64      `json:"price,omitempty"`
	Lines           []Line[C]     `json:"lines"`
	RunningTotal    float64       `json:"running_total"`
	Projection      profit.Result `json:"projection"`
	CanCommit       bool          `json:"can_commit"`
	LastError       string        `json:"last_error,omitempty"`
	LastCommittedID uint          `json:"last_committed_id,omitempty"`
}

// Snapshot captures the builder's current state.
func (b *Builder[C]) Snapshot() Snapshot[C] {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := rollup.TotalCost(b.lines)
	snapshot := Snapshot[C]{
		Kind:            b.kind.Name,
		State:           b.state,
		TargetID:        b.targetID,
		Name:            b.name,
		Description:     b.description,
		Category:        b.category,
		Price:           b.price,
		Lines:           b.copyLinesLocked(),
		RunningTotal:    total,
		Projection:      profit.Classify(b.price, total),
		CanCommit:       b.canCommitLocked(),
		LastCommittedID: b.committedID,
	}
	if b.lastErr != nil {
		snapshot.LastError = b.lastErr.Error()
	}
	return snapshot
}

// LastCommittedID returns the identity produced by the most recent successful commit.
func (b *Builder[C]) LastCommittedID() uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committedID
}

package builder

import (
	"errors"
	"fmt"
)

var (
	// ErrCommitInProgress rejects any commit or mutation while a commit is awaiting the store.
	ErrCommitInProgress = errors.New("commit already in progress")
	// ErrNotCommittable is returned by Commit when a name or components are missing.
	ErrNotCommittable = errors.New("composition needs a name and at least one component")
	// ErrIndexOutOfRange is returned when a component index does not exist.
	ErrIndexOutOfRange = errors.New("component index out of range")
)

// DuplicateComponentError is returned when a candidate is staged twice. Staged
// quantities are never merged; remove and re-add to change one.
type DuplicateComponentError struct {
	CandidateID uint
	Name        string
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("%q (id %d) is already staged", e.Name, e.CandidateID)
}

// PersistenceError wraps a failed create or update against the store. The
// builder keeps every staged line when it returns one.
type PersistenceError struct {
	Kind string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

package common

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by store lookups and updates that match nothing.
var ErrNotFound = errors.New("not found")

// ParseError reports an input file that could not be decoded. The file is
// skipped and counted as an error.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a node that violates its required-field or format
// rules. The node is dropped from the batch.
type ValidationError struct {
	Kind  NodeKind
	Key   string
	Field string
	Rule  string
	Value any
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("missing required field '%s' for %s node", e.Field, e.Kind)
	case "isodate":
		return fmt.Sprintf("invalid date format in '%s': %v", e.Field, e.Value)
	case "text":
		return fmt.Sprintf("field '%s' too short: '%v'", e.Field, e.Value)
	default:
		return fmt.Sprintf("field '%s' of %s node failed '%s'", e.Field, e.Kind, e.Rule)
	}
}

// ConstraintConflictError is returned by a merge that hit a uniqueness
// constraint other than the node's own key. Lookup addresses the persisted
// node that owns the conflicting value.
type ConstraintConflictError struct {
	Key        NodeKey
	Lookup     NodeKey
	Constraint string
	Err        error
}

func (e *ConstraintConflictError) Error() string {
	return fmt.Sprintf("constraint violation on %s for %s: %v", e.Constraint, e.Key, e.Err)
}

func (e *ConstraintConflictError) Unwrap() error { return e.Err }

// TransactionError wraps a failure to begin, run or commit a transaction.
// Scope names the unit that was rolled back.
type TransactionError struct {
	Scope string
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s transaction failed: %v", e.Scope, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// CollaboratorError wraps a failure of an external service such as the
// embedding backend or a store query made during extraction. Callers degrade
// instead of aborting.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// IsConstraintConflict reports whether err carries a ConstraintConflictError.
func IsConstraintConflict(err error) (*ConstraintConflictError, bool) {
	var cc *ConstraintConflictError
	if errors.As(err, &cc) {
		return cc, true
	}
	return nil, false
}

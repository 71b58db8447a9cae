package core

import "fmt"

// WarningKind classifies a degraded-mode warning.
type WarningKind string

const (
	// WarningPartialResults marks a search answered without its semantic signal.
	WarningPartialResults WarningKind = "partial_results"
	// WarningInconsistentWrite marks a write or delete that reached only one store.
	WarningInconsistentWrite WarningKind = "inconsistent_write"
)

// Warning is attached to an otherwise successful response.
// Err keeps the underlying cause for errors.Is checks and is not serialized.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Unwrap exposes the cause.
func (w Warning) Unwrap() error {
	return w.Err
}

// PartialResults builds the warning used when the semantic sub-query failed.
func PartialResults(cause error) Warning {
	msg := "semantic results unavailable, returning fuzzy matches only"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return Warning{Kind: WarningPartialResults, Message: msg, Err: cause}
}

// InconsistentWrite builds the warning used when the secondary store write failed.
func InconsistentWrite(id ID, op string, cause error) Warning {
	return Warning{
		Kind:    WarningInconsistentWrite,
		Message: fmt.Sprintf("candidate %s: %s succeeded in candidate store but failed in vector index: %v", id, op, cause),
		Err:     fmt.Errorf("%w: %w", ErrInconsistentWrite, cause),
	}
}

// HasWarning reports whether warnings contains one of the given kind.
func HasWarning(warnings []Warning, kind WarningKind) bool {
	for _, w := range warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

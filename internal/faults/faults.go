// Package faults holds the error taxonomy shared across the core.
// Business-rule failures are typed so callers can translate them into
// user messages; storage failures are wrapped and passed through untouched.
package faults

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input before it touches the ledger.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CapacityDetail reports the shortfall for one batch line so the caller
// can adjust without re-polling.
type CapacityDetail struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// CapacityError is the expected business outcome when a reservation asks
// for more than a line has left. Nothing was mutated when it is returned.
type CapacityError struct {
	Details []CapacityDetail
}

func (e *CapacityError) Error() string {
	if len(e.Details) == 1 {
		d := e.Details[0]
		return fmt.Sprintf("insufficient capacity for product %s: requested %d, available %d",
			d.ProductID, d.Requested, d.Available)
	}
	return fmt.Sprintf("insufficient capacity on %d lines", len(e.Details))
}

// TransitionError rejects an order-status move the actor's role does not
// allow, or one racing against a concurrent transition.
type TransitionError struct {
	From  string
	To    string
	Actor string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s not allowed for %s", e.From, e.To, e.Actor)
}

// NotFoundError covers missing batches, orders, drops and products.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// TransientError wraps a storage failure. It is never retried inside the
// core; the caller decides whether to retry the whole operation.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err unless it is already part of the taxonomy.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		ce *CapacityError
		te *TransitionError
		ne *NotFoundError
		tr *TransientError
	)
	if errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &te) ||
		errors.As(err, &ne) || errors.As(err, &tr) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

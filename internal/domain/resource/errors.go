// Package resource holds the error taxonomy shared by the hub's resource
// state machines, repositories, and the command dispatcher.
package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors. Structured error types below report themselves as their
// sentinel through errors.Is so callers can branch without type assertions.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrBedUnavailable      = errors.New("bed unavailable")
	ErrUnsupportedCommand  = errors.New("unsupported command")
	ErrTimeout             = errors.New("timeout")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrPartialDelivery     = errors.New("partial delivery failure")
)

// InvalidTransitionError identifies the current state and the operation that
// was rejected. The underlying state is never mutated on rejection.
type InvalidTransitionError struct {
	Resource string
	Current  string
	Op       string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from state %q", e.Resource, e.Op, e.Current)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// BedUnavailableError is returned when a bed assignment loses the race or
// targets a bed that is not currently assignable.
type BedUnavailableError struct {
	BedID  uuid.UUID
	Status string
}

func (e *BedUnavailableError) Error() string {
	return fmt.Sprintf("bed %s unavailable (status %q)", e.BedID, e.Status)
}

func (e *BedUnavailableError) Is(target error) bool {
	return target == ErrBedUnavailable
}

// UnsupportedCommandError names the inbound command type that was rejected.
type UnsupportedCommandError struct {
	Type string
}

func (e *UnsupportedCommandError) Error() string {
	return fmt.Sprintf("unsupported command %q", e.Type)
}

func (e *UnsupportedCommandError) Is(target error) bool {
	return target == ErrUnsupportedCommand
}

// PartialDeliveryError reports an alert fan-out where some cohort members did
// not get a durable notification row. The broadcast itself still went out.
type PartialDeliveryError struct {
	Failed []uuid.UUID
}

func (e *PartialDeliveryError) Error() string {
	return fmt.Sprintf("notification persisted for some recipients only (%d failed)", len(e.Failed))
}

func (e *PartialDeliveryError) Is(target error) bool {
	return target == ErrPartialDelivery
}

// Code returns the stable wire code for an error, used for the `error` frame
// sent back to the originating session.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrBedUnavailable):
		return "bed_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnsupportedCommand):
		return "unsupported_command"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, ErrPartialDelivery):
		return "partial_delivery_failure"
	default:
		return "internal"
	}
}

// HTTPStatus maps a taxonomy error to the REST status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return 401
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrBedUnavailable):
		return 409
	case errors.Is(err, ErrConstraintViolation), errors.Is(err, ErrUnsupportedCommand):
		return 422
	case errors.Is(err, ErrTimeout):
		return 504
	case errors.Is(err, ErrPartialDelivery):
		return 207
	default:
		return 500
	}
}

// FromStore maps a durable-store error to the taxonomy: missing rows become
// ErrNotFound, integrity failures become ErrConstraintViolation, and an
// exceeded deadline becomes ErrTimeout. Other errors pass through unchanged.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
		return fmt.Errorf("%w: %s", ErrConstraintViolation, pgErr.Message)
	}
	return err
}

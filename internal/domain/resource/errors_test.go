package resource

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestInvalidTransitionError_Is(t *testing.T) {
	err := &InvalidTransitionError{Resource: "bed", Current: "occupied", Op: "occupy"}

	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatal("expected errors.Is(err, ErrInvalidTransition) to be true")
	}
	if errors.Is(err, ErrBedUnavailable) {
		t.Fatal("expected errors.Is(err, ErrBedUnavailable) to be false")
	}

	var target *InvalidTransitionError
	if !errors.As(err, &target) {
		t.Fatal("expected errors.As to extract InvalidTransitionError")
	}
	if target.Current != "occupied" || target.Op != "occupy" {
		t.Fatalf("unexpected fields: %+v", target)
	}
}

func TestBedUnavailableError_Is(t *testing.T) {
	id := uuid.New()
	err := fmt.Errorf("assign bed: %w", &BedUnavailableError{BedID: id, Status: "occupied"})

	if !errors.Is(err, ErrBedUnavailable) {
		t.Fatal("expected errors.Is through wrapping")
	}

	var target *BedUnavailableError
	if !errors.As(err, &target) {
		t.Fatal("expected errors.As to extract BedUnavailableError")
	}
	if target.BedID != id {
		t.Fatalf("expected bed id %s, got %s", id, target.BedID)
	}
}

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrUnauthorized, "unauthorized"},
		{&InvalidTransitionError{Resource: "task", Current: "completed", Op: "start"}, "invalid_transition"},
		{&BedUnavailableError{}, "bed_unavailable"},
		{ErrNotFound, "not_found"},
		{&UnsupportedCommandError{Type: "bogus"}, "unsupported_command"},
		{ErrTimeout, "timeout"},
		{ErrConstraintViolation, "constraint_violation"},
		{errors.New("something else"), "internal"},
	}

	for _, tc := range cases {
		if got := Code(tc.err); got != tc.want {
			t.Fatalf("Code(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFromStore(t *testing.T) {
	if FromStore(nil) != nil {
		t.Fatal("expected nil for nil input")
	}

	if !errors.Is(FromStore(pgx.ErrNoRows), ErrNotFound) {
		t.Fatal("expected pgx.ErrNoRows to map to ErrNotFound")
	}

	wrapped := fmt.Errorf("query: %w", context.DeadlineExceeded)
	if !errors.Is(FromStore(wrapped), ErrTimeout) {
		t.Fatal("expected deadline exceeded to map to ErrTimeout")
	}

	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	if !errors.Is(FromStore(pgErr), ErrConstraintViolation) {
		t.Fatal("expected unique violation to map to ErrConstraintViolation")
	}

	other := errors.New("connection refused")
	if FromStore(other) != other {
		t.Fatal("expected unrelated errors to pass through")
	}
}

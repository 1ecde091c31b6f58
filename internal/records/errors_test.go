package records

import (
	"errors"
	"testing"

	"finplan/internal/core"
)

func TestInvalidKeepsBothSentinels(t *testing.T) {
	err := Invalid(core.ErrInvalidAmount)
	if !errors.Is(err, ErrValidation) || !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("unexpected chain: %v", err)
	}
	if errors.Is(err, ErrPersistence) {
		t.Fatalf("validation error must not be a persistence error")
	}
}

func TestPersistenceWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Persistence("insert expense", cause)
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, cause) {
		t.Fatalf("unexpected chain: %v", err)
	}
	if err.Error() != "persistence failed: insert expense: disk full" {
		t.Fatalf("message = %q", err.Error())
	}
}

package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(SlotConflict, "court %d is taken", 3)
	wrapped := fmt.Errorf("create reservation: %w", base)

	if got := KindOf(wrapped); got != SlotConflict {
		t.Fatalf("expected %s, got %s", SlotConflict, got)
	}
	if !Is(wrapped, SlotConflict) {
		t.Fatalf("expected Is to match slot conflict")
	}
	if base.Error() != "court 3 is taken" {
		t.Fatalf("unexpected message %q", base.Error())
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Fatalf("expected %s, got %s", Internal, got)
	}
	if got := KindOf(nil); got != "" {
		t.Fatalf("expected empty kind for nil, got %s", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Wrap(TransientStorageFailure, cause, "storage busy, retry the request")

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	if !Retryable(err) {
		t.Fatalf("expected transient failure to be retryable")
	}
	if Retryable(New(SlotConflict, "taken")) {
		t.Fatalf("slot conflict must not be retryable")
	}
}

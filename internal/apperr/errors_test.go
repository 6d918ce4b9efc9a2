package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("assign: %w", NoEligibleAgents("No active agents found for this campaign"))
	if !IsNoEligibleAgents(err) {
		t.Fatalf("expected no-eligible-agents kind, got %v", KindOf(err))
	}
	if MessageOf(err) != "No active agents found for this campaign" {
		t.Fatalf("unexpected message %q", MessageOf(err))
	}
}

func TestKindOf_UnknownIsPersistence(t *testing.T) {
	if KindOf(errors.New("boom")) != KindPersistence {
		t.Fatalf("expected persistence for plain errors")
	}
	if IsPersistence(nil) {
		t.Fatalf("nil is not an error")
	}
}

func TestPersistence_Unwraps(t *testing.T) {
	cause := errors.New("conn refused")
	err := Persistence("insert leads", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
}

func TestWrap(t *testing.T) {
	if Wrap("x", nil) != nil {
		t.Fatalf("expected nil")
	}
	nf := NotFound("Lead not found")
	if got := Wrap("load lead", nf); got != nf {
		t.Fatalf("expected domain error to pass through, got %v", got)
	}
	cause := errors.New("conn reset")
	got := Wrap("load lead", cause)
	if !IsPersistence(got) || !errors.Is(got, cause) {
		t.Fatalf("expected persistence wrapping, got %v", got)
	}
}

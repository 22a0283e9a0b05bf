package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := NotFound("component %d not found", 7)
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected NotFound error to match ErrNotFound")
	}
	if errors.Is(err, ErrBadInput) {
		t.Error("NotFound error should not match ErrBadInput")
	}
	if err.Error() != "component 7 not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestErrorIsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", BadInput("invalid count"))
	if !errors.Is(wrapped, ErrBadInput) {
		t.Error("expected wrapped BadInput error to match")
	}
}

func TestDataIntegrityKeepsCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := DataIntegrity(cause, "reading %s", "graph.gexf")
	if !errors.Is(err, ErrDataIntegrity) {
		t.Error("expected DataIntegrity kind")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if err.Error() != "reading graph.gexf: unexpected EOF" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

package services_test

import (
	"errors"
	"strings"
	"testing"

	"recut/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrGenerator, "shot_02", "stylize", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrGenerator) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"shot_02", "stylize", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestClassifyOutcome(t *testing.T) {
	notFound := services.Wrap(services.ErrNotFound, "job_x", "get", "unknown job", nil)
	if outcome := services.ClassifyOutcome(notFound); outcome != services.OutcomeNotFound {
		t.Fatalf("expected not_found, got %s", outcome)
	}

	precondition := services.Wrap(services.ErrPrecondition, "job_x", "merge", "pending shots", nil)
	if outcome := services.ClassifyOutcome(precondition); outcome != services.OutcomeBadRequest {
		t.Fatalf("expected bad_request for precondition, got %s", outcome)
	}

	validation := services.Wrap(services.ErrValidation, "job_x", "edit", "unknown op", nil)
	if outcome := services.ClassifyOutcome(validation); outcome != services.OutcomeBadRequest {
		t.Fatalf("expected bad_request for validation, got %s", outcome)
	}

	generator := services.Wrap(services.ErrGenerator, "shot_01", "video_generate", "upstream", errors.New("io"))
	if outcome := services.ClassifyOutcome(generator); outcome != services.OutcomeInternal {
		t.Fatalf("expected internal for generator error, got %s", outcome)
	}
}

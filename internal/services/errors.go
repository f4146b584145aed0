package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks lookups for unknown jobs, shots, entities, or stages.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition marks requests whose state requirements are unmet, such
	// as merging with pending shots or re-running a stage that is in flight.
	ErrPrecondition = errors.New("precondition failed")
	// ErrValidation marks malformed input, such as an unknown edit operation.
	ErrValidation = errors.New("validation error")
	// ErrGenerator marks failures raised by generator collaborators.
	ErrGenerator = errors.New("generator failure")
	// ErrPersistence marks failures writing the workflow document.
	ErrPersistence = errors.New("persistence failure")
	// ErrExternalTool marks failures invoking ffmpeg and friends.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration marks unusable configuration discovered at runtime.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes job and stage context while
// tagging it with the provided marker for later outcome classification. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, scope, operation, message string, err error) error {
	detail := buildDetail(scope, operation, message)
	if marker == nil {
		marker = ErrGenerator
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Outcome buckets engine errors for the API and CLI surfaces.
type Outcome string

const (
	OutcomeNotFound   Outcome = "not_found"
	OutcomeBadRequest Outcome = "bad_request"
	OutcomeInternal   Outcome = "internal"
)

// ClassifyOutcome maps an engine error to the response bucket the invocation
// surfaces should report.
func ClassifyOutcome(err error) Outcome {
	switch {
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrPrecondition), errors.Is(err, ErrValidation):
		return OutcomeBadRequest
	default:
		return OutcomeInternal
	}
}

func buildDetail(scope, operation, message string) string {
	parts := make([]string, 0, 3)
	if scope = strings.TrimSpace(scope); scope != "" {
		parts = append(parts, scope)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "engine failure"
	}
	return strings.Join(parts, ": ")
}

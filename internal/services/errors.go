package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool     = errors.New("external tool error")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("timeout")
	ErrTransient        = errors.New("transient failure")
	ErrMalformedPayload = errors.New("malformed backend payload")
)

// Scope describes how far a failure reaches.
type Scope string

const (
	// ScopeScan failures abort the whole scan and move the session to its
	// error screen.
	ScopeScan Scope = "scan"
	// ScopeItem failures are confined to one item and expose a manual retry.
	ScopeItem Scope = "item"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns a short operator hint for log lines.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "check menuviz configuration"
	case errors.Is(err, ErrValidation):
		return "check the request input"
	case errors.Is(err, ErrMalformedPayload):
		return "the model returned output that could not be parsed; retry the scan"
	case errors.Is(err, ErrTimeout):
		return "backend did not answer in time; retry later"
	case errors.Is(err, ErrNotFound):
		return "the referenced item no longer exists"
	case errors.Is(err, ErrExternalTool):
		return "check the external command or backend availability"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the request-terminal failure kinds. Handlers map
// these to HTTP codes with ErrorStatus.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation")
	ErrNotFound        = errors.New("not found")
)

func InvalidStateError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func ForbiddenError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func ConflictError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// GatewayError wraps a failure talking to the payment processor. Retryable
// covers timeouts and 5xx responses; a business rejection (4xx) is not
// retryable. A timeout is an unknown outcome, never a confirmed failure.
type GatewayError struct {
	Op        string
	Status    int
	Message   string
	Retryable bool
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s", e.Op, e.Err.Error())
	}
	return fmt.Sprintf("gateway %s: status=%d %s", e.Op, e.Status, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func IsRetryableGatewayError(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

// ReconciliationError records a settlement delta beyond tolerance. It is
// surfaced to an operator and never auto-corrected.
type ReconciliationError struct {
	BatchID  uint
	Expected float64
	Actual   float64
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("settlement batch %d discrepancy: expected=%.2f actual=%.2f", e.BatchID, e.Expected, e.Actual)
}

// ErrorStatus maps an error to the HTTP status the REST surface returns.
func ErrorStatus(err error) int {
	var ge *GatewayError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.As(err, &ge):
		if IsRetryableGatewayError(err) {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

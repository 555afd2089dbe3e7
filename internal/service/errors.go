package service

import "errors"

// Error classes returned by the engine. Callers wrap them with context via
// fmt.Errorf("...: %w") and classify with errors.Is.
var (
	ErrValidation                    = errors.New("validation failed")
	ErrInvalidInput                  = errors.New("invalid input")
	ErrForbidden                     = errors.New("forbidden")
	ErrNotFound                      = errors.New("not found")
	ErrInvalidTransition             = errors.New("invalid status transition")
	ErrStaleState                    = errors.New("order state changed, re-fetch and retry")
	ErrOrderNotApprovableForDelivery = errors.New("order cannot be assigned for delivery")
	ErrPartnerNotFound               = errors.New("delivery partner not found")
	ErrDuplicateEmail                = errors.New("email already registered")
	ErrInvalidCredentials            = errors.New("invalid credentials")
)

// ErrorCode returns the stable code clients use to tell failure classes apart.
// Unknown errors map to INTERNAL.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrPartnerNotFound):
		return "PARTNER_NOT_FOUND"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrStaleState):
		return "STALE_STATE"
	case errors.Is(err, ErrOrderNotApprovableForDelivery):
		return "ORDER_NOT_ASSIGNABLE"
	case errors.Is(err, ErrDuplicateEmail):
		return "DUPLICATE_EMAIL"
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	}
	return "INTERNAL"
}

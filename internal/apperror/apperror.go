// Package apperror carries the service's error taxonomy. Every failure that
// reaches an HTTP boundary is either an *Error or gets reported as INTERNAL.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Category string

const (
	Validation      Category = "VALIDATION"
	NotFound        Category = "NOT_FOUND"
	StateConflict   Category = "STATE_CONFLICT"
	PaymentProvider Category = "PAYMENT_PROVIDER"
	Unauthorized    Category = "UNAUTHORIZED"
	Forbidden       Category = "FORBIDDEN"
	Internal        Category = "INTERNAL"
)

var statusByCategory = map[Category]int{
	Validation:      http.StatusBadRequest,
	NotFound:        http.StatusNotFound,
	StateConflict:   http.StatusConflict,
	PaymentProvider: http.StatusBadGateway,
	Unauthorized:    http.StatusUnauthorized,
	Forbidden:       http.StatusForbidden,
	Internal:        http.StatusInternalServerError,
}

// Sentinels for errors.Is checks.
var (
	ErrCatalogItemNotFound    = errors.New("catalog item not found")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrOrderNotFound          = errors.New("order not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrDiscountNotFound       = errors.New("discount not found")
	ErrDiscountExpired        = errors.New("discount expired")
	ErrDiscountExhausted      = errors.New("discount exhausted")
	ErrDiscountBelowMinSpend  = errors.New("discount minimum spend not met")
	ErrDiscountNotApplicable  = errors.New("discount not applicable")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrOrderBusy              = errors.New("order is being processed")
)

type Error struct {
	Category      Category
	StatusCode    int
	PublicError   string
	InternalError string
	OriginalErr   error
}

func (e *Error) Error() string {
	msg := e.PublicError
	if e.InternalError != "" {
		msg = e.InternalError
	}
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, msg, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %s", e.Category, msg)
}

func (e *Error) Unwrap() error {
	return e.OriginalErr
}

func New(category Category, public string, original error) *Error {
	return &Error{
		Category:    category,
		StatusCode:  statusByCategory[category],
		PublicError: public,
		OriginalErr: original,
	}
}

// WithInternal attaches a message for logs that is never sent to clients.
func (e *Error) WithInternal(format string, args ...any) *Error {
	e.InternalError = fmt.Sprintf(format, args...)
	return e
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func CategoryOf(err error) Category {
	if appErr, ok := As(err); ok {
		return appErr.Category
	}
	return Internal
}

func StatusOf(err error) int {
	if appErr, ok := As(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

func Is(err error, category Category) bool {
	return CategoryOf(err) == category
}

func NewValidation(public string) *Error {
	return New(Validation, public, nil)
}

func NewInternal(public string, err error) *Error {
	return New(Internal, public, err)
}

func CatalogItemNotFound(kind, id string) *Error {
	return New(NotFound, fmt.Sprintf("%s %s not found", kind, id), ErrCatalogItemNotFound)
}

func InvalidQuantity(kind, id string, qty int) *Error {
	return New(Validation, fmt.Sprintf("%s %s: quantity must be at least 1, got %d", kind, id, qty), ErrInvalidQuantity)
}

func OrderNotFound(id string) *Error {
	return New(NotFound, fmt.Sprintf("order %s not found", id), ErrOrderNotFound)
}

func UserNotFound(id string) *Error {
	return New(NotFound, fmt.Sprintf("user %s not found", id), ErrUserNotFound)
}

func DiscountNotFound(id string) *Error {
	return New(NotFound, fmt.Sprintf("discount %s not found", id), ErrDiscountNotFound)
}

func DiscountExpired(id string) *Error {
	return New(Validation, fmt.Sprintf("discount %s is not valid at this time", id), ErrDiscountExpired)
}

func DiscountExhausted(id string) *Error {
	return New(Validation, fmt.Sprintf("discount %s has no remaining uses", id), ErrDiscountExhausted)
}

func DiscountBelowMinSpend(id, minSpend string) *Error {
	return New(Validation, fmt.Sprintf("discount %s requires a minimum spend of %s", id, minSpend), ErrDiscountBelowMinSpend)
}

func DiscountNotApplicable(id string) *Error {
	return New(Validation, fmt.Sprintf("discount %s does not apply to this order", id), ErrDiscountNotApplicable)
}

func InvalidStateTransition(orderID, from, to string) *Error {
	return New(StateConflict, fmt.Sprintf("order %s cannot move from %s to %s", orderID, from, to), ErrInvalidStateTransition)
}

func OrderBusy(orderID string) *Error {
	return New(StateConflict, fmt.Sprintf("order %s is being processed, retry shortly", orderID), ErrOrderBusy)
}

func NewUnauthorized(public string) *Error {
	return New(Unauthorized, public, nil)
}

func NewForbidden(public string) *Error {
	return New(Forbidden, public, nil)
}

func NewPaymentProvider(public string, err error) *Error {
	return New(PaymentProvider, public, err)
}

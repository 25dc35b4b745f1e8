// Package apperr defines the user-facing error taxonomy. Every expected failure
// carries an HTTP status, a stable business code and a readable message.
package apperr

import (
	"errors"
	"net/http"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int
	ErrorCode() string
	Message() string
}

// BaseError is the concrete AppError. Predefined values act as sentinels and are
// matched with errors.Is, including copies produced by WithMessage.
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	parent    *BaseError
}

// New creates a new base error
func New(httpCode int, errorCode, message string) *BaseError {
	return &BaseError{httpCode: httpCode, errorCode: errorCode, message: message}
}

func (e *BaseError) Error() string {
	return e.message
}

func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

func (e *BaseError) Message() string {
	return e.message
}

// WithMessage returns a copy with a more specific message that still matches e.
func (e *BaseError) WithMessage(message string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   message,
		parent:    e.root(),
	}
}

// Is matches copies created through WithMessage against their sentinel.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return e.root() == t.root()
}

func (e *BaseError) root() *BaseError {
	if e.parent != nil {
		return e.parent
	}
	return e
}

// From extracts the AppError in err's chain, if any.
func From(err error) (AppError, bool) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

var (
	// Lookups
	ErrNotFound         = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrProvinceNotFound = New(http.StatusNotFound, "PROVINCE_NOT_FOUND", "Province not found")
	ErrUserNotFound     = New(http.StatusNotFound, "USER_NOT_FOUND", "Not found this user")
	ErrNotAssigned      = New(http.StatusNotFound, "PROVINCE_NOT_ASSIGNED", "Province is not in your target provinces list")

	// Uniqueness
	ErrCitizenIDExists     = New(http.StatusConflict, "CITIZEN_ID_EXISTS", "Citizen ID already exists")
	ErrPhoneNumberExists   = New(http.StatusConflict, "PHONE_NUMBER_EXISTS", "Phone number already exists")
	ErrEmailExists         = New(http.StatusConflict, "EMAIL_EXISTS", "Email already exists")
	ErrProvinceNameExists  = New(http.StatusConflict, "PROVINCE_NAME_EXISTS", "Province name already exists")
	ErrProvinceInUse       = New(http.StatusConflict, "PROVINCE_IN_USE", "Province tier cannot change while users target it")
	ErrDuplicateAssignment = New(http.StatusConflict, "DUPLICATE_ASSIGNMENT", "Province is already your target province")

	// Quota rules
	ErrTotalQuotaExceeded     = New(http.StatusBadRequest, "TOTAL_QUOTA_EXCEEDED", "Maximum total quota of 5 target provinces reached")
	ErrPrimaryQuotaExceeded   = New(http.StatusBadRequest, "PRIMARY_QUOTA_EXCEEDED", "Maximum primary province quota of 3 reached")
	ErrSecondaryQuotaExceeded = New(http.StatusBadRequest, "SECONDARY_QUOTA_EXCEEDED", "Maximum secondary province quota of 2 reached")
	ErrAddressConflict        = New(http.StatusBadRequest, "ADDRESS_CONFLICT", "Province matches your registered address")

	// Authentication
	ErrUnauthorized       = New(http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
	ErrInvalidCredentials = New(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect citizen ID/phone number or password")
	ErrIncorrectPassword  = New(http.StatusUnauthorized, "INCORRECT_PASSWORD", "Incorrect password")
	ErrForbidden          = New(http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource")

	// General
	ErrValidation = New(http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request")
	ErrInternal   = New(http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
)

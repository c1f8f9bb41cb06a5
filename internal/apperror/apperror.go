// Package apperror defines the stable error taxonomy shared by every
// service. Handlers map these codes onto HTTP statuses; tests and API
// clients match on Code and Message, which are part of the public
// contract and must not drift.
package apperror

import (
	"errors"
	"strings"
)

type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidation      Code = "VALIDATION"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

// Error carries a machine-readable code alongside the caller-facing
// message. Resource, Field and RequiredRole are optional context.
type Error struct {
	Code         Code   `json:"code"`
	Message      string `json:"message"`
	Resource     string `json:"resource,omitempty"`
	ID           string `json:"id,omitempty"`
	Field        string `json:"field,omitempty"`
	RequiredRole string `json:"required_role,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unauthenticated reports that the caller has no identity at all.
func Unauthenticated() *Error {
	return &Error{Code: CodeUnauthenticated, Message: "Not authenticated"}
}

// Forbidden reports that an identified caller lacks the required role.
func Forbidden(requiredRole string) *Error {
	return &Error{Code: CodeForbidden, Message: "Not authorized", RequiredRole: requiredRole}
}

// ForbiddenMessage is Forbidden with a caller-specific message, used for
// invariants such as "Cannot remove organization owner".
func ForbiddenMessage(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// NotFound reports a missing resource. The message capitalizes the
// resource name, e.g. notFound("project") -> "Project not found".
func NotFound(resource, id string) *Error {
	capitalized := resource
	if len(resource) > 0 {
		capitalized = strings.ToUpper(resource[:1]) + resource[1:]
	}
	return &Error{Code: CodeNotFound, Message: capitalized + " not found", Resource: resource, ID: id}
}

// Validation reports a structural or business-rule violation.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// Conflict reports a resource-state conflict such as a duplicate key.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// CodeOf extracts the taxonomy code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func IsUnauthenticated(err error) bool { return CodeOf(err) == CodeUnauthenticated }
func IsForbidden(err error) bool       { return CodeOf(err) == CodeForbidden }
func IsNotFound(err error) bool        { return CodeOf(err) == CodeNotFound }
func IsValidation(err error) bool      { return CodeOf(err) == CodeValidation }
func IsConflict(err error) bool        { return CodeOf(err) == CodeConflict }

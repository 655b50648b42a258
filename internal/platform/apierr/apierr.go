package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// -------------- Error model & mapping --------------

type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeInvalidRange     Code = "INVALID_RANGE"
	CodeSelfRental       Code = "SELF_RENTAL"
	CodeOwnerMismatch    Code = "OWNER_MISMATCH"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInvalidToken     Code = "INVALID_TOKEN"
	CodeExpiredToken     Code = "EXPIRED_TOKEN"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeAlreadyRented    Code = "ALREADY_RENTED"
	CodeAlreadyCancelled Code = "ALREADY_CANCELLED"
	CodeTransient        Code = "TRANSIENT"
	CodeInternal         Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Is はコード単位で比較する（errors.Is(err, apierr.AlreadyRented("")) が通る）
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, msg string) *APIError { return &APIError{Code: code, Message: msg} }

func Invalid(msg string) *APIError          { return New(CodeInvalidArgument, msg) }
func InvalidRange(msg string) *APIError     { return New(CodeInvalidRange, msg) }
func SelfRental(msg string) *APIError       { return New(CodeSelfRental, msg) }
func OwnerMismatch(msg string) *APIError    { return New(CodeOwnerMismatch, msg) }
func Unauthenticated(msg string) *APIError  { return New(CodeUnauthenticated, msg) }
func Forbidden(msg string) *APIError        { return New(CodeForbidden, msg) }
func NotFound(msg string) *APIError         { return New(CodeNotFound, msg) }
func Conflict(msg string) *APIError         { return New(CodeConflict, msg) }
func AlreadyRented(msg string) *APIError    { return New(CodeAlreadyRented, msg) }
func AlreadyCancelled(msg string) *APIError { return New(CodeAlreadyCancelled, msg) }
func Internal(msg string) *APIError         { return New(CodeInternal, msg) }

// CodeOf returns the code carried by err, or CodeInternal when err is not an *APIError.
func CodeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return CodeInternal
}

// Status maps an error to its HTTP status.
func Status(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument, CodeInvalidRange, CodeSelfRental, CodeOwnerMismatch:
		return http.StatusBadRequest
	case CodeUnauthenticated, CodeInvalidToken, CodeExpiredToken:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyRented, CodeAlreadyCancelled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

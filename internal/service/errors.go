package service

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a pipeline failure
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindStaleReference ErrorKind = "stale_reference"
	KindNotFound       ErrorKind = "not_found"
	KindConversion     ErrorKind = "conversion"
	KindPersistence    ErrorKind = "persistence"
	KindInternal       ErrorKind = "internal"
)

// Error codes returned to clients
const (
	CodeUploadInvalid   = "ERR_UPLOAD_001"
	CodeUploadMissing   = "ERR_UPLOAD_002"
	CodeProcessFailed   = "ERR_PROCESS_001"
	CodeConfirmInvalid  = "ERR_CONFIRM_001"
	CodeConfirmFailed   = "ERR_CONFIRM_002"
	CodeCancelInvalid   = "ERR_CANCEL_001"
	CodeCancelFailed    = "ERR_CANCEL_002"
	CodeDeleteNotFound  = "ERR_DELETE_001"
	CodeDeleteFailed    = "ERR_DELETE_002"
	CodeArticleNotFound = "ERR_ARTICLE_001"
	CodeInvalidQuery    = "ERR_QUERY_001"
	CodeCatalogFailed   = "ERR_ARTICLE_002"
)

// Error is a classified failure carrying the client-facing code and message
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP status code
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindStaleReference:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind ErrorKind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// AsError extracts a *Error from err, classifying anything else as internal
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return newError(KindInternal, "", "internal server error", err)
}

package httputil

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/matzehuels/kitchenboard/pkg/errors"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Fields  []string    `json:"fields,omitempty"`
}

// StatusFor maps an error code to the HTTP status the API answers with.
func StatusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeNodeNotFound, errors.ErrCodeEdgeNotFound,
		errors.ErrCodeCategoryNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized, errors.ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeInFlight, errors.ErrCodeConfirmationRequired:
		return http.StatusConflict
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// CodeForStatus is the inverse of [StatusFor] for responses that carry no
// error envelope.
func CodeForStatus(status int) errors.Code {
	switch {
	case status == http.StatusUnprocessableEntity:
		return errors.ErrCodeValidation
	case status == http.StatusBadRequest:
		return errors.ErrCodeInvalidInput
	case status == http.StatusNotFound:
		return errors.ErrCodeNotFound
	case status == http.StatusUnauthorized:
		return errors.ErrCodeUnauthorized
	case status == http.StatusForbidden:
		return errors.ErrCodeForbidden
	case status == http.StatusConflict:
		return errors.ErrCodeInFlight
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return errors.ErrCodeTimeout
	case status == http.StatusTooManyRequests || status >= 500:
		return errors.ErrCodeNetwork
	}
	return errors.ErrCodeInternal
}

// Transient reports whether a response status is worth retrying.
func Transient(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes err as an error envelope. Errors without a code are
// reported as INTERNAL_ERROR and their text is not exposed.
func WriteError(w http.ResponseWriter, err error) {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		e = errors.New(errors.ErrCodeInternal, "internal error")
	}
	WriteJSON(w, StatusFor(e.Code), ErrorBody{Error: ErrorDetail{
		Code:    e.Code,
		Message: e.Message,
		Fields:  e.Fields,
	}})
}

// DecodeError converts a non-2xx response into an *errors.Error. The body is
// consumed but not closed.
func DecodeError(resp *http.Response) *errors.Error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body ErrorBody
	if json.Unmarshal(data, &body) == nil && body.Error.Code != "" {
		return &errors.Error{Code: body.Error.Code, Message: body.Error.Message, Fields: body.Error.Fields}
	}
	if resp.Request == nil {
		return errors.New(CodeForStatus(resp.StatusCode), "status %d", resp.StatusCode)
	}
	return errors.New(CodeForStatus(resp.StatusCode), "%s %s: status %d",
		resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
}

// Package response writes the JSON envelope shared by every endpoint:
//
//	{"status":200,"message":"...","data":...,"errors":{...}}
package response

import (
	"encoding/json"
	"net/http"

	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/orm"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  int         `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// Write encodes body with status.
func Write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 JSON response with data.
func Success(w http.ResponseWriter, data interface{}) {
	Write(w, http.StatusOK, Envelope{Status: http.StatusOK, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(w http.ResponseWriter, data interface{}) {
	Write(w, http.StatusCreated, Envelope{Status: http.StatusCreated, Data: data})
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Status: status, Message: message})
}

// ValidationError sends a 422 with field-level error map.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	Write(w, http.StatusUnprocessableEntity, Envelope{
		Status:  http.StatusUnprocessableEntity,
		Code:    string(apperr.Validation),
		Message: "Validation failed",
		Errors:  errs,
	})
}

// Fail maps err to its HTTP status and writes it. Internal errors are
// logged and reported without detail.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	body := Envelope{Status: status, Code: string(kind), Message: err.Error()}

	if ae, ok := apperr.As(err); ok && len(ae.Fields) > 0 {
		body.Errors = ae.Fields
	}
	if kind == apperr.Internal {
		logger.WithCtx(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		body.Message = "Internal server error"
	}
	Write(w, status, body)
}

// Paginated sends a 200 response with data and pagination metadata.
func Paginated(w http.ResponseWriter, data interface{}, pagination orm.Pagination) {
	body := map[string]interface{}{
		"items":      data,
		"pagination": pagination,
	}
	Write(w, http.StatusOK, Envelope{Status: http.StatusOK, Data: body})
}

// Unauthorized sends a 401.
func Unauthorized(w http.ResponseWriter) {
	Write(w, http.StatusUnauthorized, Envelope{Status: http.StatusUnauthorized, Code: string(apperr.Unauthenticated), Message: "Unauthorized"})
}

// Forbidden sends a 403.
func Forbidden(w http.ResponseWriter) {
	Write(w, http.StatusForbidden, Envelope{Status: http.StatusForbidden, Code: string(apperr.Forbidden), Message: "Forbidden"})
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}

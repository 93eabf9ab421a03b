// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Boundary messages shared by every handler
const (
	DetailInternalError     = "Internal Server Error"
	DetailNotAuthenticated  = "Not authenticated"
	DetailForbidden         = "Forbidden"
	DetailRateLimitExceeded = "Rate limit exceeded"
)

// ErrorResponse is the body of every non-validation error
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// FieldError describes one invalid request field
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrorResponse is the body of a 422 response
type ValidationErrorResponse struct {
	Detail []FieldError `json:"detail"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteDetail writes {"detail": message} with the given status code
func WriteDetail(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorResponse{Detail: message})
}

// WriteValidationErrors writes a 422 Unprocessable Entity response
func WriteValidationErrors(w http.ResponseWriter, errs []FieldError) {
	_ = WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Detail: errs})
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteAccepted writes 202 Accepted for work that continues after the response
func WriteAccepted(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusAccepted, data)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes 401 with a Bearer challenge
func WriteUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteDetail(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter) {
	WriteDetail(w, http.StatusForbidden, DetailForbidden)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter) {
	WriteDetail(w, http.StatusTooManyRequests, DetailRateLimitExceeded)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusServiceUnavailable, message)
}

// WriteInternalError writes the generic 500 body. The cause is never sent to
// the client; callers log it.
func WriteInternalError(w http.ResponseWriter) {
	WriteDetail(w, http.StatusInternalServerError, DetailInternalError)
}

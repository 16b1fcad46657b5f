// Package response writes the JSON envelope shared by every API route.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/pkg/bufpool"
)

// Response represents a standard API response wrapper.
//
// All JSON responses follow this structure:
//   - Status indicates the overall result ("ok", "error", "healthy", "unhealthy")
//   - Timestamp is the UTC time the response was produced
//   - Data contains the payload (optional)
//   - Error contains error details when Status indicates failure (optional)
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// JSON writes v with the given status code. Encoding happens into a buffer
// first so an encoding failure can still produce a 500.
func JSON(w http.ResponseWriter, status int, v any) {
	buf := bufpool.Get()
	defer bufpool.Put(buf)
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		logger.Error("Failed to encode JSON response", logger.Err(err))
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// Text writes a plain-text body.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// OK writes a 200 envelope carrying data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope("ok", data, ""))
}

// Created writes a 201 envelope carrying data.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, envelope("ok", data, ""))
}

// Healthy writes a 200 health envelope.
func Healthy(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope("healthy", data, ""))
}

// Unhealthy writes a 503 health envelope.
func Unhealthy(w http.ResponseWriter, data any, msg string) {
	JSON(w, http.StatusServiceUnavailable, envelope("unhealthy", data, msg))
}

// Error writes an error envelope with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, envelope("error", nil, msg))
}

// Common error helpers.

func BadRequest(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadRequest, msg)
}

func Unauthorized(w http.ResponseWriter, msg string) {
	Error(w, http.StatusUnauthorized, msg)
}

func NotFound(w http.ResponseWriter, msg string) {
	Error(w, http.StatusNotFound, msg)
}

func Conflict(w http.ResponseWriter, msg string) {
	Error(w, http.StatusConflict, msg)
}

func PayloadTooLarge(w http.ResponseWriter, msg string) {
	Error(w, http.StatusRequestEntityTooLarge, msg)
}

func RequestTimeout(w http.ResponseWriter, msg string) {
	Error(w, http.StatusRequestTimeout, msg)
}

func InternalServerError(w http.ResponseWriter, msg string) {
	Error(w, http.StatusInternalServerError, msg)
}

func BadGateway(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadGateway, msg)
}

func ServiceUnavailable(w http.ResponseWriter, msg string) {
	Error(w, http.StatusServiceUnavailable, msg)
}

func envelope(status string, data any, msg string) Response {
	return Response{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Error:     msg,
	}
}

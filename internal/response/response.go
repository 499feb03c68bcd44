// Package response writes the engine's standard JSON envelope.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"threadhub/internal/contextutils"
	"threadhub/internal/services"

	"go.uber.org/zap"
)

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse is the standard envelope for every JSON reply.
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// ErrorDetail carries structured error information.
type ErrorDetail struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ===============================
// BUILDER
// ===============================

// Builder writes API responses with request correlation.
type Builder struct {
	logger             *zap.Logger
	maskInternalErrors bool
}

// NewBuilder creates a response builder. In production internal error
// messages are masked.
func NewBuilder(logger *zap.Logger, maskInternalErrors bool) *Builder {
	return &Builder{
		logger:             logger,
		maskInternalErrors: maskInternalErrors,
	}
}

// Success writes a 200 response with data.
func (b *Builder) Success(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.write(w, r, http.StatusOK, &APIResponse{Success: true, Data: data})
}

// Created writes a 201 response with data.
func (b *Builder) Created(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.write(w, r, http.StatusCreated, &APIResponse{Success: true, Data: data})
}

// NoContent writes a 204 response.
func (b *Builder) NoContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Error maps a service error onto the envelope, falling back to a masked
// 500 for anything unrecognized.
func (b *Builder) Error(w http.ResponseWriter, r *http.Request, err error) {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		se = services.NewInternalError("internal server error")
	}

	status := se.GetStatusCode()
	message := se.Message
	if status >= http.StatusInternalServerError {
		b.logger.Error("request failed",
			zap.String("request_id", contextutils.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if b.maskInternalErrors {
			message = "internal server error"
		}
	}

	b.write(w, r, status, &APIResponse{
		Success: false,
		Error: &ErrorDetail{
			Type:    se.Type,
			Message: message,
			Code:    se.Code,
			Details: se.Details,
		},
	})
}

// BadRequest writes a 400 validation failure.
func (b *Builder) BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	b.Error(w, r, services.NewValidationError(message, nil))
}

func (b *Builder) write(w http.ResponseWriter, r *http.Request, status int, resp *APIResponse) {
	resp.RequestID = contextutils.GetRequestID(r.Context())
	resp.Timestamp = time.Now().Unix()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		b.logger.Error("failed to encode response", zap.Error(err))
	}
}

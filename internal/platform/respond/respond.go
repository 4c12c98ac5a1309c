// Copyright (c) 2026 Blood Bridge. All rights reserved.

// Package respond provides JSON response helpers for the portal's
// machine-facing endpoints (health, readiness, JSON error bodies).
//
// Every JSON response follows the same envelope: {"data": ...} on success and
// {"error": ..., "code": ...} on failure.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bloodbridge/portal/internal/platform/apperr"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
)

// SuccessEnvelope is the JSON envelope for successful responses.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the success envelope.
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// Error converts any Go error into the JSON error envelope.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	appError := Classify(request, err)
	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Error:   appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}

// Classify turns err into an [*apperr.AppError], logging anything that is a
// server-side failure. HTML handlers use it before rendering an error page.
func Classify(request *http.Request, err error) *apperr.AppError {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	appError := apperr.As(err)
	if appError == nil {
		// Unexpected: log full details but never show them.
		logger.ErrorContext(ctx, "unhandled_error_swallowed", slog.String("error", err.Error()))
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= 500 {
		logger.ErrorContext(ctx, "portal_server_error",
			slog.String("code", appError.Code),
			slog.Any("cause", appError.Cause),
		)
	}
	return appError
}

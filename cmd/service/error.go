// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
)

// ErrorBody is the JSON body of every failed request
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusOf maps an error onto its HTTP status
func statusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case stderrors.As(err, new(errors.Validation)):
		return http.StatusBadRequest
	case stderrors.As(err, new(errors.NotFound)):
		return http.StatusNotFound
	case stderrors.As(err, new(errors.Configuration)):
		return http.StatusUnprocessableEntity
	case stderrors.As(err, new(errors.TransientBackend)),
		stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.As(err, new(errors.DataShape)):
		return http.StatusBadGateway
	case stderrors.As(err, new(errors.ServiceUnavailable)):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func wrapError(ctx context.Context, err error) ErrorBody {
	status := statusOf(err)
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed",
			"status", status,
			"error", err,
		)
	} else {
		slog.WarnContext(ctx, "request rejected",
			"status", status,
			"error", err,
		)
	}
	return ErrorBody{Code: status, Message: message}
}

// writeError writes err as a JSON error body with its mapped status
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	body := wrapError(ctx, err)
	writeJSON(ctx, w, body.Code, body)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

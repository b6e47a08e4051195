// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name                 string
		inputError           error
		expectedStatus       int
		expectedErrorMessage string
	}{
		{
			name:                 "validation error",
			inputError:           pkgerrors.NewValidation("invalid input"),
			expectedStatus:       http.StatusBadRequest,
			expectedErrorMessage: "invalid input",
		},
		{
			name:                 "validation error with wrapped error",
			inputError:           pkgerrors.NewValidation("validation failed", errors.New("underlying error")),
			expectedStatus:       http.StatusBadRequest,
			expectedErrorMessage: "validation failed: underlying error",
		},
		{
			name:                 "not found error",
			inputError:           pkgerrors.NewNotFound("index set 9 does not exist"),
			expectedStatus:       http.StatusNotFound,
			expectedErrorMessage: "index set 9 does not exist",
		},
		{
			name:                 "configuration error behind a wrap",
			inputError:           fmt.Errorf("failed to build query: %w", pkgerrors.NewConfiguration("index set has no time field")),
			expectedStatus:       http.StatusUnprocessableEntity,
			expectedErrorMessage: "failed to build query: index set has no time field",
		},
		{
			name:                 "transient backend error",
			inputError:           pkgerrors.NewTransientBackend("opensearch returned status 503"),
			expectedStatus:       http.StatusGatewayTimeout,
			expectedErrorMessage: "opensearch returned status 503",
		},
		{
			name:                 "deadline exceeded",
			inputError:           fmt.Errorf("search failed: %w", context.DeadlineExceeded),
			expectedStatus:       http.StatusGatewayTimeout,
			expectedErrorMessage: "search failed: context deadline exceeded",
		},
		{
			name:                 "data shape error",
			inputError:           pkgerrors.NewDataShape("invalid search response"),
			expectedStatus:       http.StatusBadGateway,
			expectedErrorMessage: "invalid search response",
		},
		{
			name:                 "service unavailable error",
			inputError:           pkgerrors.NewServiceUnavailable("service down"),
			expectedStatus:       http.StatusServiceUnavailable,
			expectedErrorMessage: "service down",
		},
		{
			name:                 "generic error becomes internal server error",
			inputError:           errors.New("boom"),
			expectedStatus:       http.StatusInternalServerError,
			expectedErrorMessage: "boom",
		},
		{
			name:                 "nil error",
			inputError:           nil,
			expectedStatus:       http.StatusInternalServerError,
			expectedErrorMessage: "unknown error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			body := wrapError(context.Background(), tc.inputError)

			assertion.Equal(tc.expectedStatus, body.Code)
			assertion.Equal(tc.expectedErrorMessage, body.Message)
		})
	}
}

func TestWriteError(t *testing.T) {
	assertion := assert.New(t)

	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, pkgerrors.NewValidation("size must be positive"))

	assertion.Equal(http.StatusBadRequest, rec.Code)
	assertion.Equal("application/json", rec.Header().Get("Content-Type"))

	var body ErrorBody
	assertion.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	assertion.Equal(ErrorBody{Code: http.StatusBadRequest, Message: "size must be positive"}, body)
}

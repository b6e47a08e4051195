// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name              string
		existingRequestID string
		expectGenerated   bool
	}{
		{
			name:            "generates a UUID when the header is absent",
			expectGenerated: true,
		},
		{
			name:              "keeps the caller's request ID",
			existingRequestID: "existing-id-123",
		},
		{
			name:              "keeps a caller UUID as is",
			existingRequestID: "550e8400-e29b-41d4-a716-446655440000",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			var captured string
			handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = RequestIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/index_sets/2/search", nil)
			if tc.existingRequestID != "" {
				req.Header.Set(RequestIDHeader, tc.existingRequestID)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assertion.Equal(http.StatusOK, rec.Code)
			assertion.NotEmpty(captured)
			assertion.Equal(captured, rec.Header().Get(RequestIDHeader))

			if tc.expectGenerated {
				_, err := uuid.Parse(captured)
				assertion.NoError(err)
				return
			}
			assertion.Equal(tc.existingRequestID, captured)
		})
	}
}

func TestRequestIDMiddlewareUniqueIDs(t *testing.T) {
	assertion := assert.New(t)

	seen := make(map[string]bool)
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[RequestIDFromContext(r.Context())] = true
	}))

	for range 20 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
	}
	assertion.Len(seen, 20)
}

func TestRequestIDFromContext(t *testing.T) {
	assertion := assert.New(t)

	assertion.Empty(RequestIDFromContext(context.Background()))

	ctx := context.WithValue(context.Background(), requestIDKey{}, "abc")
	assertion.Equal("abc", RequestIDFromContext(ctx))
}

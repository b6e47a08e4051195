// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(retries int) Config {
	return Config{
		Timeout:      5 * time.Second,
		MaxRetries:   retries,
		RetryDelay:   5 * time.Millisecond,
		RetryBackoff: false,
	}
}

func TestClientDo(t *testing.T) {
	tests := []struct {
		name           string
		failures       int32
		failureStatus  int
		retries        int
		expectedCalls  int32
		expectedStatus int
		expectedError  bool
	}{
		{
			name:           "success on first attempt",
			retries:        2,
			expectedCalls:  1,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "server errors are retried",
			failures:       2,
			failureStatus:  http.StatusInternalServerError,
			retries:        3,
			expectedCalls:  3,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "rate limiting is retried",
			failures:       1,
			failureStatus:  http.StatusTooManyRequests,
			retries:        1,
			expectedCalls:  2,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "client errors are not retried",
			failures:       5,
			failureStatus:  http.StatusNotFound,
			retries:        3,
			expectedCalls:  1,
			expectedStatus: http.StatusNotFound,
			expectedError:  true,
		},
		{
			name:           "retries are bounded",
			failures:       5,
			failureStatus:  http.StatusBadGateway,
			retries:        2,
			expectedCalls:  3,
			expectedStatus: http.StatusBadGateway,
			expectedError:  true,
		},
	}

	assertion := assert.New(t)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				if n <= tc.failures {
					w.WriteHeader(tc.failureStatus)
					_, _ = w.Write([]byte(`{"error":"failed"}`))
					return
				}
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"message":"success"}`))
			}))
			defer server.Close()

			client := NewClient(fastConfig(tc.retries))
			resp, err := client.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})

			assertion.Equal(tc.expectedCalls, calls.Load())
			if tc.expectedError {
				assertion.Error(err)
				var statusErr *StatusError
				assertion.True(errors.As(err, &statusErr))
				assertion.Equal(tc.expectedStatus, statusErr.StatusCode)
				return
			}
			assertion.NoError(err)
			assertion.Equal(tc.expectedStatus, resp.StatusCode)
			assertion.Equal(`{"message":"success"}`, string(resp.Body))
		})
	}
}

func TestClientRetryResendsBody(t *testing.T) {
	assertion := assert.New(t)

	var calls atomic.Int32
	bodies := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- string(body)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assertion.Equal("application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(fastConfig(1))
	resp, err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Body:   []byte(`{"ips":["10.0.0.1"]}`),
	})

	assertion.NoError(err)
	assertion.Equal(http.StatusCreated, resp.StatusCode)
	assertion.Equal(`{"ips":["10.0.0.1"]}`, <-bodies)
	assertion.Equal(`{"ips":["10.0.0.1"]}`, <-bodies)
}

func TestClientDoJSON(t *testing.T) {
	assertion := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assertion.Equal(http.MethodPost, r.Method)
		assertion.Equal("token", r.Header.Get("X-Token"))
		body, _ := io.ReadAll(r.Body)
		assertion.JSONEq(`{"module":"m1"}`, string(body))
		_, _ = w.Write([]byte(`{"ips":["10.0.0.2","10.0.0.1"]}`))
	}))
	defer server.Close()

	var out struct {
		IPs []string `json:"ips"`
	}
	client := NewClient(fastConfig(0))
	err := client.DoJSON(context.Background(), http.MethodPost, server.URL,
		map[string]string{"X-Token": "token"},
		map[string]string{"module": "m1"},
		&out,
	)

	assertion.NoError(err)
	assertion.Equal([]string{"10.0.0.2", "10.0.0.1"}, out.IPs)
}

func TestClientDoCanceledContext(t *testing.T) {
	assertion := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(Config{Timeout: time.Second, MaxRetries: 3, RetryDelay: time.Second})
	_, err := client.Do(ctx, Request{Method: http.MethodGet, URL: server.URL})
	assertion.Error(err)
}

func TestDefaultConfig(t *testing.T) {
	assertion := assert.New(t)

	config := DefaultConfig()
	assertion.Equal(10*time.Second, config.Timeout)
	assertion.Equal(2, config.MaxRetries)
	assertion.Equal(200*time.Millisecond, config.RetryDelay)
	assertion.True(config.RetryBackoff)
}

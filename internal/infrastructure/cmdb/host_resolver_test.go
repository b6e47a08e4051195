// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package cmdb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	return Config{
		BaseURL:    url,
		Token:      "cmdb-token",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		RetryDelay: 5 * time.Millisecond,
	}
}

func TestHostResolverResolve(t *testing.T) {
	modules := []model.TopoNode{{BkObjID: "module", BkInstID: 1}}

	tests := []struct {
		name          string
		status        int
		body          string
		expectedHosts []model.Host
		checkError    func(*assert.Assertions, error)
	}{
		{
			name:   "hosts of a module",
			status: http.StatusOK,
			body:   `{"result":true,"code":0,"data":{"count":2,"info":[{"bk_host_innerip":"10.0.0.1","bk_cloud_id":0},{"bk_host_innerip":"10.0.0.2, 10.0.1.2","bk_cloud_id":3}]}}`,
			expectedHosts: []model.Host{
				{IP: "10.0.0.1"},
				{IP: "10.0.0.2", BkCloudID: 3},
				{IP: "10.0.1.2", BkCloudID: 3},
			},
		},
		{
			name:   "rejected by cmdb",
			status: http.StatusOK,
			body:   `{"result":false,"code":1199014,"message":"business not found"}`,
			checkError: func(assertion *assert.Assertions, err error) {
				assertion.ErrorAs(err, new(errors.Unexpected))
				assertion.ErrorContains(err, "business not found")
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{}`,
			checkError: func(assertion *assert.Assertions, err error) {
				assertion.ErrorAs(err, new(errors.Validation))
			},
		},
		{
			name:   "server error is transient",
			status: http.StatusBadGateway,
			body:   `{}`,
			checkError: func(assertion *assert.Assertions, err error) {
				assertion.True(errors.IsTransient(err))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assertion.Equal(http.MethodPost, r.Method)
				assertion.Equal(hostSearchPath, r.URL.Path)
				assertion.Equal("Bearer cmdb-token", r.Header.Get("Authorization"))

				body, _ := io.ReadAll(r.Body)
				var req hostSearchRequest
				assertion.NoError(json.Unmarshal(body, &req))
				assertion.Equal(2, req.BizID)
				assertion.Equal(modules, req.Nodes)

				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			resolver := &HostResolver{client: NewClient(testConfig(server.URL))}
			hosts, err := resolver.Resolve(context.Background(), 2, constants.TargetNodeTypeTopo, modules)

			if tc.checkError != nil {
				assertion.Error(err)
				tc.checkError(assertion, err)
				return
			}
			assertion.NoError(err)
			assertion.Equal(tc.expectedHosts, hosts)
		})
	}
}

func TestHostResolverInstanceNodes(t *testing.T) {
	assertion := assert.New(t)

	resolver := &HostResolver{client: NewClient(testConfig("http://127.0.0.1:1"))}
	hosts, err := resolver.Resolve(context.Background(), 2, constants.TargetNodeTypeInstance, []model.TopoNode{
		{IP: "10.0.0.5", BkCloudID: 1},
	})

	assertion.NoError(err)
	assertion.Equal([]model.Host{{IP: "10.0.0.5", BkCloudID: 1}}, hosts)
}

func TestNewHostResolver(t *testing.T) {
	ctx := context.Background()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{name: "reachable", config: testConfig(healthy.URL)},
		{name: "missing base URL", config: testConfig(""), expectError: true},
		{name: "unhealthy", config: testConfig(down.URL), expectError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			resolver, err := NewHostResolver(ctx, tc.config)
			if tc.expectError {
				assertion.Error(err)
				return
			}
			require.NoError(t, err)
			assertion.NoError(resolver.IsReady(ctx))
		})
	}
}

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		timeout     string
		retryDelay  string
		expected    Config
		expectError bool
	}{
		{
			name:     "defaults",
			baseURL:  "http://cmdb",
			expected: Config{BaseURL: "http://cmdb", Token: "t", Timeout: 10 * time.Second, MaxRetries: 2, RetryDelay: 500 * time.Millisecond},
		},
		{
			name:       "overrides",
			baseURL:    "http://cmdb",
			timeout:    "3s",
			retryDelay: "1s",
			expected:   Config{BaseURL: "http://cmdb", Token: "t", Timeout: 3 * time.Second, MaxRetries: 2, RetryDelay: time.Second},
		},
		{name: "missing base URL", expectError: true},
		{name: "bad timeout", baseURL: "http://cmdb", timeout: "soon", expectError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertion := assert.New(t)

			config, err := NewConfig(tc.baseURL, "t", tc.timeout, 0, tc.retryDelay)
			if tc.expectError {
				assertion.Error(err)
				return
			}
			assertion.NoError(err)
			assertion.Equal(tc.expected, config)
		})
	}
}

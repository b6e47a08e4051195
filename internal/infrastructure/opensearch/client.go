// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
)

type apiClient struct {
	client *opensearchapi.Client
}

// Search runs a search over the given indices and returns the raw response body.
// A positive scroll opens a scroll context kept alive for that long.
func (c *apiClient) Search(ctx context.Context, indices []string, body []byte, scroll time.Duration) ([]byte, error) {
	slog.DebugContext(ctx, "executing opensearch search",
		"indices", indices,
		"scroll", scroll,
	)

	resp, err := c.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: indices,
		Body:    bytes.NewReader(body),
		Params: opensearchapi.SearchParams{
			IgnoreUnavailable: opensearchapi.ToPointer(true),
			Scroll:            scroll,
		},
	})
	if err != nil {
		return nil, responseError(ctx, "search", resp.Inspect().Response, err)
	}
	return rawBody(resp.Inspect().Response)
}

// ScrollGet continues a scroll and returns the raw response body
func (c *apiClient) ScrollGet(ctx context.Context, scrollID string, ttl time.Duration) ([]byte, error) {
	resp, err := c.client.Scroll.Get(ctx, opensearchapi.ScrollGetReq{
		ScrollID: scrollID,
		Params:   opensearchapi.ScrollGetParams{Scroll: ttl},
	})
	if err != nil {
		return nil, responseError(ctx, "scroll", resp.Inspect().Response, err)
	}
	return rawBody(resp.Inspect().Response)
}

// ScrollDelete releases a scroll context
func (c *apiClient) ScrollDelete(ctx context.Context, scrollID string) error {
	resp, err := c.client.Scroll.Delete(ctx, opensearchapi.ScrollDeleteReq{
		ScrollIDs: []string{scrollID},
	})
	if err != nil {
		return responseError(ctx, "clear scroll", resp.Inspect().Response, err)
	}
	return nil
}

// Mapping returns the mapping document of every matched index keyed by index name
func (c *apiClient) Mapping(ctx context.Context, indices []string) (map[string]json.RawMessage, error) {
	resp, err := c.client.Indices.Mapping.Get(ctx, &opensearchapi.MappingGetReq{
		Indices: indices,
		Params: opensearchapi.MappingGetParams{
			IgnoreUnavailable: opensearchapi.ToPointer(true),
		},
	})
	if err != nil {
		return nil, responseError(ctx, "mapping", resp.Inspect().Response, err)
	}

	mappings := make(map[string]json.RawMessage, len(resp.Indices))
	for name, index := range resp.Indices {
		mappings[name] = index.Mappings
	}
	return mappings, nil
}

// Health reads the cluster health summary
func (c *apiClient) Health(ctx context.Context) (*clusterHealth, error) {
	resp, err := c.client.Cluster.Health(ctx, nil)
	if err != nil {
		return nil, responseError(ctx, "cluster health", resp.Inspect().Response, err)
	}
	return &clusterHealth{ClusterName: resp.ClusterName, Status: resp.Status}, nil
}

// rawBody re-reads the body the typed call already buffered. Hits are decoded from it
// again so sort values keep their exact numeric form.
func rawBody(response *opensearch.Response) ([]byte, error) {
	if response == nil || response.Body == nil {
		return nil, errors.NewDataShape("opensearch returned an empty response")
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.NewTransientBackend("failed to read opensearch response", err)
	}
	return data, nil
}

// responseError maps a failed typed call onto the service error kinds.
// A nil response means the request never got an answer.
func responseError(ctx context.Context, operation string, response *opensearch.Response, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if response == nil {
		if isTimeout(err) {
			return errors.NewTransientBackend(fmt.Sprintf("opensearch %s timed out", operation), err)
		}
		return errors.NewTransientBackend(fmt.Sprintf("opensearch %s failed", operation), err)
	}

	status := response.StatusCode
	message := fmt.Sprintf("opensearch %s returned status %d", operation, status)
	switch {
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return errors.NewTransientBackend(message, err)
	case status == http.StatusNotFound:
		return errors.NewNotFound(message, err)
	case status < http.StatusBadRequest:
		return errors.NewDataShape(fmt.Sprintf("failed to decode opensearch %s response", operation), err)
	}
	return errors.NewUnexpected(message, err)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

func newAPIClient(config Config) (*apiClient, error) {
	responseTimeout := config.ResponseTimeout
	if responseTimeout <= 0 {
		responseTimeout = 30 * time.Second
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:    []string{config.URL},
			Username:     config.Username,
			Password:     config.Password,
			DisableRetry: config.MaxRetries <= 0,
			MaxRetries:   config.MaxRetries,
			Transport: &http.Transport{
				MaxIdleConnsPerHost:   10,
				ResponseHeaderTimeout: responseTimeout,
				DialContext:           (&net.Dialer{Timeout: 3 * time.Second}).DialContext,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}
	return &apiClient{client: client}, nil
}

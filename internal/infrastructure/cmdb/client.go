// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package cmdb

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/httpclient"
)

const (
	hostSearchPath = "/api/v3/hosts/search"
	healthPath     = "/healthz"
)

// Client represents a CMDB API client
type Client struct {
	config     Config
	httpClient *httpclient.Client
}

// SearchHosts lists the hosts under the given topology nodes
func (c *Client) SearchHosts(ctx context.Context, bizID int, nodes []model.TopoNode) ([]model.Host, error) {
	var reply envelope
	err := c.makeRequest(ctx, http.MethodPost, c.url(hostSearchPath), hostSearchRequest{
		BizID: bizID,
		Nodes: nodes,
	}, &reply)
	if err != nil {
		return nil, err
	}

	if !reply.Result {
		return nil, errors.NewUnexpected(fmt.Sprintf("cmdb rejected host search: code %d: %s", reply.Code, reply.Message))
	}

	hosts := make([]model.Host, 0, len(reply.Data.Info))
	for _, info := range reply.Data.Info {
		// multi-homed hosts report every inner address
		for ip := range strings.SplitSeq(info.InnerIP, ",") {
			if ip = strings.TrimSpace(ip); ip != "" {
				hosts = append(hosts, model.Host{IP: ip, BkCloudID: info.BkCloudID})
			}
		}
	}
	return hosts, nil
}

// makeRequest performs the HTTP request to the CMDB API using the generic HTTP client
func (c *Client) makeRequest(ctx context.Context, method, url string, in, out any) error {
	headers := map[string]string{}
	if c.config.Token != "" {
		headers["Authorization"] = fmt.Sprintf("Bearer %s", c.config.Token)
	}

	err := c.httpClient.DoJSON(ctx, method, url, headers, in, out)
	if err == nil {
		return nil
	}

	var httpErr *httpclient.StatusError
	if stderrors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusNotFound:
			return errors.NewNotFound("cmdb resource not found", err)
		case httpErr.StatusCode == http.StatusBadRequest, httpErr.StatusCode == http.StatusUnprocessableEntity:
			return errors.NewValidation("invalid cmdb request", err)
		case httpErr.Retryable():
			return errors.NewTransientBackend("cmdb temporarily unavailable", err)
		default:
			return errors.NewUnexpected("unexpected cmdb error", err)
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errors.NewUnexpected("cmdb request failed", err)
}

// IsReady checks if the CMDB API is reachable
func (c *Client) IsReady(ctx context.Context) error {
	resp, err := c.httpClient.Do(ctx, httpclient.Request{Method: http.MethodGet, URL: c.url(healthPath)})
	if err != nil {
		return errors.NewServiceUnavailable("cmdb is not reachable", err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.NewServiceUnavailable("cmdb is not ready", fmt.Errorf("status code: %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) url(path string) string {
	return strings.TrimSuffix(c.config.BaseURL, "/") + path
}

// NewClient creates a new CMDB API client
func NewClient(config Config) *Client {
	httpConfig := httpclient.Config{
		Timeout:      config.Timeout,
		MaxRetries:   config.MaxRetries,
		RetryDelay:   config.RetryDelay,
		RetryBackoff: true,
	}

	return &Client{
		config:     config,
		httpClient: httpclient.NewClient(httpConfig),
	}
}

// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/nats-io/nats.go"
)

// NATSClient wraps the NATS connection and sends host resolution requests
type NATSClient struct {
	conn   *nats.Conn
	config Config
}

// NATSClientInterface defines the interface for NATS operations
// This allows for easy mocking and testing
type NATSClientInterface interface {
	ResolveHosts(ctx context.Context, request *HostsNATSRequest) (*HostsNATSResponse, error)
	IsReady(ctx context.Context) error
	Close() error
}

// ResolveHosts sends a host resolution request via NATS and waits for the reply
func (c *NATSClient) ResolveHosts(ctx context.Context, request *HostsNATSRequest) (*HostsNATSResponse, error) {
	if request == nil {
		slog.ErrorContext(ctx, "invalid NATS host request: request cannot be nil")
		return nil, errors.NewValidation("invalid NATS host request: request cannot be nil")
	}

	message, err := json.Marshal(request)
	if err != nil {
		return nil, errors.NewUnexpected("failed to encode NATS host request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	natsResponse, errRequest := c.conn.RequestWithContext(ctx, c.config.Subject, message)
	if errRequest != nil {
		slog.ErrorContext(ctx, "NATS request failed",
			"subject", c.config.Subject,
			"error", errRequest,
		)
		if stderrors.Is(errRequest, context.DeadlineExceeded) ||
			stderrors.Is(errRequest, nats.ErrTimeout) ||
			stderrors.Is(errRequest, nats.ErrNoResponders) {
			return nil, errors.NewTransientBackend("NATS host request failed", errRequest)
		}
		return nil, fmt.Errorf("NATS request failed: %w", errRequest)
	}

	slog.DebugContext(ctx, "received NATS response",
		"subject", c.config.Subject,
		"bytes", len(natsResponse.Data),
	)

	return decodeHostsResponse(natsResponse.Data)
}

func decodeHostsResponse(data []byte) (*HostsNATSResponse, error) {
	var response HostsNATSResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, errors.NewDataShape("invalid NATS host response", err)
	}
	if response.Error != "" {
		return nil, errors.NewUnexpected(fmt.Sprintf("host inventory refused the request: %s", response.Error))
	}
	return &response, nil
}

// IsReady reports whether the connection is established
func (c *NATSClient) IsReady(ctx context.Context) error {
	if c.conn == nil || !c.conn.IsConnected() {
		return errors.NewServiceUnavailable("NATS connection is not established")
	}
	return nil
}

// Close gracefully closes the NATS connection
func (c *NATSClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// NewClient creates a new NATS client with the given configuration
func NewClient(ctx context.Context, config Config) (*NATSClient, error) {
	slog.InfoContext(ctx, "creating NATS client",
		"url", config.URL,
		"subject", config.Subject,
		"timeout", config.Timeout,
	)

	opts := []nats.Option{
		nats.Name("lfx-v2-log-search-service"),
		nats.Timeout(config.Timeout),
		nats.MaxReconnects(config.MaxReconnect),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.WarnContext(ctx, "NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed")
		}),
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to NATS", "error", err)
		return nil, errors.NewServiceUnavailable("failed to connect to NATS", err)
	}

	client := &NATSClient{
		conn:   conn,
		config: config,
	}

	slog.InfoContext(ctx, "NATS client created successfully",
		"connected_url", conn.ConnectedUrl(),
		"status", conn.Status(),
	)

	return client, nil
}

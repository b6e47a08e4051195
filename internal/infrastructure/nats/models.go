// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
)

// Config represents NATS configuration
type Config struct {
	// URL is the NATS server URL
	URL string `json:"url"`
	// Subject answers host resolution requests
	Subject string `json:"subject"`
	// Timeout is the request timeout duration
	Timeout time.Duration `json:"timeout"`
	// MaxReconnect is the maximum number of reconnection attempts
	MaxReconnect int `json:"max_reconnect"`
	// ReconnectWait is the time to wait between reconnection attempts
	ReconnectWait time.Duration `json:"reconnect_wait"`
}

// HostsNATSRequest is the message published on the host resolution subject
type HostsNATSRequest struct {
	BizID    int              `json:"bk_biz_id"`
	NodeType string           `json:"node_type"`
	Nodes    []model.TopoNode `json:"nodes"`
}

// HostsNATSResponse is the reply of the inventory service; Error is set when it refused the request
type HostsNATSResponse struct {
	Hosts []model.Host `json:"hosts"`
	Error string       `json:"error,omitempty"`
}

// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package opensearch

import "time"

// Config represents OpenSearch configuration
type Config struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// MaxRetries bounds transport retries on 502/503/504; zero disables them
	MaxRetries int `json:"max_retries"`
	// ResponseTimeout bounds the wait for response headers
	ResponseTimeout time.Duration `json:"response_timeout"`
}

// mappingDocument is the mapping of one physical index
type mappingDocument struct {
	Properties map[string]mappingProperty `json:"properties"`
}

// mappingProperty is one node of an index mapping
type mappingProperty struct {
	Type       string                     `json:"type"`
	DocValues  *bool                      `json:"doc_values,omitempty"`
	Properties map[string]mappingProperty `json:"properties,omitempty"`
}

// clusterHealth is the subset of the cluster health response readiness looks at
type clusterHealth struct {
	ClusterName string `json:"cluster_name"`
	Status      string `json:"status"`
}

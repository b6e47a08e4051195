// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

type requestIDHeaderType string

// RequestIDHeader is the header name for the request ID
const RequestIDHeader requestIDHeaderType = "X-REQUEST-ID"

const (
	// ContentTypeJSON is used for regular responses
	ContentTypeJSON = "application/json"
	// ContentTypeNDJSON is used for streamed export responses
	ContentTypeNDJSON = "application/x-ndjson"
)

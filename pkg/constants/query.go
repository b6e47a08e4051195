// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

const (
	// MaxResultWindow is the largest number of hits a single backend call may return
	MaxResultWindow = 10000
	// MaxSearchSize is the largest size accepted for scroll-mode searches
	MaxSearchSize = 100000
	// DefaultSearchSize is used when the request does not carry a size
	DefaultSearchSize = 30
	// MaxExportRequestRetry bounds retries of timed out export page fetches
	MaxExportRequestRetry = 3
	// DefaultScrollTTL keeps a scroll context alive between two page fetches
	DefaultScrollTTL = time.Minute
	// AsyncSorted is the order applied to every export sort field
	AsyncSorted = "desc"
	// DefaultBkCloudID is assumed for hosts given as a plain ip list
	DefaultBkCloudID = 0

	// HistoryRecordWindow suppresses duplicate history records
	HistoryRecordWindow = 5 * time.Minute
	// HistoryListLimit bounds the per-user history listing
	HistoryListLimit = 10
	// FieldCatalogTTL is how long a mapping-derived field list stays cached
	FieldCatalogTTL = 24 * time.Hour

	// DefaultSearchType is the interactive search; its history is returned instead of persisted
	DefaultSearchType = "default"

	// HighlightPreTag and HighlightPostTag wrap highlighted fragments
	HighlightPreTag  = "<mark>"
	HighlightPostTag = "</mark>"
)

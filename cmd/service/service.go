// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	usecase "github.com/linuxfoundation/lfx-v2-log-search-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/log"
)

// LogSearchAPI is the HTTP surface of the log search service
type LogSearchAPI struct {
	svc  *usecase.LogSearch
	auth port.Authenticator
	now  func() time.Time
}

// JWTAuth authenticates the bearer token and returns a context carrying the username.
func (s *LogSearchAPI) JWTAuth(ctx context.Context, token string) (context.Context, error) {
	principal, err := s.auth.ParsePrincipal(ctx, token, slog.Default())
	if err != nil {
		return ctx, err
	}

	// Log the principal in all logs for this request.
	ctx = log.AppendCtx(ctx, slog.String("principal", principal))

	return context.WithValue(ctx, constants.PrincipalContextID, principal), nil
}

// Search runs an interactive search. Default searches hand back their history entry,
// which is persisted here together with the measured duration.
func (s *LogSearchAPI) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := searchRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	slog.DebugContext(ctx, "logSearch.search",
		"index_set_id", req.IndexSetID,
		"keyword", req.Keyword,
	)

	started := s.now()
	result, err := s.svc.Search(ctx, req, searchType(r.URL.Query()))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if result.HistoryObj != nil {
		if errSave := s.svc.SaveHistory(ctx, *result.HistoryObj, s.now().Sub(started)); errSave != nil {
			slog.WarnContext(ctx, "failed to save search history", "error", errSave)
		}
	}

	writeJSON(ctx, w, http.StatusOK, result)
}

// Export streams every matching page as one NDJSON line. A failure after the first
// page is written as a final error line, since the status is already sent.
func (s *LogSearchAPI) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, pageToken, err := exportRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	slog.DebugContext(ctx, "logSearch.export",
		"index_set_id", req.IndexSetID,
		"resumed", pageToken != "",
	)

	pages, err := s.svc.Export(ctx, req, pageToken)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	started := false
	for page, errPage := range pages {
		if errPage != nil {
			if !started {
				writeError(ctx, w, errPage)
				return
			}
			_ = enc.Encode(wrapError(ctx, errPage))
			return
		}
		if !started {
			w.Header().Set("Content-Type", constants.ContentTypeNDJSON)
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if errEncode := enc.Encode(page); errEncode != nil {
			slog.WarnContext(ctx, "export stream interrupted", "error", errEncode)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if !started {
		w.Header().Set("Content-Type", constants.ContentTypeNDJSON)
		w.WriteHeader(http.StatusOK)
	}
}

// Context returns the lines around an anchor line
func (s *LogSearchAPI) Context(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := searchRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := s.svc.Context(ctx, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

// Tail returns the newest lines of a file, or the lines following an anchor
func (s *LogSearchAPI) Tail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := searchRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := s.svc.Tail(ctx, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

// Fields lists the searchable fields of an index set with the caller's display and sort preferences
func (s *LogSearchAPI) Fields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, scope, err := fieldsRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := s.svc.Fields(ctx, req, scope)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

// VerifySortList checks that every field of a sort list can be sorted on
func (s *LogSearchAPI) VerifySortList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := indexSetID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	var body SortListRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := s.svc.VerifySortList(ctx, id, body.SortList); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]bool{"valid": true})
}

// History lists the caller's recent searches of an index set
func (s *LogSearchAPI) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := indexSetID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries, err := s.svc.History(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, entries)
}

// HistoryByRange lists every search recorded in a time window, grouped by user
func (s *LogSearchAPI) HistoryByRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, end, err := historyRange(r.URL.Query(), s.now())
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries, err := s.svc.HistoryByRange(ctx, start, end)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, entries)
}

// Readyz checks if the service is able to take inbound requests.
func (s *LogSearchAPI) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.svc.IsReady(ctx); err != nil {
		slog.ErrorContext(ctx, "logSearch.readyz failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT READY\n"))
		return
	}
	_, _ = w.Write([]byte("OK\n"))
}

// Livez checks if the service is alive.
func (s *LogSearchAPI) Livez(w http.ResponseWriter, r *http.Request) {
	// This always returns as long as the service is still running. As this
	// endpoint is expected to be used as a Kubernetes liveness check, this
	// service must likewise self-detect non-recoverable errors and
	// self-terminate.
	_, _ = w.Write([]byte("OK\n"))
}

// NewLogSearchAPI returns the HTTP surface over the search engine.
func NewLogSearchAPI(svc *usecase.LogSearch, auth port.Authenticator) *LogSearchAPI {
	return &LogSearchAPI{
		svc:  svc,
		auth: auth,
		now:  time.Now,
	}
}

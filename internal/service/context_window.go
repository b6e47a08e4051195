// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"text/template"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-log-search-service/pkg/flatten"
)

const (
	directionUp   = "-"
	directionDown = "+"
)

// ContextQuery is a context or tail request against one index set
type ContextQuery struct {
	Indices    string
	ScenarioID string
	Anchor     model.ContextAnchor
	// Begin selects the direction of a single-direction context view by its sign
	Begin int
	Size  int
	Zero  bool
}

type termData struct {
	Field string
	Value any
}

type bodyData struct {
	Identity   []termData
	SeqField   string
	RangeOp    string
	Anchor     any
	SortFields []string
	Order      string
	Size       int
	From       int
}

// ContextWindowResolver reconstructs windows of log lines around an anchor line
type ContextWindowResolver struct {
	store   port.DocStoreClient
	context *template.Template
	tail    *template.Template
}

// Context returns the lines before and/or after the anchor. In zero mode both directions are
// merged in chronological order and the anchor position is reported as zero_index.
func (r *ContextWindowResolver) Context(ctx context.Context, q ContextQuery, projector *ResultProjector) (*model.ContextResult, error) {
	profile := profileFor(q.ScenarioID)
	if !profile.liveDocument {
		return emptyContextResult(), nil
	}
	if q.Anchor.GseIndexBK == "" && q.Anchor.GseIndex == "" {
		return nil, errors.NewValidation("context search requires the sequence index of the anchor line")
	}

	slog.DebugContext(ctx, "context search",
		"scenario_id", q.ScenarioID,
		"begin", q.Begin,
		"size", q.Size,
		"zero", q.Zero,
	)

	switch {
	case q.Zero:
		upBody, err := r.contextBody(q, profile, directionUp)
		if err != nil {
			return nil, err
		}
		up, err := r.run(ctx, q, upBody, projector)
		if err != nil {
			return nil, err
		}
		slices.Reverse(up.List)
		slices.Reverse(up.OriginLogList)

		downBody, err := r.contextBody(q, profile, directionDown)
		if err != nil {
			return nil, err
		}
		down, err := r.run(ctx, q, downBody, projector)
		if err != nil {
			return nil, err
		}

		merged := &model.ContextResult{SearchResult: *up}
		merged.Total = up.Total + down.Total
		merged.Took = up.Took + down.Took
		merged.List = append(up.List, down.List...)
		merged.OriginLogList = append(up.OriginLogList, down.OriginLogList...)

		zeroIndex, countStart := locateAnchor(merged.List, q.ScenarioID, q.Anchor)
		merged.ZeroIndex = &zeroIndex
		merged.CountStart = &countStart
		merged.List = projector.EnsureLog(merged.List)
		merged.OriginLogList = projector.EnsureLog(merged.OriginLogList)
		merged.DSL = string(downBody)
		return merged, nil

	case q.Begin < 0:
		body, err := r.contextBody(q, profile, directionUp)
		if err != nil {
			return nil, err
		}
		up, err := r.run(ctx, q, body, projector)
		if err != nil {
			return nil, err
		}
		slices.Reverse(up.List)
		slices.Reverse(up.OriginLogList)
		up.List = projector.EnsureLog(up.List)
		up.OriginLogList = projector.EnsureLog(up.OriginLogList)
		return &model.ContextResult{SearchResult: *up}, nil

	case q.Begin > 0:
		body, err := r.contextBody(q, profile, directionDown)
		if err != nil {
			return nil, err
		}
		down, err := r.run(ctx, q, body, projector)
		if err != nil {
			return nil, err
		}
		down.List = projector.EnsureLog(down.List)
		down.OriginLogList = projector.EnsureLog(down.OriginLogList)
		return &model.ContextResult{SearchResult: *down}, nil
	}

	return &model.ContextResult{SearchResult: model.SearchResult{List: []map[string]any{}}}, nil
}

// Tail returns the latest lines of the anchor's source in zero mode, the lines written
// after the anchor otherwise. Lines are in chronological order.
func (r *ContextWindowResolver) Tail(ctx context.Context, q ContextQuery, projector *ResultProjector) (*model.ContextResult, error) {
	profile := profileFor(q.ScenarioID)
	if !profile.liveDocument {
		return emptyContextResult(), nil
	}

	data := bodyData{
		Identity:   identityTerms(q, profile),
		SeqField:   profile.seqField,
		SortFields: []string{constants.EventTimeField, profile.seqField, profile.iterField},
		Size:       q.Size,
	}
	if q.Zero {
		data.Order = "desc"
	} else {
		anchor := anchorSequence(q.Anchor, profile)
		if anchor == "" {
			return nil, errors.NewValidation("tail search requires the sequence index of the last line read")
		}
		data.Order = "asc"
		data.RangeOp = "gt"
		data.Anchor = anchor.JSONValue()
	}

	body, err := render(r.tail, data)
	if err != nil {
		return nil, err
	}
	result, err := r.run(ctx, q, body, projector)
	if err != nil {
		return nil, err
	}
	if q.Zero {
		slices.Reverse(result.List)
		slices.Reverse(result.OriginLogList)
	}
	result.List = projector.EnsureLog(result.List)
	result.OriginLogList = projector.EnsureLog(result.OriginLogList)
	return &model.ContextResult{SearchResult: *result}, nil
}

func (r *ContextWindowResolver) contextBody(q ContextQuery, profile scenarioProfile, direction string) ([]byte, error) {
	data := bodyData{
		Identity:   identityTerms(q, profile),
		SeqField:   profile.seqField,
		Anchor:     anchorSequence(q.Anchor, profile).JSONValue(),
		SortFields: []string{constants.EventTimeField, profile.seqField, profile.iterField},
		Size:       q.Size,
		From:       abs(q.Begin),
	}
	if q.Zero {
		data.From = 0
	}
	if direction == directionUp {
		data.Order = "desc"
		data.RangeOp = "lt"
	} else {
		data.Order = "asc"
		data.RangeOp = "gte"
	}
	return render(r.context, data)
}

func (r *ContextWindowResolver) run(ctx context.Context, q ContextQuery, body []byte, projector *ResultProjector) (*model.SearchResult, error) {
	raw, err := r.store.DSL(ctx, q.Indices, q.ScenarioID, body)
	if err != nil {
		return nil, fmt.Errorf("context query failed: %w", err)
	}
	return projector.Project(raw)
}

// identityTerms pins the query to one source file: container and log file when both are
// known in the bkdata scenario, host and path otherwise
func identityTerms(q ContextQuery, profile scenarioProfile) []termData {
	a := q.Anchor
	if q.ScenarioID == constants.ScenarioBKData && a.ContainerID != "" && a.Logfile != "" {
		return []termData{
			{Field: "container_id", Value: a.ContainerID},
			{Field: "logfile", Value: a.Logfile},
		}
	}
	host := a.IP
	if profile.hostField == "serverIp" {
		host = a.ServerIP
	}
	return []termData{
		{Field: profile.hostField, Value: host},
		{Field: "path", Value: a.Path},
	}
}

func anchorSequence(a model.ContextAnchor, profile scenarioProfile) model.FlexString {
	if profile.seqField == "gseIndex" {
		return a.GseIndex
	}
	return a.GseIndexBK
}

// locateAnchor returns the position of the anchor line and the first line sharing its
// sequence index, -1 when absent. The scan stops at the anchor.
func locateAnchor(records []map[string]any, scenarioID string, a model.ContextAnchor) (zeroIndex, countStart int) {
	zeroIndex, countStart = -1, -1
	profile := profileFor(scenarioID)
	seq := anchorSequence(a, profile)
	iteration := a.IterationIdx
	if profile.iterField == "iterationIndex" {
		iteration = a.IterationIndex
	}

	for i, record := range records {
		sameSeq := matches(record, profile.seqField, string(seq))
		if countStart == -1 && sameSeq {
			countStart = i
		}
		if !sameSeq || !matches(record, profile.iterField, string(iteration)) {
			continue
		}

		var found bool
		switch scenarioID {
		case constants.ScenarioBKData:
			found = (matches(record, "ip", a.IP) && matches(record, "path", a.Path)) ||
				(matches(record, "container_id", a.ContainerID) && matches(record, "logfile", a.Logfile))
		case constants.ScenarioLog:
			found = matches(record, "serverIp", a.ServerIP) && matches(record, "path", a.Path)
		}
		if found {
			zeroIndex = i
			break
		}
	}
	return zeroIndex, countStart
}

// matches compares the rendered record value with the anchor value; an empty anchor
// value matches only a missing or null record value
func matches(record map[string]any, field, want string) bool {
	v, ok := record[field]
	if want == "" {
		return !ok || v == nil
	}
	return ok && v != nil && flatten.Render(v) == want
}

func render(tmpl *template.Template, data bodyData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.NewUnexpected("failed to render context query", err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, buf.Bytes()); err != nil {
		return nil, errors.NewUnexpected("rendered context query is not valid JSON", err)
	}
	return compact.Bytes(), nil
}

func emptyContextResult() *model.ContextResult {
	return &model.ContextResult{
		SearchResult: model.SearchResult{
			List: []map[string]any{},
		},
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func jsonValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NewContextWindowResolver parses the query templates; a parse failure is a programming error
func NewContextWindowResolver(store port.DocStoreClient) *ContextWindowResolver {
	funcs := template.FuncMap{"json": jsonValue}
	return &ContextWindowResolver{
		store:   store,
		context: template.Must(template.New("context").Funcs(funcs).Parse(contextBodySource)),
		tail:    template.Must(template.New("tail").Funcs(funcs).Parse(tailBodySource)),
	}
}

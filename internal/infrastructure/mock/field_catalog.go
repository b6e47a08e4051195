// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"sync"

	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/domain/model"
)

// MockFieldCatalog returns fixed field lists keyed by indices
type MockFieldCatalog struct {
	mu sync.Mutex

	fields map[string][]model.FieldDescriptor
	// Default is returned for indices without their own list
	Default []model.FieldDescriptor
	Err     error
	calls   int
}

// NewMockFieldCatalog creates a catalog matching the documents of NewMockDocStore
func NewMockFieldCatalog() *MockFieldCatalog {
	return &MockFieldCatalog{
		fields:  make(map[string][]model.FieldDescriptor),
		Default: LogFields(),
	}
}

// FieldsFor implements the FieldCatalog interface
func (m *MockFieldCatalog) FieldsFor(ctx context.Context, indices, scenarioID string, clusterID int, startTime, endTime string) ([]model.FieldDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if fields, ok := m.fields[indices]; ok {
		return fields, nil
	}
	return m.Default, nil
}

// SetFields sets the field list of indices
func (m *MockFieldCatalog) SetFields(indices string, fields []model.FieldDescriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[indices] = fields
}

// Calls returns the number of FieldsFor calls
func (m *MockFieldCatalog) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LogFields are the fields of the log scenario sample documents
func LogFields() []model.FieldDescriptor {
	return []model.FieldDescriptor{
		{FieldName: "dtEventTimeStamp", FieldType: "date", EsDocValues: true},
		{FieldName: "gseIndex", FieldType: "long", EsDocValues: true},
		{FieldName: "iterationIndex", FieldType: "integer", EsDocValues: true},
		{FieldName: "log", FieldType: "text"},
		{FieldName: "path", FieldType: "keyword", EsDocValues: true},
		{FieldName: "serverIp", FieldType: "keyword", EsDocValues: true},
	}
}

// BKDataFields are the fields of a bkdata result table
func BKDataFields() []model.FieldDescriptor {
	return []model.FieldDescriptor{
		{FieldName: "_iteration_idx", FieldType: "integer", EsDocValues: true},
		{FieldName: "dtEventTimeStamp", FieldType: "date", EsDocValues: true},
		{FieldName: "gseindex", FieldType: "long", EsDocValues: true},
		{FieldName: "ip", FieldType: "keyword", EsDocValues: true},
		{FieldName: "log", FieldType: "text"},
		{FieldName: "path", FieldType: "keyword", EsDocValues: true},
	}
}

// ESFields are the fields of a raw index
func ESFields() []model.FieldDescriptor {
	return []model.FieldDescriptor{
		{FieldName: "@timestamp", FieldType: "date", EsDocValues: true},
		{FieldName: "host.name", FieldType: "keyword", EsDocValues: true},
		{FieldName: "message", FieldType: "text"},
		{FieldName: "user", FieldType: "nested", Nested: true},
		{FieldName: "user.name", FieldType: "keyword", EsDocValues: true, Nested: true},
	}
}

// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import "errors"

// TransientBackend represents a document store round trip that timed out or
// was rejected with a retryable status. Callers may retry it a bounded number of times.
type TransientBackend struct {
	base
}

// Error returns the error message for TransientBackend.
func (t TransientBackend) Error() string {
	return t.error()
}

// Unwrap returns the underlying cause.
func (t TransientBackend) Unwrap() error {
	return t.unwrap()
}

// NewTransientBackend creates a new TransientBackend error with the provided message.
func NewTransientBackend(message string, err ...error) TransientBackend {
	return TransientBackend{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// DataShape represents a backend response that could not be decoded into the
// expected result shape.
type DataShape struct {
	base
}

// Error returns the error message for DataShape.
func (d DataShape) Error() string {
	return d.error()
}

// Unwrap returns the underlying cause.
func (d DataShape) Unwrap() error {
	return d.unwrap()
}

// NewDataShape creates a new DataShape error with the provided message.
func NewDataShape(message string, err ...error) DataShape {
	return DataShape{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// IsTransient reports whether err, or any error it wraps, is a TransientBackend error.
func IsTransient(err error) bool {
	var transient TransientBackend
	return errors.As(err, &transient)
}

// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import "errors"

// Validation represents a validation error in the application.
type Validation struct {
	base
}

// Error returns the error message for Validation.
func (v Validation) Error() string {
	return v.error()
}

// Unwrap returns the underlying cause.
func (v Validation) Unwrap() error {
	return v.unwrap()
}

// NewValidation creates a new Validation error with the provided message.
func NewValidation(message string, err ...error) Validation {
	return Validation{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// NotFound represents a missing resource, such as an unknown index set.
type NotFound struct {
	base
}

// Error returns the error message for NotFound.
func (n NotFound) Error() string {
	return n.error()
}

// Unwrap returns the underlying cause.
func (n NotFound) Unwrap() error {
	return n.unwrap()
}

// NewNotFound creates a new NotFound error with the provided message.
func NewNotFound(message string, err ...error) NotFound {
	return NotFound{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// Configuration represents a search that cannot run because the index set is
// not fully configured (no physical index, no time field). It is never retried.
type Configuration struct {
	base
}

// Error returns the error message for Configuration.
func (c Configuration) Error() string {
	return c.error()
}

// Unwrap returns the underlying cause.
func (c Configuration) Unwrap() error {
	return c.unwrap()
}

// NewConfiguration creates a new Configuration error with the provided message.
func NewConfiguration(message string, err ...error) Configuration {
	return Configuration{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

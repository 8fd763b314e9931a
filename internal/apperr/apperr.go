// Copyright 2026 The Eduplane Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package apperr defines the classified errors returned by provisioning
// workflows. Every error that leaves a workflow is one of four kinds; the
// HTTP layer maps kinds to status codes exhaustively.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind int

const (
	// KindUnknown is never produced by New*; it marks unclassified errors.
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindDependencyNotFound
	KindDownstream
)

// Code is the stable wire code of the kind.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "conflict"
	case KindDependencyNotFound:
		return "dependency_not_found"
	case KindDownstream:
		return "downstream_failure"
	default:
		return "internal_error"
	}
}

func (k Kind) String() string {
	return k.Code()
}

// Dependency names the external system behind a downstream failure.
type Dependency string

const (
	DependencyIdentity Dependency = "identity_provider"
	DependencyStore    Dependency = "relational_store"
)

// Error is a classified application error.
type Error struct {
	Kind       Kind
	Message    string
	Dependency Dependency
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed input caught before any step ran.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness violation on field=value.
func Conflict(field, value string, err error) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("%s %q is already in use", field, value),
		Err:     err,
	}
}

// DependencyNotFound reports a missing pre-existing row.
func DependencyNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindDependencyNotFound, Message: fmt.Sprintf(format, args...)}
}

// Downstream reports an unexpected failure from an external dependency.
func Downstream(dep Dependency, message string, err error) *Error {
	return &Error{Kind: KindDownstream, Dependency: dep, Message: message, Err: err}
}

// As extracts the classified error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnknown when err is unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// Classify returns err unchanged when already classified, otherwise wraps it
// as a downstream failure of the relational store.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return Downstream(DependencyStore, "unexpected failure", err)
}

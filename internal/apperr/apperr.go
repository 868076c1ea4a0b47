// Package apperr defines the error kinds surfaced by the catalog, the admin
// gateway and the admin form.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// FetchError reports a failed catalog load. The previous snapshot is kept.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError reports a failed create, update or delete. Message is the
// store's message and is safe to show inline in the admin form.
type MutationError struct {
	Op       string
	ID       string
	Message  string
	NotFound bool
	Err      error
}

func (e *MutationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s product %s: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s product: %s", e.Op, e.Message)
}

func (e *MutationError) Unwrap() error { return e.Err }

// ValidationError carries field -> message pairs. It is raised before any
// network call is made.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func NewFetchError(op string, err error) *FetchError {
	return &FetchError{Op: op, Err: err}
}

func NewMutationError(op, id string, err error) *MutationError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &MutationError{Op: op, ID: id, Message: msg, Err: err}
}

// HTTPStatus maps an error kind to a response status.
func HTTPStatus(err error) int {
	var ve *ValidationError
	var me *MutationError
	var fe *FetchError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &me):
		if me.NotFound {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case errors.As(err, &fe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine readable error code used in API envelopes.
func Code(err error) string {
	var ve *ValidationError
	var me *MutationError
	var fe *FetchError
	switch {
	case errors.As(err, &ve):
		return "VALIDATION_ERROR"
	case errors.As(err, &me):
		if me.NotFound {
			return "NOT_FOUND"
		}
		return "MUTATION_ERROR"
	case errors.As(err, &fe):
		return "FETCH_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"fmt"
)

// ErrUnsupported marks constructs of the format that are recognised but
// deliberately not generated (repeat, list-valued contents, size expressions).
var ErrUnsupported = errors.New("unsupported construct")

// SchemaError represents a malformed or unsupported schema construct.
type SchemaError struct {
	Path    string // dotted attribute path or document key, may be empty
	Message string
	Err     error
}

func (e *SchemaError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Path == "" {
		return "schema error: " + msg
	}
	return fmt.Sprintf("schema error at %s: %s", e.Path, msg)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Errorf builds a SchemaError for path.
func Errorf(path, format string, args ...any) *SchemaError {
	return &SchemaError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Unsupported builds a SchemaError wrapping ErrUnsupported.
func Unsupported(path, what string) *SchemaError {
	return &SchemaError{Path: path, Message: what, Err: ErrUnsupported}
}

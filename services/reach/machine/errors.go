// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package machine

import (
	"errors"
	"fmt"
)

// Sentinel errors for machine construction and parsing.
var (
	// ErrMalformedMachine indicates a dimensional mismatch between the
	// target and a toggle, or an out-of-range position.
	ErrMalformedMachine = errors.New("malformed machine")

	// ErrFormat indicates the textual input does not follow the grammar.
	ErrFormat = errors.New("invalid machine format")
)

// ParseError locates a parse failure within multi-line input.
type ParseError struct {
	// Line is the 1-based input line.
	Line int

	// Err is the underlying error; wraps ErrFormat or ErrMalformedMachine.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyOutput is returned when a backend answers with no usable text.
var ErrEmptyOutput = errors.New("llm: empty generation output")

// GenerationError reports that the backend could not produce a usable reply.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("llm: generation failed: %v", e.Err)
	}
	return fmt.Sprintf("llm: %s generation failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ParseError reports that generated text did not match the expected shape.
type ParseError struct {
	Kind string
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llm: cannot parse %s output: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err wraps a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// IsParseError reports whether err wraps a ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

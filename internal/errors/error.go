package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryProbe   Category = "probe"
	CategoryRewrite Category = "rewrite"
	CategoryServe   Category = "serve"
	CategoryCLI     Category = "cli"
)

// Location represents a position in an input file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// LazyimgError is a structured error with an input location and a suggestion.
type LazyimgError struct {
	// Code is a unique error identifier (e.g., "L001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the input position where the error occurred.
	Location *Location

	// Context contains surrounding input lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *LazyimgError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *LazyimgError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds an input location and reads the lines around it.
func (e *LazyimgError) WithLocation(file string, line, column int) *LazyimgError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *LazyimgError) WithSuggestion(s string) *LazyimgError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *LazyimgError) WithDetail(d string) *LazyimgError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *LazyimgError) Wrap(err error) *LazyimgError {
	e.Wrapped = err
	return e
}

func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a LazyimgError from a registered error code.
func New(code string) *LazyimgError {
	template, ok := registry[code]
	if !ok {
		return &LazyimgError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &LazyimgError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new LazyimgError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *LazyimgError {
	return &LazyimgError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a LazyimgError. Errors that already
// are LazyimgErrors are returned unchanged.
func FromError(err error, code string) *LazyimgError {
	if err == nil {
		return nil
	}
	if le, ok := err.(*LazyimgError); ok {
		return le
	}
	return New(code).Wrap(err)
}

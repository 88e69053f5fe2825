package config

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad is matched by every LoadError.
	ErrLoad = errors.New("config load failed")
	// ErrPathNotFound is matched by every PathError.
	ErrPathNotFound = errors.New("config path not found")
)

// LoadError reports a document that is missing or cannot be parsed.
// Line is zero when the parser did not report a position.
type LoadError struct {
	Path string
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load config %s (line %d): %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("load config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// PathError is returned by strict accessors when a dotted path is absent.
type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("config path %q not found", e.Path)
}

func (e *PathError) Is(target error) bool {
	return target == ErrPathNotFound
}

// Package trail decorates errors with the file and line of each propagation
// site, so that a failed deep operation reads like a short trace while still
// supporting errors.Is and errors.As for every error on the chain.
package trail

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
)

// From stamps err with the caller's position. It returns nil for a nil err.
// io.EOF and io.ErrUnexpectedEOF pass through untouched so that callers
// comparing against them directly keep working.
func From(err error) error {
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		return err
	}

	return mark(err, nil)
}

// Wrap stamps prev with the caller's position and attaches kind as an
// additional label, typically one of the package-level sentinel errors.
// It returns nil for a nil prev, so it can wrap every return site unguarded:
//
//	entries, err := v.ReadDirectory(cluster)
//	return entries, trail.Wrap(err, ErrReadDirectory)
//
// Both prev and kind remain visible to errors.Is / errors.As.
func Wrap(prev, kind error) error {
	if prev == nil {
		return nil
	}

	return mark(kind, prev)
}

func mark(label, prev error) error {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "unknown", 0
	}

	return &step{
		label: label,
		prev:  prev,
		file:  filepath.Base(file),
		line:  line,
	}
}

// step is one stamped position on an error's way up the stack.
type step struct {
	label error
	prev  error
	file  string
	line  int
}

func (s *step) Error() string {
	switch {
	case s.label != nil && s.prev != nil:
		return fmt.Sprintf("%s:%d: %v: %v", s.file, s.line, s.label, s.prev)
	case s.label != nil:
		return fmt.Sprintf("%s:%d: %v", s.file, s.line, s.label)
	default:
		return fmt.Sprintf("%s:%d: %v", s.file, s.line, s.prev)
	}
}

func (s *step) Unwrap() error {
	if s.prev != nil {
		return s.prev
	}
	return s.label
}

func (s *step) Is(target error) bool {
	return s.label != nil && errors.Is(s.label, target)
}

func (s *step) As(target interface{}) bool {
	return s.label != nil && errors.As(s.label, target)
}

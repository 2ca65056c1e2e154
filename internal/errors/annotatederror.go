package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError is an error message that remembers where it was raised and carries slog attributes.
type AnnotatedError struct {
	msg   string
	pc    uintptr // caller captured with runtime.Callers
	attrs []slog.Attr
}

// callerSkip skips runtime.Callers, annotate, and the exported constructor.
const callerSkip = 3

// New returns an AnnotatedError located at its caller.
func New(msg string, attrs ...slog.Attr) AnnotatedError {
	return annotate(callerSkip, msg, attrs)
}

func annotate(skip int, msg string, attrs []slog.Attr) AnnotatedError {
	pcs := make([]uintptr, 1)
	runtime.Callers(skip, pcs)
	return AnnotatedError{msg: msg, pc: pcs[0], attrs: attrs}
}

// NewSentinel returns a plain error meant to be matched with [Is].
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Wrap annotates err at the caller's location. The result is never nil, so callers check err first.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return annotate(callerSkip, msg, attrs).Wrap(err)
}

// Wrap chains inner behind the annotation so both match with [Is].
func (err AnnotatedError) Wrap(inner error) error {
	return fmt.Errorf("%w: %w", err, inner)
}

func (err AnnotatedError) Error() string {
	return err.msg
}

// LogValue groups the raising location with the annotation's attributes.
func (err AnnotatedError) LogValue() slog.Value {
	frame, _ := runtime.CallersFrames([]uintptr{err.pc}).Next()
	attrs := make([]slog.Attr, 0, len(err.attrs)+1)
	attrs = append(attrs, slog.String("source", fmt.Sprintf("%s:%d", frame.File, frame.Line)))
	attrs = append(attrs, err.attrs...)
	return slog.GroupValue(attrs...)
}

// SlogError turns err into a slog attribute with the full message and, when the chain contains an
// AnnotatedError, the outermost annotation's source location and attributes.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	var annotated AnnotatedError
	if errors.As(err, &annotated) {
		attrs := append([]slog.Attr{slog.String("message", err.Error())}, annotated.LogValue().Group()...)
		return slog.Attr{Key: "error", Value: slog.GroupValue(attrs...)}
	}
	return slog.String("error", err.Error())
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

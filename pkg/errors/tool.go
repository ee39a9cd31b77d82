package errors

import (
	"errors"
	"fmt"
)

// Kind is the wire name of an error category.
type Kind string

const (
	KindUnknownTool           Kind = "UnknownTool"
	KindMissingArgument       Kind = "MissingArgument"
	KindInvalidArgument       Kind = "InvalidArgument"
	KindArchiveUnreadable     Kind = "ArchiveUnreadable"
	KindArchiveCorrupt        Kind = "ArchiveCorrupt"
	KindNotFound              Kind = "NotFound"
	KindInvalidDateExpression Kind = "InvalidDateExpression"
	KindInternal              Kind = "Internal"
)

// sentinelKinds is checked in order; the first match wins.
var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnknownTool, KindUnknownTool},
	{ErrMissingArgument, KindMissingArgument},
	{ErrInvalidDateExpression, KindInvalidDateExpression},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrArchiveUnreadable, KindArchiveUnreadable},
	{ErrArchiveCorrupt, KindArchiveCorrupt},
	{ErrNotFound, KindNotFound},
}

// ToolError is a structured error for a failed tool call.
type ToolError struct {
	Kind    Kind
	Tool    string
	Phase   string
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Tool, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of err without allocating a ToolError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.err) {
			return sk.kind
		}
	}
	return KindInternal
}

// Classify inspects an error and returns a *ToolError with the appropriate kind.
// An existing *ToolError in the chain is returned as-is, with Tool filled in
// when it was empty. Errors that match no sentinel are KindInternal.
func Classify(err error, tool string) *ToolError {
	if err == nil {
		return nil
	}

	var te *ToolError
	if errors.As(err, &te) {
		if te.Tool == "" {
			te.Tool = tool
		}
		return te
	}

	return &ToolError{
		Kind:    KindOf(err),
		Tool:    tool,
		Message: err.Error(),
		Cause:   err,
	}
}

// New builds a ToolError of the given kind whose cause is the kind's sentinel,
// so errors.Is keeps working on the result.
func New(kind Kind, format string, args ...any) *ToolError {
	te := &ToolError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
	for _, sk := range sentinelKinds {
		if sk.kind == kind {
			te.Cause = sk.err
			break
		}
	}
	return te
}

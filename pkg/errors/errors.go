// Package errors provides the domain error taxonomy for the meeting archive.
//
// Every failure that can reach a caller maps onto one Kind. Lower layers
// return (possibly wrapped) sentinel errors; the tool boundary classifies
// them into a *ToolError carrying the kind, the tool name and the dispatch
// phase that failed.
//
// Usage:
//
//	import grerrors "github.com/otherjamesbrown/granola-mcp/pkg/errors"
//
//	// Return a domain error
//	return nil, fmt.Errorf("meeting %q: %w", id, grerrors.ErrNotFound)
//
//	// Check for domain errors
//	if grerrors.IsNotFound(err) {
//	    // handle not found case
//	}
package errors

import "errors"

// Domain errors - one sentinel per error kind.
var (
	// ErrUnknownTool indicates the requested tool is not in the registry.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrMissingArgument indicates a required tool argument was not supplied.
	ErrMissingArgument = errors.New("missing argument")

	// ErrInvalidArgument indicates a tool argument has the wrong type or value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrArchiveUnreadable indicates the archive file is missing, unreadable,
	// or its outer envelope is not valid JSON.
	ErrArchiveUnreadable = errors.New("archive unreadable")

	// ErrArchiveCorrupt indicates the embedded archive payload could not be decoded.
	ErrArchiveCorrupt = errors.New("archive corrupt")

	// ErrNotFound indicates the requested meeting is absent from the current snapshot.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDateExpression indicates a date expression matched neither
	// the relative nor the absolute grammar.
	ErrInvalidDateExpression = errors.New("invalid date expression")
)

// IsUnknownTool reports whether any error in err's chain is ErrUnknownTool.
func IsUnknownTool(err error) bool {
	return errors.Is(err, ErrUnknownTool)
}

// IsMissingArgument reports whether any error in err's chain is ErrMissingArgument.
func IsMissingArgument(err error) bool {
	return errors.Is(err, ErrMissingArgument)
}

// IsInvalidArgument reports whether any error in err's chain is ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsArchiveUnreadable reports whether any error in err's chain is ErrArchiveUnreadable.
func IsArchiveUnreadable(err error) bool {
	return errors.Is(err, ErrArchiveUnreadable)
}

// IsArchiveCorrupt reports whether any error in err's chain is ErrArchiveCorrupt.
func IsArchiveCorrupt(err error) bool {
	return errors.Is(err, ErrArchiveCorrupt)
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidDateExpression reports whether any error in err's chain is ErrInvalidDateExpression.
func IsInvalidDateExpression(err error) bool {
	return errors.Is(err, ErrInvalidDateExpression)
}

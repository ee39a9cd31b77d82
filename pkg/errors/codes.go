package errors

// KindInfo contains metadata about an error kind.
type KindInfo struct {
	Kind            Kind
	CallerError     bool
	Description     string
	SuggestedAction string
}

// KindRegistry maps error kinds to their metadata.
var KindRegistry = map[Kind]KindInfo{
	KindUnknownTool: {
		Kind:            KindUnknownTool,
		CallerError:     true,
		Description:     "Tool name is not in the registry",
		SuggestedAction: "List available tools: granola serve --http, GET /v1/tools",
	},
	KindMissingArgument: {
		Kind:            KindMissingArgument,
		CallerError:     true,
		Description:     "A required tool argument was not supplied",
		SuggestedAction: "Check the tool's input schema for required fields",
	},
	KindInvalidArgument: {
		Kind:            KindInvalidArgument,
		CallerError:     true,
		Description:     "A tool argument has the wrong type or an out-of-range value",
		SuggestedAction: "Check the tool's input schema for argument types and enums",
	},
	KindInvalidDateExpression: {
		Kind:            KindInvalidDateExpression,
		CallerError:     true,
		Description:     "Date must be relative (3d, 24h, 1w, 2m, 1y) or absolute (YYYY-MM-DD [HH:MM:SS])",
		SuggestedAction: "Use a relative offset like 7d or an absolute date like 2025-06-01",
	},
	KindNotFound: {
		Kind:            KindNotFound,
		CallerError:     true,
		Description:     "Meeting ID is not present in the current archive snapshot",
		SuggestedAction: "Find valid IDs with search-meetings, or call refresh if the meeting is new",
	},
	KindArchiveUnreadable: {
		Kind:            KindArchiveUnreadable,
		CallerError:     false,
		Description:     "Archive file is missing, unreadable, or not valid JSON",
		SuggestedAction: "Check archive_path: granola config show",
	},
	KindArchiveCorrupt: {
		Kind:            KindArchiveCorrupt,
		CallerError:     false,
		Description:     "Archive envelope is valid but its embedded payload could not be decoded",
		SuggestedAction: "Wait for the recorder to finish writing, then call refresh",
	},
	KindInternal: {
		Kind:            KindInternal,
		CallerError:     false,
		Description:     "Unclassified failure inside a tool",
		SuggestedAction: "Re-run with --debug and check the logs",
	},
}

// IsCallerError returns true if the kind is caused by the caller's input.
func IsCallerError(kind Kind) bool {
	if info, ok := KindRegistry[kind]; ok {
		return info.CallerError
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given kind.
func GetSuggestedAction(kind Kind) string {
	if info, ok := KindRegistry[kind]; ok {
		return info.SuggestedAction
	}
	return "Re-run with --debug and check the logs"
}

// GetDescription returns the human-readable description for the given kind.
func GetDescription(kind Kind) string {
	if info, ok := KindRegistry[kind]; ok {
		return info.Description
	}
	return "Unknown error"
}

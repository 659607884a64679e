// Package core provides the normalization and consolidation pipeline.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Pipeline failures that name a file, header or row count are additionally
// carried verbatim in UserMessage.Detail so the offending identifiers reach the
// end user unchanged.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum size limit
//	          Action: Split the file into smaller chunks
//	          Patterns: "file too large"
//
//	FILE002 - Unsupported file: Only .xlsx, .xls and .csv files can be processed
//	          Action: Export the spreadsheet as .xlsx or .csv
//	          Patterns: "unsupported file type"
//
//	FILE003 - Unreadable file: The file could not be decoded
//	          Action: Re-export the file and try again
//	          Kind: KindRead
//
//	FILE004 - No file: No file was selected
//	          Action: Please select at least one file
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The file has no header row
//	          Action: Upload a file with a header row
//	          Patterns: "empty file"
//
// # Header Errors (HDR001-HDR099)
//
//	HDR001 - Header collision: Two columns normalize to the same name
//	         Kind: KindHeaderCollision
//
//	HDR002 - Header mismatch: Files do not share the same columns
//	         Kind: KindHeaderMismatch
//
// # Consolidation Errors (RUN001-RUN099)
//
//	RUN001 - Row count mismatch: Consolidated rows differ from the per-file total
//	         Kind: KindRowCountMismatch
//
//	RUN002 - Invalid options: Timezone or sample size is invalid
//	         Kind: KindOptions
//
//	RUN003 - System busy: Too many runs in progress
//	         Patterns: "too many concurrent runs"
//
//	RUN004 - Run not found: The processing session has expired
//	         Patterns: "run not found"
//
//	RUN005 - Request cancelled / timed out
//	         Patterns: "context canceled", "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Patterns are matched case-insensitively with strings.Contains; the first
// matching pattern wins. A typed pipeline error whose cause matches no pattern
// falls back to the message for its kind.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`          // What happened (user-friendly)
	Action  string `json:"action,omitempty"` // What to do about it
	Code    string `json:"code"`             // Error code for support reference
	Detail  string `json:"detail,omitempty"` // Verbatim pipeline error, when it names identifiers
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var kindMessages = map[ErrorKind]UserMessage{
	KindRead: {
		Message: "The file could not be read",
		Action:  "Re-export the file as .xlsx or .csv and try again",
		Code:    "FILE003",
	},
	KindHeaderCollision: {
		Message: "Two columns normalize to the same header",
		Action:  "Rename the duplicate columns or disable header normalization",
		Code:    "HDR001",
	},
	KindHeaderMismatch: {
		Message: "Files do not share the same columns",
		Action:  "Consolidate only files with identical headers in the same order",
		Code:    "HDR002",
	},
	KindRowCountMismatch: {
		Message: "Consolidated row count does not match the uploaded files",
		Action:  "Please try again; report this code if it persists",
		Code:    "RUN001",
	},
	KindOptions: {
		Message: "Processing options are invalid",
		Action:  "Pick a timezone from the tz database, e.g. Asia/Singapore",
		Code:    "RUN002",
	},
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// More specific patterns must come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only .xlsx, .xls and .csv files can be processed",
			Action:  "Export the spreadsheet as .xlsx or .csv",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select at least one file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file has no header row",
			Action:  "Upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "RUN003",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Processing session not found",
			Action:  "The session may have expired. Please process the files again",
			Code:    "RUN004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try fewer or smaller files",
			Code:    "RUN005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Pipeline errors are mapped by kind and keep their full text in Detail, since
// header and row-count failures must show the offending file and counts.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pe *PipelineError
	if errors.As(err, &pe) {
		msg, ok := matchPattern(pe.Err)
		if !ok {
			msg, ok = kindMessages[pe.Kind]
		}
		if ok {
			msg.Detail = pe.Error()
			return msg
		}
	}

	if msg, ok := matchPattern(err); ok {
		return msg
	}
	return defaultMessage
}

func matchPattern(err error) (UserMessage, bool) {
	if err == nil {
		return UserMessage{}, false
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action" followed by the detail, if any.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	out := fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
	if msg.Detail != "" {
		out += ": " + msg.Detail
	}
	return out
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

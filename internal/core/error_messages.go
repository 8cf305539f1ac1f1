// # Error Codes Reference
//
// User-facing errors carry a code that can be quoted to support staff.
// Codes are grouped by category:
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A task with this ID already exists
//	        Action: Re-run the seed with a fresh database
//	        Patterns: "duplicate key"
//
//	DB002 - Connection refused: Unable to connect to database
//	        Action: Please try again in a few moments
//	        Patterns: "connection refused"
//
//	DB003 - Connection reset: Database connection was interrupted
//	        Action: Please try again
//	        Patterns: "connection reset"
//
//	DB004 - Timeout: Operation timed out
//	        Action: Narrow your filters or try again later
//	        Patterns: "timeout", "context deadline exceeded"
//
//	DB005 - Missing table: The tasks table has not been created
//	        Action: Run the migrate command
//	        Patterns: "does not exist"
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Unknown column: The requested column does not exist
//	         Action: Reset the table view
//	         Patterns: "unknown column"
//
//	TBL002 - Unknown table: No table is registered under that name
//	         Action: Verify the address is correct
//	         Patterns: "unknown table"
//
// # Query Errors (QRY001-QRY099)
//
//	QRY001 - Invalid filter: A filter in the address could not be read
//	         Action: Clear the filter and select it again
//	         Patterns: "invalid filter value"
//
//	QRY002 - Invalid view operation: The requested change is not supported
//	         Action: Reload the page
//	         Patterns: "invalid view operation"
//
// # Session Errors (VIEW001-VIEW099)
//
//	VIEW001 - View store unavailable: Table view settings could not be saved
//	          Action: Please try again
//	          Patterns: "view store"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
//	RATE002 - Export busy: Too many exports are running
//	          Action: Please try the export again shortly
//	          Patterns: "too many concurrent exports"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: more specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database Errors (DB001-DB005)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A task with this ID already exists",
			Action:  "Re-run the seed with a fresh database",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Narrow your filters or try again later",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Narrow your filters or try again later",
			Code:    "DB004",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The tasks table has not been created",
			Action:  "Run the migrate command",
			Code:    "DB005",
		},
	},

	// =========================================================================
	// Table Errors (TBL001-TBL002)
	// =========================================================================
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "The requested column does not exist",
			Action:  "Reset the table view",
			Code:    "TBL001",
		},
	},
	{
		pattern: "unknown table",
		msg: UserMessage{
			Message: "No table is registered under that name",
			Action:  "Verify the address is correct",
			Code:    "TBL002",
		},
	},

	// =========================================================================
	// Query Errors (QRY001-QRY002)
	// =========================================================================
	{
		pattern: "invalid filter value",
		msg: UserMessage{
			Message: "A filter in the address could not be read",
			Action:  "Clear the filter and select it again",
			Code:    "QRY001",
		},
	},
	{
		pattern: "invalid view operation",
		msg: UserMessage{
			Message: "The requested change is not supported",
			Action:  "Reload the page",
			Code:    "QRY002",
		},
	},

	// =========================================================================
	// Session and Rate Limiting (VIEW001, RATE001-RATE002)
	// =========================================================================
	{
		pattern: "view store",
		msg: UserMessage{
			Message: "Table view settings could not be saved",
			Action:  "Please try again",
			Code:    "VIEW001",
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
	{
		pattern: "too many concurrent exports",
		msg: UserMessage{
			Message: "Too many exports are running",
			Action:  "Please try the export again shortly",
			Code:    "RATE002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or the ERR000 fallback.
//
// Example:
//
//	msg := MapError(errors.New("unknown column: owner"))
//	// msg.Code == "TBL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a specific pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

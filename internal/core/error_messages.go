// Package core provides the lead reconciliation pipeline.
//
// # Error Codes Reference
//
// This file defines operator-facing error messages with codes. Failed rows
// carry the code in their Outcome, and HTTP responses include it, so an
// operator can grep logs for the code and find the technical error.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this key already exists
//	        Patterns: "duplicate key"
//
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Patterns: "unique constraint", "violates unique"
//
//	DB003 - Foreign key: Referenced customer does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset", "conn closed"
//
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
// # Spreadsheet Errors (SHEET001-SHEET099)
//
//	SHEET001 - Credentials rejected by the spreadsheet provider
//	           Patterns: "invalid_grant", "unauthorized_client", "access denied"
//
//	SHEET002 - Spreadsheet or range not found
//	           Patterns: "spreadsheet not found"
//
//	SHEET003 - Spreadsheet source unavailable
//	           Patterns: "sheets api"
//
// # Cycle Errors (SYNC001-SYNC099)
//
//	SYNC001 - A cycle is already running
//	          Patterns: "already in progress"
//
//	SYNC002 - No database session for the cycle
//	          Patterns: "acquire session"
//
//	SYNC003 - Request cancelled
//	          Patterns: "context canceled"
//
//	SYNC004 - Request deadline exceeded
//	          Patterns: "context deadline exceeded"
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - A row could not be processed at all
//	         Patterns: "malformed row"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are listed
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for log correlation
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Row errors (ROW001). The reason may quote any text, so it goes first.
	// =========================================================================
	{
		pattern: "malformed row",
		msg: UserMessage{
			Message: "A sheet row could not be processed",
			Action:  "Check the row's cells in the sheet; other rows were still synced",
			Code:    "ROW001",
		},
	},

	// =========================================================================
	// Cycle errors come first: their text often embeds a driver error.
	// =========================================================================
	{
		pattern: "already in progress",
		msg: UserMessage{
			Message: "A sync cycle is already running",
			Action:  "Wait for the running cycle to finish",
			Code:    "SYNC001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request deadline exceeded",
			Action:  "Please try again",
			Code:    "SYNC004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SYNC003",
		},
	},

	// =========================================================================
	// Database Constraint Errors (DB001-DB003)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "The row will be reconciled on the next cycle",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check the sheet for duplicated rows",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check the sheet for duplicated rows",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced customer does not exist",
			Action:  "The row will be retried on the next cycle",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced customer does not exist",
			Action:  "The row will be retried on the next cycle",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DATABASE_URL and database availability",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "The row will be retried on the next cycle",
			Code:    "DB005",
		},
	},
	{
		pattern: "conn closed",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "The row will be retried on the next cycle",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "The row will be retried on the next cycle",
			Code:    "DB007",
		},
	},
	{
		pattern: "acquire session",
		msg: UserMessage{
			Message: "Could not open a database session for the cycle",
			Action:  "Check database availability and pool limits",
			Code:    "SYNC002",
		},
	},

	// =========================================================================
	// Spreadsheet Errors (SHEET001-SHEET003)
	// =========================================================================
	{
		pattern: "invalid_grant",
		msg: UserMessage{
			Message: "Spreadsheet credentials were rejected",
			Action:  "Check GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY",
			Code:    "SHEET001",
		},
	},
	{
		pattern: "unauthorized_client",
		msg: UserMessage{
			Message: "Spreadsheet credentials were rejected",
			Action:  "Check GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY",
			Code:    "SHEET001",
		},
	},
	{
		pattern: "access denied",
		msg: UserMessage{
			Message: "Spreadsheet credentials were rejected",
			Action:  "Share the spreadsheet with the service account and check its key",
			Code:    "SHEET001",
		},
	},
	{
		pattern: "spreadsheet not found",
		msg: UserMessage{
			Message: "Spreadsheet or range not found",
			Action:  "Check SPREADSHEET_ID and SHEET_RANGE, and share the sheet with the service account",
			Code:    "SHEET002",
		},
	},
	{
		pattern: "sheets api",
		msg: UserMessage{
			Message: "Spreadsheet source unavailable",
			Action:  "The sheet will be fetched again on the next cycle",
			Code:    "SHEET003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultErrorMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the application logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a UserMessage.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}
	return defaultErrorMessage
}

// FormatError returns "message (code)" for a technical error.
func FormatError(err error) string {
	msg := MapError(err)
	if msg.Code == "" {
		return ""
	}
	return fmt.Sprintf("%s (%s)", msg.Message, msg.Code)
}

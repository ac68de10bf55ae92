package core

// error_messages.go maps technical errors to user-facing messages with codes
// support staff can look up.
//
// # Landing Errors (LND001-LND099)
//
//	LND001 - Empty upload: The uploaded file has no landings
//	LND002 - Too many rows: The upload has more landings than allowed (limit)
//	LND003 - Column mismatch: A row has an unexpected number of columns
//	LND004 - Malformed CSV: A row could not be read as CSV
//	LND005 - No valid rows: None of the landings passed validation
//	LND006 - Landing limit: The document would exceed its landing limit (limit)
//	LND007 - Invalid landing: The staged landing is missing required fields
//	LND008 - Landing not found: No landing with that id on the document
//	LND009 - Product not found: No product with that id on the document
//
// # Reference Data Errors (REF001-REF099)
//
//	REF001 - Reference service: Landings could not be checked against reference data
//
// # File, Upload and Database Errors
//
//	FILE001 - File too large
//	FILE004 - No file provided
//	UPL002  - Too many concurrent uploads
//	UPL004  - Request cancelled
//	UPL005  - Request timed out
//	DB004   - Database connection refused
//	DB005   - Database connection reset
//	RATE001 - Rate limited
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.
//
// Typed errors (landing kinds, reference service failures) are matched
// first with errors.As; everything else falls through to case-insensitive
// substring patterns, first match wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catchcert/internal/landing"
	"github.com/JonMunkholm/catchcert/internal/refdata"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Limit   int    // Configured limit, for limit errors
}

// kindMessages are the messages for landing error kinds. A %d in Message is
// filled with the error's limit.
var kindMessages = map[landing.Kind]UserMessage{
	landing.KindEmptyUpload: {
		Message: "The uploaded file has no landings",
		Action:  "Upload a CSV file with one landing per row",
		Code:    "LND001",
	},
	landing.KindTooManyRows: {
		Message: "The upload has more than %d landings",
		Action:  "Split the file and upload it in parts",
		Code:    "LND002",
	},
	landing.KindColumnMismatch: {
		Message: "A row has an unexpected number of columns",
		Action:  "Check every row has 5, 6, 9 or 10 columns",
		Code:    "LND003",
	},
	landing.KindMalformedCSV: {
		Message: "A row could not be read",
		Action:  "Ensure the file is comma-separated and quotes are balanced",
		Code:    "LND004",
	},
	landing.KindNoValidRows: {
		Message: "None of the landings are valid",
		Action:  "Correct the highlighted rows and try again",
		Code:    "LND005",
	},
	landing.KindLandingLimitExceeded: {
		Message: "A document can hold at most %d landings",
		Action:  "Remove landings or start a new document",
		Code:    "LND006",
	},
	landing.KindInvalidLanding: {
		Message: "The landing is missing required details",
		Action:  "Correct the highlighted fields",
		Code:    "LND007",
	},
}

var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrLandingNotFound, UserMessage{
		Message: "Landing not found",
		Action:  "It may have been removed. Reload the document",
		Code:    "LND008",
	}},
	{ErrProductNotFound, UserMessage{
		Message: "Product not found",
		Action:  "Add the product to the document first",
		Code:    "LND009",
	}},
	{ErrTooManyUploads, UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
}

var referenceMessage = UserMessage{
	Message: "Landings could not be checked against reference data",
	Action:  "Please try again in a few moments",
	Code:    "REF001",
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively with strings.Contains.
// More specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the submitted data and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "UPL005",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
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

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(&landing.Error{Kind: landing.KindTooManyRows, Limit: 100})
//	// msg.Code == "LND002"
//	// msg.Message == "The upload has more than 100 landings"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var le *landing.Error
	if errors.As(err, &le) {
		if msg, ok := kindMessages[le.Kind]; ok {
			if strings.Contains(msg.Message, "%d") {
				msg.Message = fmt.Sprintf(msg.Message, le.Limit)
				msg.Limit = le.Limit
			}
			return msg
		}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	var se *refdata.StatusError
	if errors.As(err, &se) || errors.Is(err, refdata.ErrUnavailable) || errors.Is(err, landing.ErrIncompleteValidation) {
		return referenceMessage
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
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

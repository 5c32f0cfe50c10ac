package core

// error_messages.go turns technical errors into messages a payroll
// administrator can act on. Each message carries a code support staff can
// look up:
//
//	FILE001  File too large            split or trim the file
//	FILE002  Unreadable spreadsheet    save as .xlsx or UTF-8 .csv
//	FILE003  Encoding error            save as UTF-8
//	FILE004  No file                   select both files
//	FILE005  Empty file                header row plus data rows required
//	VAL002   Non-numeric salary        fix the Net Salary cell
//	VAL004   Missing column            add the column to the file
//	REC001   No matching employees     check both files are the same payroll
//	UPL002   System busy               retry shortly
//	UPL003   Report not found          run the comparison again
//	UPL004   Request cancelled         retry
//	UPL005   Request timeout           retry with smaller files
//	RATE001  Rate limited              wait before retrying
//	ERR000   Unknown                   check the server log
//
// Typed errors (FormatError, ValidationError, TypeError, EmptyJoinError) are
// matched first and produce messages naming the offending file and column.
// Anything else falls back to case-insensitive substring patterns.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/PayrollRecon/internal/table"
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

// errorPatterns is checked in order; the first substring match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused sheets or rows and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused sheets or rows and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "please upload both",
		msg: UserMessage{
			Message: "Please upload both old and new payroll files.",
			Action:  "Select a file for each period",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no file selected",
		msg: UserMessage{
			Message: "No file selected.",
			Action:  "Select a file for each period",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many",
		msg: UserMessage{
			Message: "Too many comparisons in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "report not found",
		msg: UserMessage{
			Message: "File not found. Please process files first.",
			Action:  "Run the comparison again to regenerate the report",
			Code:    "UPL003",
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
			Action:  "Try smaller files or try again later",
			Code:    "UPL005",
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
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTypedError(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTypedError(err error) (UserMessage, bool) {
	var (
		fe  *table.FormatError
		ve  *ValidationError
		te  *TypeError
		eje *EmptyJoinError
	)

	switch {
	case errors.As(err, &ve):
		return UserMessage{
			Message: fmt.Sprintf("Missing required column in %s file: %s", ve.Input, strings.Join(ve.Missing, ", ")),
			Action:  "Check that all required columns are present: " + strings.Join(RequiredColumns, ", "),
			Code:    "VAL004",
		}, true

	case errors.As(err, &te):
		return UserMessage{
			Message: fmt.Sprintf("%s is not a number for employee %s in the %s file", te.Column, te.Key.String(), te.Input),
			Action:  "Enter salaries as plain numbers without currency symbols or separators",
			Code:    "VAL002",
		}, true

	case errors.As(err, &eje):
		return UserMessage{
			Message: "No employees appear in both files",
			Action:  "Check that both files come from the same payroll and share Employee Numbers",
			Code:    "REC001",
		}, true

	case errors.As(err, &fe):
		input := inputOf(err)
		switch {
		case strings.Contains(fe.Reason, "encoding"):
			return UserMessage{
				Message: "The " + input + " file contains invalid characters",
				Action:  "Save the file as UTF-8 encoded CSV or as .xlsx",
				Code:    "FILE003",
			}, true
		case strings.Contains(fe.Reason, "empty file"):
			return UserMessage{
				Message: "The " + input + " file is empty",
				Action:  "Upload a file with a header row and data rows",
				Code:    "FILE005",
			}, true
		default:
			return UserMessage{
				Message: "The " + input + " file is not a readable spreadsheet (" + fe.Reason + ")",
				Action:  "Upload an .xlsx workbook or a comma-separated .csv file",
				Code:    "FILE002",
			}, true
		}
	}

	return UserMessage{}, false
}

// inputOf recovers the "old"/"new" label the engine prefixes to load errors.
func inputOf(err error) string {
	s := err.Error()
	switch {
	case strings.HasPrefix(s, InputOld+" file"):
		return InputOld
	case strings.HasPrefix(s, InputNew+" file"):
		return InputNew
	default:
		return "uploaded"
	}
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

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// IsInputError reports whether err was caused by the uploaded files
// themselves, as opposed to the system.
func IsInputError(err error) bool {
	var (
		fe  *table.FormatError
		ve  *ValidationError
		te  *TypeError
		eje *EmptyJoinError
	)
	return errors.As(err, &fe) || errors.As(err, &ve) || errors.As(err, &te) || errors.As(err, &eje)
}

// UserError wraps a technical error with its user-facing message.
// Error returns the friendly text; Unwrap exposes the original.
type UserError struct {
	Err error
	Msg UserMessage
}

// NewUserError wraps err, or returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Err: err, Msg: MapError(err)}
}

func (e *UserError) Error() string { return e.Msg.Message }

func (e *UserError) Unwrap() error { return e.Err }

package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// Typed conversion errors are matched first with errors.As. A
// ConversionFailedError stays CNV002 unless it wraps a timeout, an empty
// body or an oversized body. Anything else falls through to a
// case-insensitive pattern table; the first match wins.
//
//	FMT001  Unsupported output format       (UnsupportedFormatError)
//	FMT002  Unsupported document type       (UnsupportedDocumentKindError)
//	CNV001  Unsupported conversion pair     (UnsupportedConversionError)
//	CNV002  Conversion failed               (ConversionFailedError)
//	CNV003  Too many conversions            (ErrTooManyConversions)
//	CNV004  Conversion timed out            ("deadline exceeded")
//	IO001   Output transport failed         (TransportFailedError)
//	REQ001  Invalid request                 (RequestError)
//	FILE001 File too large                  ("request body too large")
//	FILE002 Empty file                      ("empty document")
//	RATE001 Rate limited                    ("rate limit")
//	ERR000  Unknown error                   (fallback)

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var (
	msgUnsupportedFormat = UserMessage{
		Message: "The requested output format is not supported",
		Action:  "Use one of the formats listed at /api/formats (names are case-sensitive)",
		Code:    "FMT001",
	}
	msgUnsupportedKind = UserMessage{
		Message: "The uploaded document type is not supported",
		Action:  "Send the document with its correct Content-Type",
		Code:    "FMT002",
	}
	msgUnsupportedConversion = UserMessage{
		Message: "This document type cannot be converted to the requested format",
		Action:  "Choose another output format for this document type",
		Code:    "CNV001",
	}
	msgConversionFailed = UserMessage{
		Message: "The document could not be converted",
		Action:  "Check that the file is not damaged and try again",
		Code:    "CNV002",
	}
	msgTooMany = UserMessage{
		Message: "The converter is busy",
		Action:  "Please wait a moment and try again",
		Code:    "CNV003",
	}
	msgTransport = UserMessage{
		Message: "The connection was interrupted while sending the document",
		Action:  "Please try again",
		Code:    "IO001",
	}
	msgInvalidRequest = UserMessage{
		Message: "The request is invalid",
		Action:  "Check the request parameters and try again",
		Code:    "REQ001",
	}
	msgDeadline = UserMessage{
		Message: "The conversion took too long",
		Action:  "Try a smaller document",
		Code:    "CNV004",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Upload a smaller document",
		Code:    "FILE001",
	}
	msgEmpty = UserMessage{
		Message: "The uploaded document is empty",
		Action:  "Select a file with content",
		Code:    "FILE002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns handles errors that carry no conversion type.
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg:     msgTooLarge,
	},
	{
		pattern: "empty document",
		msg:     msgEmpty,
	},
	{
		pattern: "too many concurrent conversions",
		msg:     msgTooMany,
	},
	{
		pattern: "deadline exceeded",
		msg:     msgDeadline,
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

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case IsUnsupportedFormat(err):
		return msgUnsupportedFormat
	case IsUnsupportedDocumentKind(err):
		return msgUnsupportedKind
	case IsUnsupportedConversion(err):
		return msgUnsupportedConversion
	case IsTransportFailed(err):
		return msgTransport
	case errors.Is(err, ErrTooManyConversions):
		return msgTooMany
	case IsRequestError(err):
		return msgInvalidRequest
	}

	errStr := strings.ToLower(err.Error())

	// Converter causes are free text. Only failures the HTTP layer gives
	// their own status keep their own code; the rest are CNV002.
	if IsConversionFailed(err) {
		switch {
		case errors.Is(err, context.DeadlineExceeded), strings.Contains(errStr, "deadline exceeded"):
			return msgDeadline
		case errors.Is(err, ErrEmptyDocument):
			return msgEmpty
		case strings.Contains(errStr, "request body too large"):
			return msgTooLarge
		}
		return msgConversionFailed
	}

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// ClientDetail returns the part of err that is safe to echo back to the
// caller: the offending value for resolution and request errors, "" otherwise.
func ClientDetail(err error) string {
	var (
		uf  *UnsupportedFormatError
		uk  *UnsupportedDocumentKindError
		uc  *UnsupportedConversionError
		req *RequestError
	)
	switch {
	case errors.As(err, &uf):
		return uf.Error()
	case errors.As(err, &uk):
		return uk.Error()
	case errors.As(err, &uc):
		return uc.Error()
	case errors.As(err, &req):
		return req.Error()
	}
	return ""
}

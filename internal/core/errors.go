package core

import (
	"errors"
	"fmt"
)

// UnsupportedFormatError is returned when a format token matches no target format.
type UnsupportedFormatError struct {
	Token string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported output format %q", e.Token)
}

// UnsupportedDocumentKindError is returned when a MIME type matches no document kind.
type UnsupportedDocumentKindError struct {
	MIMEType string
}

func (e *UnsupportedDocumentKindError) Error() string {
	if e.MIMEType == "" {
		return "unsupported document type: no content type declared"
	}
	return fmt.Sprintf("unsupported document type %q", e.MIMEType)
}

// UnsupportedConversionError is returned when both sides resolve but no
// converter is registered for the pair.
type UnsupportedConversionError struct {
	Options ConversionOptions
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("no converter registered for %s to %s", e.Options.From, e.Options.To.Name)
}

// ConversionFailedError wraps an error raised by a converter.
type ConversionFailedError struct {
	Options ConversionOptions
	Cause   error
}

func (e *ConversionFailedError) Error() string {
	return fmt.Sprintf("conversion %s to %s failed: %v", e.Options.From, e.Options.To.Name, e.Cause)
}

func (e *ConversionFailedError) Unwrap() error {
	return e.Cause
}

// TransportFailedError is returned when the output sink could not be written,
// typically because the client went away mid-stream.
type TransportFailedError struct {
	Cause error
}

func (e *TransportFailedError) Error() string {
	return fmt.Sprintf("output transport failed: %v", e.Cause)
}

func (e *TransportFailedError) Unwrap() error {
	return e.Cause
}

// IsUnsupportedFormat reports whether err is an UnsupportedFormatError.
func IsUnsupportedFormat(err error) bool {
	var target *UnsupportedFormatError
	return errors.As(err, &target)
}

// IsUnsupportedDocumentKind reports whether err is an UnsupportedDocumentKindError.
func IsUnsupportedDocumentKind(err error) bool {
	var target *UnsupportedDocumentKindError
	return errors.As(err, &target)
}

// IsUnsupportedConversion reports whether err is an UnsupportedConversionError.
func IsUnsupportedConversion(err error) bool {
	var target *UnsupportedConversionError
	return errors.As(err, &target)
}

// IsConversionFailed reports whether err is a ConversionFailedError.
func IsConversionFailed(err error) bool {
	var target *ConversionFailedError
	return errors.As(err, &target)
}

// IsTransportFailed reports whether err is a TransportFailedError.
func IsTransportFailed(err error) bool {
	var target *TransportFailedError
	return errors.As(err, &target)
}

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "unsupported format",
			err:      &UnsupportedFormatError{Token: "pdf"},
			wantCode: "FMT001",
		},
		{
			name:     "unsupported document kind",
			err:      &UnsupportedDocumentKindError{MIMEType: "text/unknown"},
			wantCode: "FMT002",
		},
		{
			name:     "unsupported conversion",
			err:      &UnsupportedConversionError{Options: OptionsFrom(KindPDF).Into(FormatPDF)},
			wantCode: "CNV001",
		},
		{
			name:     "conversion failed",
			err:      &ConversionFailedError{Options: odtToPDF, Cause: errors.New("zip: not a valid zip file")},
			wantCode: "CNV002",
		},
		{
			name:     "wrapped conversion failure",
			err:      fmt.Errorf("handler: %w", &ConversionFailedError{Options: odtToPDF, Cause: errors.New("x")}),
			wantCode: "CNV002",
		},
		{
			name:     "conversion timeout",
			err:      &ConversionFailedError{Options: odtToPDF, Cause: context.DeadlineExceeded},
			wantCode: "CNV004",
		},
		{
			name:     "conversion cause mentioning rate limit",
			err:      &ConversionFailedError{Options: odtToPDF, Cause: errors.New("font server: rate limit hit")},
			wantCode: "CNV002",
		},
		{
			name:     "conversion cause mentioning empty document",
			err:      &ConversionFailedError{Options: odtToPDF, Cause: errors.New("xml: empty document element")},
			wantCode: "CNV002",
		},
		{
			name:     "conversion cause mentioning busy converter",
			err:      &ConversionFailedError{Options: odtToPDF, Cause: errors.New("too many concurrent conversions in renderer")},
			wantCode: "CNV002",
		},
		{
			name:     "conversion wrapping empty upload",
			err:      &ConversionFailedError{Options: odtToPDF, Cause: ErrEmptyDocument},
			wantCode: "FILE002",
		},
		{
			name:     "conversion wrapping oversized body",
			err:      &ConversionFailedError{Options: odtToPDF, Cause: errors.New("http: request body too large")},
			wantCode: "FILE001",
		},
		{
			name:     "busy",
			err:      ErrTooManyConversions,
			wantCode: "CNV003",
		},
		{
			name:     "transport",
			err:      &TransportFailedError{Cause: errors.New("broken pipe")},
			wantCode: "IO001",
		},
		{
			name:     "request",
			err:      &RequestError{Err: errors.New("name: cannot be blank")},
			wantCode: "REQ001",
		},
		{
			name:     "body too large",
			err:      errors.New("http: request body too large"),
			wantCode: "FILE001",
		},
		{
			name:     "empty upload",
			err:      ErrEmptyDocument,
			wantCode: "FILE002",
		},
		{
			name:     "rate limit",
			err:      errors.New("Rate Limit exceeded"),
			wantCode: "RATE001",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Errorf("MapError(%v).Message is empty", tt.err)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(&UnsupportedFormatError{Token: "pdf"})
	if !strings.Contains(got, "(Code: FMT001)") {
		t.Errorf("FormatUserError = %q, want code FMT001", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if IsUserFacing(errors.New("segfault in renderer")) {
		t.Error("unknown errors should not be user facing")
	}
	if !IsUserFacing(&UnsupportedDocumentKindError{MIMEType: "x/y"}) {
		t.Error("resolution errors should be user facing")
	}
}

func TestClientDetail(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&UnsupportedFormatError{Token: "docx"}, `unsupported output format "docx"`},
		{&UnsupportedDocumentKindError{MIMEType: "text/unknown"}, `unsupported document type "text/unknown"`},
		{&ConversionFailedError{Options: odtToPDF, Cause: errors.New("/tmp/secret path")}, ""},
		{errors.New("internal"), ""},
	}

	for _, tt := range tests {
		if got := ClientDetail(tt.err); got != tt.want {
			t.Errorf("ClientDetail(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

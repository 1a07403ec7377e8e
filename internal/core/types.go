package core

import (
	"context"
	"io"
	"sort"
)

// DocumentKind identifies a source document family.
type DocumentKind string

const (
	KindODT      DocumentKind = "ODT"
	KindODS      DocumentKind = "ODS"
	KindODP      DocumentKind = "ODP"
	KindDOCX     DocumentKind = "DOCX"
	KindXLSX     DocumentKind = "XLSX"
	KindXLS      DocumentKind = "XLS"
	KindPPTX     DocumentKind = "PPTX"
	KindPDF      DocumentKind = "PDF"
	KindHTML     DocumentKind = "HTML"
	KindCSV      DocumentKind = "CSV"
	KindText     DocumentKind = "TEXT"
	KindMarkdown DocumentKind = "MARKDOWN"
	KindRSS      DocumentKind = "RSS"
)

// kindsByMIME maps lowercase base media types to document kinds.
var kindsByMIME = map[string]DocumentKind{
	"application/vnd.oasis.opendocument.text":                                   KindODT,
	"application/vnd.oasis.opendocument.spreadsheet":                            KindODS,
	"application/vnd.oasis.opendocument.presentation":                           KindODP,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   KindDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         KindXLSX,
	"application/vnd.ms-excel":                                                  KindXLS,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": KindPPTX,
	"application/pdf":       KindPDF,
	"text/html":             KindHTML,
	"application/xhtml+xml": KindHTML,
	"text/csv":              KindCSV,
	"application/csv":       KindCSV,
	"text/plain":            KindText,
	"text/markdown":         KindMarkdown,
	"text/x-markdown":       KindMarkdown,
	"application/rss+xml":   KindRSS,
	"application/atom+xml":  KindRSS,
}

// primaryMIME is the MIME type a kind is advertised with.
var primaryMIME = map[DocumentKind]string{
	KindODT:      "application/vnd.oasis.opendocument.text",
	KindODS:      "application/vnd.oasis.opendocument.spreadsheet",
	KindODP:      "application/vnd.oasis.opendocument.presentation",
	KindDOCX:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	KindXLSX:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	KindXLS:      "application/vnd.ms-excel",
	KindPPTX:     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	KindPDF:      "application/pdf",
	KindHTML:     "text/html",
	KindCSV:      "text/csv",
	KindText:     "text/plain",
	KindMarkdown: "text/markdown",
	KindRSS:      "application/rss+xml",
}

// MIMEType returns the canonical MIME type for the kind, or "" if unknown.
func (k DocumentKind) MIMEType() string {
	return primaryMIME[k]
}

// Valid reports whether k is one of the known kinds.
func (k DocumentKind) Valid() bool {
	_, ok := primaryMIME[k]
	return ok
}

// Kinds returns all known document kinds sorted by name.
func Kinds() []DocumentKind {
	kinds := make([]DocumentKind, 0, len(primaryMIME))
	for k := range primaryMIME {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// TargetFormat describes a requested output format.
type TargetFormat struct {
	Name      string `json:"name"`
	MIMEType  string `json:"mime_type"`
	Extension string `json:"extension"`
}

// IsZero reports whether the format is unresolved.
func (f TargetFormat) IsZero() bool {
	return f.Name == ""
}

func (f TargetFormat) String() string {
	return f.Name
}

var (
	FormatPDF      = TargetFormat{Name: "PDF", MIMEType: "application/pdf", Extension: "pdf"}
	FormatHTML     = TargetFormat{Name: "HTML", MIMEType: "text/html", Extension: "html"}
	FormatXHTML    = TargetFormat{Name: "XHTML", MIMEType: "application/xhtml+xml", Extension: "xhtml"}
	FormatMarkdown = TargetFormat{Name: "MARKDOWN", MIMEType: "text/markdown", Extension: "md"}
	FormatText     = TargetFormat{Name: "TEXT", MIMEType: "text/plain", Extension: "txt"}
)

var formatsByName = map[string]TargetFormat{
	FormatPDF.Name:      FormatPDF,
	FormatHTML.Name:     FormatHTML,
	FormatXHTML.Name:    FormatXHTML,
	FormatMarkdown.Name: FormatMarkdown,
	FormatText.Name:     FormatText,
}

// Formats returns all known target formats sorted by name.
func Formats() []TargetFormat {
	formats := make([]TargetFormat, 0, len(formatsByName))
	for _, f := range formatsByName {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i].Name < formats[j].Name })
	return formats
}

// ConversionOptions is the registry key: a source kind and a target format.
type ConversionOptions struct {
	From DocumentKind
	To   TargetFormat
}

// OptionsFrom starts building options for the given source kind.
//
//	opts := core.OptionsFrom(core.KindODT).Into(core.FormatPDF)
func OptionsFrom(kind DocumentKind) ConversionOptions {
	return ConversionOptions{From: kind}
}

// Into returns a copy of o targeting format f.
func (o ConversionOptions) Into(f TargetFormat) ConversionOptions {
	o.To = f
	return o
}

// Validate checks that both fields are resolved.
func (o ConversionOptions) Validate() error {
	if o.From == "" || !o.From.Valid() {
		return &UnsupportedDocumentKindError{MIMEType: string(o.From)}
	}
	if o.To.IsZero() {
		return &UnsupportedFormatError{Token: o.To.Name}
	}
	return nil
}

func (o ConversionOptions) String() string {
	return string(o.From) + "->" + o.To.Name
}

// Source is the readable side of a conversion.
type Source struct {
	// Body is consumed exactly once by the converter.
	Body io.Reader
	// Name is the logical filename of the uploaded document.
	Name string
	// Charset is the declared character set, if any.
	Charset string
}

// Converter transforms a source document into the target format of opts.
// Implementations must be safe for concurrent use with distinct streams.
type Converter interface {
	Convert(ctx context.Context, src Source, dst io.Writer, opts ConversionOptions) error
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, src Source, dst io.Writer, opts ConversionOptions) error

// Convert calls f.
func (f ConverterFunc) Convert(ctx context.Context, src Source, dst io.Writer, opts ConversionOptions) error {
	return f(ctx, src, dst, opts)
}

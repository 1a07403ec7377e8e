package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Operation selects how the converted document is presented.
type Operation string

const (
	OperationInline   Operation = "inline"
	OperationDownload Operation = "download"
)

// ParseOperation returns OperationDownload only for the exact value
// "download"; anything else, including "", is inline.
func ParseOperation(s string) Operation {
	if s == string(OperationDownload) {
		return OperationDownload
	}
	return OperationInline
}

// DefaultDocumentName is used when a request carries no filename.
const DefaultDocumentName = "document"

// MaxNameLength bounds logical filenames.
const MaxNameLength = 255

// ErrEmptyDocument is returned for uploads with no content.
var ErrEmptyDocument = errors.New("empty document")

// RequestError reports a malformed conversion request.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRequestError reports whether err is a RequestError.
func IsRequestError(err error) bool {
	var target *RequestError
	return errors.As(err, &target)
}

// ConversionRequest is an uploaded document plus presentation mode.
type ConversionRequest struct {
	Name        string
	ContentType string
	Operation   Operation
	Body        io.Reader
}

// Validate checks the request fields that are not resolution concerns.
// An unknown content type or format is left to the resolver so the
// offending value is reported as such.
func (r ConversionRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, MaxNameLength), validation.By(printable)),
		validation.Field(&r.Operation, validation.In(OperationInline, OperationDownload)),
		validation.Field(&r.Body, validation.NotNil),
	)
	if err != nil {
		return &RequestError{Err: err}
	}
	return nil
}

// PDFRequest is the JSON body accepted by the ODT to PDF convenience path.
type PDFRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"` // base64
}

// Validate checks filename and content.
func (r PDFRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Filename, validation.Required, validation.RuneLength(1, MaxNameLength), validation.By(printable)),
		validation.Field(&r.Content, validation.Required, validation.By(base64Payload)),
	)
	if err != nil {
		return &RequestError{Err: err}
	}
	return nil
}

// Decode returns the document bytes.
func (r PDFRequest) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.Content)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("content: %w", err)}
	}
	return data, nil
}

// CleanName reduces a client-supplied filename to its base name.
// Empty or unusable names become DefaultDocumentName.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(path.Base(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return DefaultDocumentName
	}
	if n := []rune(name); len(n) > MaxNameLength {
		name = string(n[:MaxNameLength])
	}
	return name
}

func printable(value interface{}) error {
	s, _ := value.(string)
	for _, r := range s {
		if unicode.IsControl(r) {
			return errors.New("must not contain control characters")
		}
	}
	return nil
}

func base64Payload(value interface{}) error {
	s, _ := value.(string)
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return errors.New("must be valid base64")
	}
	return nil
}

package core

import (
	"mime"
	"strings"
)

// ResolveSourceKind maps a declared MIME type to a document kind.
// Parameters such as charset are ignored; matching is on the base type.
func ResolveSourceKind(mimeType string) (DocumentKind, error) {
	base, ok := baseMediaType(mimeType)
	if !ok {
		return "", &UnsupportedDocumentKindError{MIMEType: mimeType}
	}
	kind, ok := kindsByMIME[base]
	if !ok {
		return "", &UnsupportedDocumentKindError{MIMEType: mimeType}
	}
	return kind, nil
}

// ResolveTargetFormat maps a format token to a target format.
// Tokens are case-sensitive: "PDF" resolves, "pdf" does not.
func ResolveTargetFormat(token string) (TargetFormat, error) {
	f, ok := formatsByName[token]
	if !ok {
		return TargetFormat{}, &UnsupportedFormatError{Token: token}
	}
	return f, nil
}

// ResolveKindName maps a kind name such as "ODT" to a document kind.
// Names are case-sensitive like format tokens.
func ResolveKindName(name string) (DocumentKind, error) {
	k := DocumentKind(name)
	if !k.Valid() {
		return "", &UnsupportedDocumentKindError{MIMEType: name}
	}
	return k, nil
}

// CharsetParam returns the charset parameter of a MIME type, or "".
func CharsetParam(mimeType string) string {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

func baseMediaType(mimeType string) (string, bool) {
	if strings.TrimSpace(mimeType) == "" {
		return "", false
	}
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		// Tolerate malformed parameters as long as the base type parses.
		if err != mime.ErrInvalidMediaParameter {
			return "", false
		}
	}
	return strings.ToLower(mt), true
}

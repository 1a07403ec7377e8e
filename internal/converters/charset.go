package converters

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText converts data to UTF-8. A byte order mark wins, then the
// declared charset, then valid UTF-8, then the detector's best guess.
func decodeText(data []byte, charset string) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), nil
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data)
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), data)
	}

	if charset != "" {
		enc, err := lookupEncoding(charset)
		if err != nil {
			return "", err
		}
		return decodeWith(enc, data)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}
	return decodeWith(detectEncoding(data), data)
}

// lookupEncoding resolves a charset label such as "latin1" or "Shift_JIS".
func lookupEncoding(label string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc, nil
}

// detectEncoding asks the detector for candidates and keeps the first one
// x/text can decode. Windows-1252 is the fallback, as in browsers.
func detectEncoding(data []byte) encoding.Encoding {
	results, err := chardet.NewTextDetector().DetectAll(data)
	if err == nil {
		for _, r := range results {
			if enc, err := lookupEncoding(r.Charset); err == nil {
				return enc
			}
		}
	}
	enc, _ := htmlindex.Get("windows-1252")
	return enc
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(out), nil
}

package converters

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// maxZipEntrySize bounds a single decompressed archive member.
const maxZipEntrySize = 256 << 20

var errEntryTooLarge = errors.New("archive member exceeds size limit")

func openZip(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return zr, nil
}

// readZipFile returns the contents of the named archive member.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 > maxZipEntrySize {
			return nil, fmt.Errorf("%s: %w", name, errEntryTooLarge)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxZipEntrySize+1))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(data) > maxZipEntrySize {
			return nil, fmt.Errorf("%s: %w", name, errEntryTooLarge)
		}
		return data, nil
	}
	return nil, fmt.Errorf("file %q not found in archive", name)
}

// metadataTitle returns the text of the first <title> element in the named
// member, as used by both ODF meta.xml and OOXML docProps/core.xml.
func metadataTitle(zr *zip.Reader, name string) string {
	data, err := readZipFile(zr, name)
	if err != nil {
		return ""
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	inTitle := false
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inTitle = t.Name.Local == "title"
		case xml.CharData:
			if inTitle {
				b.Write(t)
			}
		case xml.EndElement:
			if inTitle {
				return collapseSpace(b.String())
			}
		}
	}
}

// attr returns the value of the attribute with the given local name.
func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// relationship is one entry of an OOXML .rels part.
type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// readRelationships parses an OOXML .rels part into a map keyed by id.
// A missing part yields an empty map.
func readRelationships(zr *zip.Reader, relsPath string) map[string]relationship {
	result := make(map[string]relationship)
	data, err := readZipFile(zr, relsPath)
	if err != nil {
		return result
	}
	var rels struct {
		Relationships []relationship `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &rels); err != nil {
		return result
	}
	for _, rel := range rels.Relationships {
		result[rel.ID] = rel
	}
	return result
}

// relsPathFor returns the .rels part that belongs to filePath.
func relsPathFor(filePath string) string {
	return path.Join(path.Dir(filePath), "_rels", path.Base(filePath)+".rels")
}

// resolveTarget resolves a relationship target relative to basePath.
func resolveTarget(basePath, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(basePath), target)
}

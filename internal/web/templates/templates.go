// Package templates holds the templ components served by the web package.
//
// Components are written in *.templ files; the *_templ.go files are
// generated with `templ generate` and committed.
package templates

import "fmt"

// FormatOption is one entry of the target format selector.
type FormatOption struct {
	Name      string
	Extension string
}

// PairRow lists the targets available for one source kind.
type PairRow struct {
	Kind    string
	MIME    string
	Targets []string
}

// IndexData is everything the upload page renders.
type IndexData struct {
	Formats     []FormatOption
	Pairs       []PairRow
	MaxFileSize int64
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

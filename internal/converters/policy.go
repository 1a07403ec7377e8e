package converters

import (
	"errors"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/docconvert/internal/core"
)

// Policy restricts which pairs are registered and tunes the renderers.
type Policy struct {
	Disabled []PairRule   `yaml:"disabled"`
	PDF      PDFSettings  `yaml:"pdf"`
	HTML     HTMLSettings `yaml:"html"`
}

// PairRule names one source kind and target format, e.g. {XLS, PDF}.
// Names are case-sensitive like the HTTP format tokens.
type PairRule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// PDFSettings controls PDF page layout.
type PDFSettings struct {
	PageSize    string  `yaml:"page_size"`
	Orientation string  `yaml:"orientation"`
	FontFamily  string  `yaml:"font_family"`
	FontSize    float64 `yaml:"font_size"`
}

// HTMLSettings controls the HTML and XHTML page wrapper.
type HTMLSettings struct {
	Stylesheet string `yaml:"stylesheet"`
}

const defaultStylesheet = "body{font-family:sans-serif;max-width:50em;margin:2em auto;line-height:1.5}" +
	"table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.25em .5em}" +
	"pre{background:#f4f4f4;padding:.5em;overflow-x:auto}"

// DefaultPolicy enables every pair with A4 portrait Helvetica 11pt output.
func DefaultPolicy() *Policy {
	return &Policy{
		PDF: PDFSettings{
			PageSize:    "A4",
			Orientation: "P",
			FontFamily:  "Helvetica",
			FontSize:    11,
		},
		HTML: HTMLSettings{
			Stylesheet: defaultStylesheet,
		},
	}
}

// LoadPolicy reads a YAML policy file. Settings absent from the file keep
// their defaults. An empty path returns DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a YAML policy.
func ParsePolicy(data []byte) (*Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// Validate checks every rule and setting.
func (p *Policy) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Disabled),
		validation.Field(&p.PDF),
		validation.Field(&p.HTML),
	)
}

// Disables reports whether opts is switched off by the policy.
func (p *Policy) Disables(opts core.ConversionOptions) bool {
	for _, rule := range p.Disabled {
		if rule.From == string(opts.From) && rule.To == opts.To.Name {
			return true
		}
	}
	return false
}

// Validate checks that both names resolve.
func (r PairRule) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.Required, validation.By(knownKind)),
		validation.Field(&r.To, validation.Required, validation.By(knownFormat)),
	)
}

// Validate checks page and font settings against what the PDF writer supports.
func (s PDFSettings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.PageSize, validation.Required, validation.In("A3", "A4", "A5", "Letter", "Legal")),
		validation.Field(&s.Orientation, validation.Required, validation.In("P", "L")),
		validation.Field(&s.FontFamily, validation.Required, validation.In("Helvetica", "Arial", "Times", "Courier")),
		validation.Field(&s.FontSize, validation.Required, validation.Min(6.0), validation.Max(36.0)),
	)
}

// Validate rejects stylesheets that would close the style element.
func (s HTMLSettings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Stylesheet, validation.By(func(value interface{}) error {
			css, _ := value.(string)
			if strings.Contains(strings.ToLower(css), "</style") {
				return errors.New("must not contain a closing style tag")
			}
			return nil
		})),
	)
}

func knownKind(value interface{}) error {
	name, _ := value.(string)
	if _, err := core.ResolveKindName(name); err != nil {
		return fmt.Errorf("unknown document kind %q", name)
	}
	return nil
}

func knownFormat(value interface{}) error {
	name, _ := value.(string)
	if _, err := core.ResolveTargetFormat(name); err != nil {
		return fmt.Errorf("unknown output format %q", name)
	}
	return nil
}

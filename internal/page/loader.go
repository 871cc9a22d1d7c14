package page

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/validation"
	"gopkg.in/yaml.v3"
)

// document mirrors a page file. Section data is kept as a raw node until the
// section type is known.
type document struct {
	ID       string       `yaml:"id"`
	Title    string       `yaml:"title"`
	Sections []rawSection `yaml:"sections"`
	Theme    GlobalStyles `yaml:"theme"`
	Metadata Metadata     `yaml:"metadata"`
}

type rawSection struct {
	ID    string    `yaml:"id"`
	Type  string    `yaml:"type"`
	Order int       `yaml:"order"`
	Data  yaml.Node `yaml:"data"`
}

// Extensions lists the accepted page file extensions.
var Extensions = []string{".yaml", ".yml", ".json"}

// LoadFile reads a page from a .yaml, .yml or .json file. JSON is decoded by
// the YAML decoder, which accepts it as a subset.
func LoadFile(path string) (*Page, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, pcerrors.WrapValidation(err, pcerrors.ErrCodeInvalidPath, "invalid page file path").WithFile(path)
	}
	if err := validation.ValidateFileExtension(path, Extensions); err != nil {
		return nil, pcerrors.WrapValidation(err, pcerrors.ErrCodeUnsupportedType,
			"page file must be .yaml, .yml or .json").WithFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pcerrors.NewIOError(pcerrors.ErrCodeFileNotFound, "failed to read page file", err).WithFile(path)
	}

	p, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load page %s: %w", path, err)
	}
	return p, nil
}

// Decode parses a page document.
func Decode(r io.Reader) (*Page, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, pcerrors.NewValidationError(pcerrors.ErrCodeInvalidPage, "page document is empty")
		}
		return nil, pcerrors.NewValidationError(pcerrors.ErrCodeInvalidPage, "malformed page document").
			WithContext("cause", err.Error())
	}

	p := &Page{
		ID:       doc.ID,
		Title:    doc.Title,
		Theme:    doc.Theme,
		Metadata: doc.Metadata,
		Sections: make([]Section, 0, len(doc.Sections)),
	}

	for i, raw := range doc.Sections {
		section, err := decodeSection(raw)
		if err != nil {
			return nil, fmt.Errorf("section %d (%s): %w", i, raw.ID, err)
		}
		p.Sections = append(p.Sections, section)
	}

	return p, nil
}

func decodeSection(raw rawSection) (Section, error) {
	base := Base{ID: raw.ID, Order: raw.Order}

	switch Kind(strings.ToLower(strings.TrimSpace(raw.Type))) {
	case KindHero:
		s := &Hero{Base: base}
		return s, decodeData(raw.Data, &s.Data)
	case KindContent:
		s := &Content{Base: base}
		return s, decodeData(raw.Data, &s.Data)
	case KindCallToAction, "calltoaction", "call-to-action":
		s := &CallToAction{Base: base}
		return s, decodeData(raw.Data, &s.Data)
	default:
		return &Unrecognized{Base: base, Type: raw.Type}, nil
	}
}

func decodeData(node yaml.Node, target interface{}) error {
	if node.Kind == 0 {
		return nil
	}
	if err := node.Decode(target); err != nil {
		return pcerrors.NewValidationError(pcerrors.ErrCodeInvalidPage, "invalid section data").
			WithContext("cause", err.Error())
	}
	return nil
}

// CheckPublishable enforces the rules a page must meet before it is handed
// to the compiler for publishing.
func CheckPublishable(p *Page) error {
	if p == nil {
		return pcerrors.NewValidationError(pcerrors.ErrCodeUnpublishable, "page is nil")
	}
	if strings.TrimSpace(p.ID) == "" {
		return pcerrors.NewValidationError(pcerrors.ErrCodeUnpublishable, "page id is required")
	}
	if len(p.Sections) == 0 {
		return pcerrors.NewValidationError(pcerrors.ErrCodeUnpublishable, "page has no sections")
	}

	seen := make(map[string]bool, len(p.Sections))
	for _, s := range p.Sections {
		id := s.SectionID()
		if id == "" {
			return pcerrors.NewValidationError(pcerrors.ErrCodeUnpublishable, "section id is required")
		}
		if seen[id] {
			return pcerrors.NewValidationError(pcerrors.ErrCodeUnpublishable, "duplicate section id").WithSection(id)
		}
		seen[id] = true
	}

	if p.Theme.FontFamily != "" && !p.Theme.FontFamily.Valid() {
		return pcerrors.NewValidationError(pcerrors.ErrCodeUnpublishable,
			fmt.Sprintf("unsupported font family %q", p.Theme.FontFamily))
	}

	return nil
}

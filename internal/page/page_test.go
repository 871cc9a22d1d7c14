package page

import (
	"path/filepath"
	"strings"
	"testing"

	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileYAML(t *testing.T) {
	p, err := LoadFile(filepath.Join("testdata", "landing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "spring-launch", p.ID)
	assert.Equal(t, FontOpenSans, p.Theme.FontFamily)
	assert.Equal(t, "https://cdn.example.com/favicon.png", p.Metadata.Favicon)
	require.Len(t, p.Sections, 4)

	cta, ok := p.Sections[0].(*CallToAction)
	require.True(t, ok, "first section should decode as a call to action")
	assert.Equal(t, 2, cta.Order)
	assert.True(t, cta.Data.HasForm())
	assert.True(t, cta.Data.Fields.Email)
	assert.False(t, cta.Data.Fields.Phone)
	assert.Equal(t, ActionForm, cta.Data.Action)

	hero, ok := p.Sections[1].(*Hero)
	require.True(t, ok)
	assert.Equal(t, BackgroundGradient, hero.Data.Background.Type)
	assert.Contains(t, hero.Data.Gradient, "linear-gradient")

	content, ok := p.Sections[2].(*Content)
	require.True(t, ok)
	assert.True(t, content.Data.ShowsImage())
	assert.Equal(t, ImageRight, content.Data.ImagePosition)

	unknown, ok := p.Sections[3].(*Unrecognized)
	require.True(t, ok)
	assert.Equal(t, Kind("testimonial"), unknown.Kind())
}

func TestLoadFileJSON(t *testing.T) {
	p, err := LoadFile(filepath.Join("testdata", "minimal.json"))
	require.NoError(t, err)

	require.Len(t, p.Sections, 1)
	hero := p.Sections[0].(*Hero)
	assert.Equal(t, "Hello", hero.Data.Headline)
	assert.Equal(t, BackgroundColor, hero.Data.Type)
	assert.Equal(t, "#000", hero.Data.Color)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile("page.txt")
	assert.True(t, pcerrors.IsValidationError(err))
	assert.True(t, pcerrors.HasErrorCode(err, pcerrors.ErrCodeUnsupportedType))

	_, err = LoadFile("../../etc/page.yaml")
	assert.True(t, pcerrors.HasErrorCode(err, pcerrors.ErrCodeInvalidPath))

	_, err = LoadFile(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedData(t *testing.T) {
	doc := `
id: p
sections:
  - id: h
    type: hero
    data: [not, a, mapping]
`
	_, err := Decode(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "section 0 (h)")
}

func TestDecodeEmptyDocument(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.True(t, pcerrors.IsValidationError(err))
}

func TestOrdered(t *testing.T) {
	sections := []Section{
		&Hero{Base: Base{ID: "hero", Order: 2}},
		&Content{Base: Base{ID: "content", Order: 0}},
		&CallToAction{Base: Base{ID: "cta", Order: 1}},
		&Content{Base: Base{ID: "tie-a", Order: 5}},
		&Hero{Base: Base{ID: "tie-b", Order: 5}},
	}

	ordered := Ordered(sections)

	ids := make([]string, len(ordered))
	for i, s := range ordered {
		ids[i] = s.SectionID()
	}
	assert.Equal(t, []string{"content", "cta", "hero", "tie-a", "tie-b"}, ids)
	assert.Equal(t, "hero", sections[0].SectionID(), "input slice must not be reordered")
}

func TestFirstOf(t *testing.T) {
	sections := []Section{
		&Content{Base: Base{ID: "late", Order: 9}},
		&Content{Base: Base{ID: "early", Order: 1}},
	}
	assert.Equal(t, "early", FirstOf(sections, KindContent))
	assert.Equal(t, "", FirstOf(sections, KindHero))
}

func TestCheckPublishable(t *testing.T) {
	valid := func() *Page {
		return &Page{
			ID:       "p",
			Sections: []Section{&Hero{Base: Base{ID: "h"}}},
			Theme:    GlobalStyles{FontFamily: FontInter},
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *Page)
		wantErr string
	}{
		{name: "valid page", mutate: func(p *Page) {}},
		{name: "missing id", mutate: func(p *Page) { p.ID = " " }, wantErr: "page id is required"},
		{name: "no sections", mutate: func(p *Page) { p.Sections = nil }, wantErr: "page has no sections"},
		{
			name: "duplicate section id",
			mutate: func(p *Page) {
				p.Sections = append(p.Sections, &Content{Base: Base{ID: "h"}})
			},
			wantErr: "duplicate section id",
		},
		{name: "unknown font", mutate: func(p *Page) { p.Theme.FontFamily = "comic-sans" }, wantErr: "unsupported font family"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := CheckPublishable(p)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImagePositionLeading(t *testing.T) {
	assert.True(t, ImageLeft.Leading())
	assert.True(t, ImageTop.Leading())
	assert.False(t, ImageRight.Leading())
	assert.False(t, ImageBottom.Leading())
}

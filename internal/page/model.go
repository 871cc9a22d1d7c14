// Package page defines the declarative page model consumed by the compiler:
// an ordered list of content blocks, a theme and page metadata.
//
// Sections form a closed sum type. Every kind implements Section through an
// unexported marker method, so renderers can switch over the concrete types
// exhaustively and no package outside this one can add a kind.
package page

import (
	"sort"
)

// Kind names a section variant as it appears in page files.
type Kind string

const (
	KindHero         Kind = "hero"
	KindContent      Kind = "content"
	KindCallToAction Kind = "cta"
)

// Page is the declarative description of a landing page.
type Page struct {
	ID       string       `json:"id" yaml:"id"`
	Title    string       `json:"title" yaml:"title"`
	Sections []Section    `json:"sections" yaml:"-"`
	Theme    GlobalStyles `json:"theme" yaml:"theme"`
	Metadata Metadata     `json:"metadata" yaml:"metadata"`
}

// Metadata carries SEO values for the document head.
type Metadata struct {
	Description string `json:"description" yaml:"description"`
	Favicon     string `json:"favicon,omitempty" yaml:"favicon,omitempty"`
}

// FontFamily is the closed set of supported font stacks.
type FontFamily string

const (
	FontInter      FontFamily = "inter"
	FontRoboto     FontFamily = "roboto"
	FontOpenSans   FontFamily = "open-sans"
	FontPoppins    FontFamily = "poppins"
	FontPlayfair   FontFamily = "playfair-display"
	FontSystem     FontFamily = "system"
	DefaultFont               = FontInter
)

// FontFamilies lists every supported font in display order.
var FontFamilies = []FontFamily{FontInter, FontRoboto, FontOpenSans, FontPoppins, FontPlayfair, FontSystem}

// Valid reports whether f is one of the supported fonts.
func (f FontFamily) Valid() bool {
	for _, known := range FontFamilies {
		if f == known {
			return true
		}
	}
	return false
}

// GlobalStyles is the page theme. Colours are raw CSS strings and are not
// validated.
type GlobalStyles struct {
	PrimaryColor   string     `json:"primaryColor" yaml:"primaryColor"`
	SecondaryColor string     `json:"secondaryColor" yaml:"secondaryColor"`
	FontFamily     FontFamily `json:"fontFamily" yaml:"fontFamily"`
}

// Section is one content block of a page.
type Section interface {
	SectionID() string
	SectionOrder() int
	Kind() Kind
	isSection()
}

// Base holds the fields common to every section kind.
type Base struct {
	ID    string `json:"id" yaml:"id"`
	Order int    `json:"order" yaml:"order"`
}

func (b Base) SectionID() string { return b.ID }
func (b Base) SectionOrder() int { return b.Order }
func (Base) isSection()          {}

// BackgroundType selects how a section backdrop is painted.
type BackgroundType string

const (
	BackgroundColor    BackgroundType = "color"
	BackgroundGradient BackgroundType = "gradient"
	BackgroundImage    BackgroundType = "image"
)

// Background describes a section backdrop.
type Background struct {
	Type     BackgroundType `json:"backgroundType" yaml:"backgroundType"`
	Color    string         `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	Gradient string         `json:"backgroundGradient,omitempty" yaml:"backgroundGradient,omitempty"`
	Image    string         `json:"backgroundImage,omitempty" yaml:"backgroundImage,omitempty"`
}

// Hero is the large introductory block at the top of a page.
type Hero struct {
	Base `yaml:",inline"`
	Data HeroData `json:"data" yaml:"data"`
}

// HeroData is the display data of a hero block.
type HeroData struct {
	Headline    string `json:"headline" yaml:"headline"`
	Subheadline string `json:"subheadline" yaml:"subheadline"`
	CTAText     string `json:"ctaText,omitempty" yaml:"ctaText,omitempty"`
	CTALink     string `json:"ctaLink,omitempty" yaml:"ctaLink,omitempty"`
	TextColor   string `json:"textColor,omitempty" yaml:"textColor,omitempty"`
	Alignment   string `json:"alignment,omitempty" yaml:"alignment,omitempty"`

	Background `yaml:",inline"`
}

func (*Hero) Kind() Kind { return KindHero }

// ImagePosition places the image of a content block relative to its text.
type ImagePosition string

const (
	ImageLeft   ImagePosition = "left"
	ImageRight  ImagePosition = "right"
	ImageTop    ImagePosition = "top"
	ImageBottom ImagePosition = "bottom"
)

// Leading reports whether the image precedes the text in document order.
func (p ImagePosition) Leading() bool {
	return p == ImageLeft || p == ImageTop
}

// BodyFormat selects how content body copy is interpreted.
type BodyFormat string

const (
	BodyText     BodyFormat = "text"
	BodyMarkdown BodyFormat = "markdown"
)

// Content is a text block that may carry an image.
type Content struct {
	Base `yaml:",inline"`
	Data ContentData `json:"data" yaml:"data"`
}

// ContentData is the display data of a content block.
type ContentData struct {
	Title           string        `json:"title" yaml:"title"`
	Body            string        `json:"body" yaml:"body"`
	BodyFormat      BodyFormat    `json:"bodyFormat,omitempty" yaml:"bodyFormat,omitempty"`
	HasImage        bool          `json:"hasImage,omitempty" yaml:"hasImage,omitempty"`
	ImageURL        string        `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	ImageAlt        string        `json:"imageAlt,omitempty" yaml:"imageAlt,omitempty"`
	ImagePosition   ImagePosition `json:"imagePosition,omitempty" yaml:"imagePosition,omitempty"`
	BackgroundColor string        `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	TextColor       string        `json:"textColor,omitempty" yaml:"textColor,omitempty"`
}

func (*Content) Kind() Kind { return KindContent }

// ShowsImage reports whether an image fragment should be rendered.
func (d ContentData) ShowsImage() bool {
	return d.HasImage && d.ImageURL != ""
}

// ActionType selects what the call-to-action button does.
type ActionType string

const (
	ActionScroll ActionType = "scroll"
	ActionForm   ActionType = "form"
	ActionLink   ActionType = "link"
)

// CallToAction is the conversion block, optionally carrying a form.
type CallToAction struct {
	Base `yaml:",inline"`
	Data CallToActionData `json:"data" yaml:"data"`
}

// FormFields selects which inputs an enabled form renders.
type FormFields struct {
	Name    bool `json:"name" yaml:"name"`
	Email   bool `json:"email" yaml:"email"`
	Phone   bool `json:"phone" yaml:"phone"`
	Company bool `json:"company" yaml:"company"`
}

// Any reports whether at least one field is enabled.
func (f FormFields) Any() bool {
	return f.Name || f.Email || f.Phone || f.Company
}

// CallToActionData is the display data of a call-to-action block.
type CallToActionData struct {
	Headline        string     `json:"headline" yaml:"headline"`
	Description     string     `json:"description" yaml:"description"`
	ButtonText      string     `json:"buttonText" yaml:"buttonText"`
	ButtonColor     string     `json:"buttonColor,omitempty" yaml:"buttonColor,omitempty"`
	ButtonTextColor string     `json:"buttonTextColor,omitempty" yaml:"buttonTextColor,omitempty"`
	BackgroundColor string     `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	TextColor       string     `json:"textColor,omitempty" yaml:"textColor,omitempty"`
	Action          ActionType `json:"actionType,omitempty" yaml:"actionType,omitempty"`
	FormEnabled     bool       `json:"formEnabled,omitempty" yaml:"formEnabled,omitempty"`
	Fields          FormFields `json:"formFields,omitempty" yaml:"formFields,omitempty"`
	RecipientEmail  string     `json:"recipientEmail,omitempty" yaml:"recipientEmail,omitempty"`
	SuccessMessage  string     `json:"successMessage,omitempty" yaml:"successMessage,omitempty"`
}

func (*CallToAction) Kind() Kind { return KindCallToAction }

// HasForm reports whether the block renders a submittable form.
func (d CallToActionData) HasForm() bool {
	return d.FormEnabled && d.Fields.Any()
}

// Unrecognized holds a section whose kind this build does not know. It is
// kept so that a page round-trips, and renders to nothing.
type Unrecognized struct {
	Base
	Type string `json:"type"`
}

func (u *Unrecognized) Kind() Kind { return Kind(u.Type) }

// Ordered returns a copy of sections sorted by ascending order. Ties keep
// their input position.
func Ordered(sections []Section) []Section {
	ordered := make([]Section, len(sections))
	copy(ordered, sections)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SectionOrder() < ordered[j].SectionOrder()
	})
	return ordered
}

// FirstOf returns the id of the first section of the given kind in render
// order, or "" when the page has none.
func FirstOf(sections []Section, kind Kind) string {
	for _, s := range Ordered(sections) {
		if s.Kind() == kind {
			return s.SectionID()
		}
	}
	return ""
}

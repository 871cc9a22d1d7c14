// Package sections renders page sections into HTML fragments.
//
// Each section kind has one pure renderer returning a templ.Component. Author
// text is always HTML escaped; colour values are written into style
// attributes as given, without validation. Unknown kinds render nothing.
package sections

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/conneroisu/pagecraft/internal/page"
	"github.com/yuin/goldmark"
)

// Context carries the page-level facts a section renderer may depend on.
type Context struct {
	// FirstContentID is the id of the first content section in render order.
	FirstContentID string
	// Animations attaches the animation utility classes to sections.
	Animations bool
}

// Renderer renders sections. It holds only immutable state and is safe for
// concurrent use.
type Renderer struct {
	markdown goldmark.Markdown
}

// NewRenderer creates a section renderer.
func NewRenderer() *Renderer {
	return &Renderer{markdown: goldmark.New()}
}

// Render returns the component for one section.
func (r *Renderer) Render(rc Context, s page.Section) templ.Component {
	switch s := s.(type) {
	case *page.Hero:
		return r.hero(rc, s)
	case *page.Content:
		return r.content(rc, s)
	case *page.CallToAction:
		return r.callToAction(rc, s)
	default:
		return templ.NopComponent
	}
}

// RenderAll renders sections in ascending order into one markup string.
func (r *Renderer) RenderAll(ctx context.Context, rc Context, sections []page.Section) (string, error) {
	var buf bytes.Buffer
	for _, s := range page.Ordered(sections) {
		if err := r.Render(rc, s).Render(ctx, &buf); err != nil {
			return "", fmt.Errorf("render section %s: %w", s.SectionID(), err)
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

// AnchorID is the DOM id of a section container.
func AnchorID(sectionID string) string {
	return "section-" + sectionID
}

// FormID is the DOM id of the form inside a call-to-action section.
func FormID(sectionID string) string {
	return "form-" + sectionID
}

func (r *Renderer) hero(rc Context, s *page.Hero) templ.Component {
	d := s.Data
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		bg := resolveBackground(d.Background)

		openSection(&b, s.ID, page.KindHero, rc.animation("animate-fade-in"),
			bg.style+colorDecl("color", d.TextColor))
		if bg.overlay {
			b.WriteString(`<div class="section-overlay" aria-hidden="true"></div>`)
		}

		fmt.Fprintf(&b, `<div class="container hero-content text-%s">`, alignment(d.Alignment))
		if d.Headline != "" {
			fmt.Fprintf(&b, `<h1 class="hero-title">%s</h1>`, templ.EscapeString(d.Headline))
		}
		if d.Subheadline != "" {
			fmt.Fprintf(&b, `<p class="hero-subtitle">%s</p>`, templ.EscapeString(d.Subheadline))
		}
		if d.CTAText != "" {
			href := scrollTarget(rc)
			if d.CTALink != "" {
				href = safeURL(d.CTALink)
			}
			fmt.Fprintf(&b, `<a href="%s" class="btn btn-primary hero-cta">%s</a>`,
				templ.EscapeString(href), templ.EscapeString(d.CTAText))
		}
		b.WriteString(`</div></section>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func (r *Renderer) content(rc Context, s *page.Content) templ.Component {
	d := s.Data
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		body, err := r.body(d)
		if err != nil {
			return err
		}

		var text strings.Builder
		text.WriteString(`<div class="content-text">`)
		if d.Title != "" {
			fmt.Fprintf(&text, `<h2 class="content-title">%s</h2>`, templ.EscapeString(d.Title))
		}
		fmt.Fprintf(&text, `<div class="content-body">%s</div></div>`, body)

		var b strings.Builder
		openSection(&b, s.ID, page.KindContent, rc.animation("animate-slide-up"),
			colorDecl("background-color", d.BackgroundColor)+colorDecl("color", d.TextColor))
		b.WriteString(`<div class="container">`)

		if d.ShowsImage() {
			position := d.ImagePosition
			if position == "" {
				position = page.ImageRight
			}
			fmt.Fprintf(&b, `<div class="content-layout content-layout--image-%s">`, templ.EscapeString(string(position)))
			image := imageFragment(d)
			if position.Leading() {
				b.WriteString(image)
				b.WriteString(text.String())
			} else {
				b.WriteString(text.String())
				b.WriteString(image)
			}
			b.WriteString(`</div>`)
		} else {
			b.WriteString(text.String())
		}
		b.WriteString(`</div></section>`)

		_, err = io.WriteString(w, b.String())
		return err
	})
}

func (r *Renderer) body(d page.ContentData) (string, error) {
	if d.BodyFormat == page.BodyMarkdown {
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(d.Body), &buf); err != nil {
			return "", fmt.Errorf("convert markdown body: %w", err)
		}
		return buf.String(), nil
	}
	return paragraphs(d.Body), nil
}

func (r *Renderer) callToAction(rc Context, s *page.CallToAction) templ.Component {
	d := s.Data
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		openSection(&b, s.ID, page.KindCallToAction, rc.animation("animate-fade-in"),
			colorDecl("background-color", d.BackgroundColor)+colorDecl("color", d.TextColor))

		b.WriteString(`<div class="container cta-content">`)
		if d.Headline != "" {
			fmt.Fprintf(&b, `<h2 class="cta-title">%s</h2>`, templ.EscapeString(d.Headline))
		}
		if d.Description != "" {
			fmt.Fprintf(&b, `<p class="cta-description">%s</p>`, templ.EscapeString(d.Description))
		}

		buttonStyle := colorDecl("background-color", d.ButtonColor) + colorDecl("color", d.ButtonTextColor)
		if d.HasForm() {
			writeForm(&b, s.ID, d, buttonStyle)
		} else {
			label := d.ButtonText
			if label == "" {
				label = "Get started"
			}
			fmt.Fprintf(&b, `<a href="%s" class="btn btn-primary cta-button" data-action="%s"%s>%s</a>`,
				templ.EscapeString(actionTarget(rc, s.ID, d.Action)),
				templ.EscapeString(string(actionOrDefault(d.Action))),
				styleAttr(buttonStyle),
				templ.EscapeString(label))
		}
		b.WriteString(`</div></section>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func (rc Context) animation(class string) string {
	if !rc.Animations {
		return ""
	}
	return class
}

func openSection(b *strings.Builder, id string, kind page.Kind, extraClass, style string) {
	escapedID := templ.EscapeString(id)
	class := "section " + string(kind) + "-section"
	if extraClass != "" {
		class += " " + extraClass
	}
	fmt.Fprintf(b, `<section id="%s" class="%s" data-section-id="%s" data-section-type="%s"%s>`,
		templ.EscapeString(AnchorID(id)), class, escapedID, kind, styleAttr(style))
}

func styleAttr(style string) string {
	if style == "" {
		return ""
	}
	return ` style="` + style + `"`
}

func colorDecl(property, value string) string {
	if value == "" {
		return ""
	}
	return property + ":" + value + ";"
}

func alignment(value string) string {
	switch value {
	case "left", "right":
		return value
	default:
		return "center"
	}
}

func scrollTarget(rc Context) string {
	if rc.FirstContentID == "" {
		return "#"
	}
	return "#" + AnchorID(rc.FirstContentID)
}

func actionOrDefault(action page.ActionType) page.ActionType {
	if action == "" {
		return page.ActionScroll
	}
	return action
}

// actionTarget resolves the button href of a call-to-action block. Link
// targets are not modelled yet, so link actions stay inert.
func actionTarget(rc Context, sectionID string, action page.ActionType) string {
	switch actionOrDefault(action) {
	case page.ActionForm:
		return "#" + AnchorID(sectionID)
	case page.ActionLink:
		return "#"
	default:
		return scrollTarget(rc)
	}
}

func imageFragment(d page.ContentData) string {
	alt := d.ImageAlt
	if alt == "" {
		alt = d.Title
	}
	return fmt.Sprintf(`<figure class="content-image"><img src="%s" alt="%s"></figure>`,
		templ.EscapeString(safeURL(d.ImageURL)), templ.EscapeString(alt))
}

// paragraphs splits plain body copy on blank lines. Single newlines become
// line breaks.
func paragraphs(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var b strings.Builder
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = templ.EscapeString(strings.TrimSpace(line))
		}
		fmt.Fprintf(&b, "<p>%s</p>", strings.Join(lines, "<br>"))
	}
	return b.String()
}

func safeURL(raw string) string {
	return string(templ.URL(strings.TrimSpace(raw)))
}

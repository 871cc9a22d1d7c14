package build

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// DefaultSizeLimit is the document size above which Validate warns.
const DefaultSizeLimit = 512000

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var textInputTypes = map[string]bool{
	"": true, "text": true, "email": true, "tel": true, "url": true,
	"search": true, "password": true, "number": true,
}

// Validate runs advisory checks over a document and returns one warning
// per finding. It never fails; a limit of zero or less means
// DefaultSizeLimit.
func Validate(doc string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSizeLimit
	}
	warnings := make([]string, 0)

	s := scanDocument(doc)
	if !s.doctype {
		warnings = append(warnings, "missing <!DOCTYPE html> declaration")
	}
	for _, tag := range []string{"html", "head", "body", "title"} {
		if s.opened[tag] == 0 {
			warnings = append(warnings, fmt.Sprintf("missing <%s> element", tag))
		}
	}
	if !s.viewport {
		warnings = append(warnings, "missing viewport meta tag")
	}
	warnings = append(warnings, s.unbalanced()...)

	if len(doc) > limit {
		warnings = append(warnings, fmt.Sprintf("document is %d bytes, above the %d byte limit", len(doc), limit))
	}
	for _, src := range s.imagesWithoutAlt {
		warnings = append(warnings, fmt.Sprintf("<img> without alt attribute (src=%q)", src))
	}
	for _, in := range s.inputs {
		if in.placeholder || in.insideLabel || (in.id != "" && s.labelFor[in.id]) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("<input> %q has neither a placeholder nor a label", in.name))
	}

	lower := strings.ToLower(doc)
	for _, scheme := range []string{"javascript:", "data:text/html"} {
		if strings.Contains(lower, scheme) {
			warnings = append(warnings, fmt.Sprintf("document contains disallowed URI scheme %q", scheme))
		}
	}
	return warnings
}

type inputInfo struct {
	name        string
	id          string
	placeholder bool
	insideLabel bool
}

type scan struct {
	doctype          bool
	viewport         bool
	opened           map[string]int
	closed           map[string]int
	imagesWithoutAlt []string
	inputs           []inputInfo
	labelFor         map[string]bool
}

func scanDocument(doc string) *scan {
	s := &scan{
		opened:   make(map[string]int),
		closed:   make(map[string]int),
		labelFor: make(map[string]bool),
	}
	labelDepth := 0

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return s
		case html.DoctypeToken:
			s.doctype = true
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			s.closed[tag]++
			if tag == "label" && labelDepth > 0 {
				labelDepth--
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			tag := tok.Data
			if !voidElements[tag] && tok.Type == html.StartTagToken {
				s.opened[tag]++
			} else {
				s.opened[tag]++
				s.closed[tag]++
			}

			switch tag {
			case "label":
				if tok.Type == html.StartTagToken {
					labelDepth++
				}
				if v, ok := attr(tok, "for"); ok {
					s.labelFor[v] = true
				}
			case "meta":
				if v, _ := attr(tok, "name"); strings.EqualFold(v, "viewport") {
					s.viewport = true
				}
			case "img":
				if _, ok := attr(tok, "alt"); !ok {
					src, _ := attr(tok, "src")
					s.imagesWithoutAlt = append(s.imagesWithoutAlt, src)
				}
			case "input":
				typ, _ := attr(tok, "type")
				if !textInputTypes[strings.ToLower(typ)] {
					continue
				}
				name, _ := attr(tok, "name")
				id, _ := attr(tok, "id")
				_, placeholder := attr(tok, "placeholder")
				s.inputs = append(s.inputs, inputInfo{
					name:        name,
					id:          id,
					placeholder: placeholder,
					insideLabel: labelDepth > 0,
				})
			}
		}
	}
}

// unbalanced reports every non-void element opened and closed a different
// number of times, in tag name order.
func (s *scan) unbalanced() []string {
	names := make(map[string]bool)
	for tag := range s.opened {
		names[tag] = true
	}
	for tag := range s.closed {
		names[tag] = true
	}
	sorted := make([]string, 0, len(names))
	for tag := range names {
		if !voidElements[tag] {
			sorted = append(sorted, tag)
		}
	}
	sort.Strings(sorted)

	var out []string
	for _, tag := range sorted {
		if s.opened[tag] != s.closed[tag] {
			out = append(out, fmt.Sprintf("unbalanced <%s> tags: %d opened, %d closed", tag, s.opened[tag], s.closed[tag]))
		}
	}
	return out
}

func attr(tok html.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

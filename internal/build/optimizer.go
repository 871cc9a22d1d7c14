package build

import (
	"regexp"
	"strings"
)

// Pass is one text-level optimizer transform.
type Pass struct {
	Name  string
	Apply func(string) string
}

// Passes are the optimizer transforms in the order Optimize applies them.
var Passes = []Pass{
	{Name: "strip-comments", Apply: StripComments},
	{Name: "collapse-whitespace", Apply: CollapseWhitespace},
	{Name: "minify-css", Apply: MinifyStyles},
	{Name: "minify-js", Apply: MinifyScripts},
	{Name: "drop-empty-attributes", Apply: DropEmptyAttributes},
	{Name: "dedupe-meta", Apply: DedupeMeta},
	{Name: "image-hints", Apply: AddImageHints},
}

// Optimize runs every pass over a document. It is a best-effort textual
// transform, not a parser-based minifier.
func Optimize(doc string) string {
	for _, p := range Passes {
		doc = p.Apply(doc)
	}
	return doc
}

// segment is a run of markup, or the literal content of an element whose
// whitespace is significant.
type segment struct {
	text    string
	raw     bool
	tag     string
	openTag string
}

var rawElements = []string{"script", "style", "pre", "textarea"}

// splitDocument cuts a document into markup and raw-content segments.
// Comments are kept inside markup so that markup hidden in a comment never
// opens a raw region.
func splitDocument(doc string) []segment {
	var segs []segment
	lower := asciiLower(doc)
	start, i := 0, 0
	for i < len(doc) {
		lt := strings.IndexByte(doc[i:], '<')
		if lt < 0 {
			break
		}
		i += lt
		if strings.HasPrefix(doc[i:], "<!--") {
			end := strings.Index(doc[i+4:], "-->")
			if end < 0 {
				break
			}
			i += 4 + end + 3
			continue
		}
		name := rawElementAt(lower, i)
		if name == "" {
			i++
			continue
		}
		gt := strings.IndexByte(doc[i:], '>')
		if gt < 0 {
			break
		}
		contentStart := i + gt + 1
		closeAt := strings.Index(lower[contentStart:], "</"+name)
		if closeAt < 0 {
			break
		}
		contentEnd := contentStart + closeAt

		segs = append(segs,
			segment{text: doc[start:contentStart]},
			segment{text: doc[contentStart:contentEnd], raw: true, tag: name, openTag: doc[i:contentStart]})
		start, i = contentEnd, contentEnd+2
	}
	return append(segs, segment{text: doc[start:]})
}

// rawElementAt reports which raw element opens at lower[i], if any.
func rawElementAt(lower string, i int) string {
	for _, name := range rawElements {
		rest := lower[i+1:]
		if !strings.HasPrefix(rest, name) {
			continue
		}
		if len(rest) == len(name) {
			return ""
		}
		switch rest[len(name)] {
		case '>', ' ', '\t', '\n', '\r', '\f', '/':
			return name
		}
	}
	return ""
}

// asciiLower folds A-Z only, so that byte offsets into the result are
// offsets into s.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func joinSegments(segs []segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.text)
	}
	return b.String()
}

// mapMarkup applies fn to every markup segment.
func mapMarkup(doc string, fn func(string) string) string {
	segs := splitDocument(doc)
	for i := range segs {
		if !segs[i].raw {
			segs[i].text = fn(segs[i].text)
		}
	}
	return joinSegments(segs)
}

// mapRaw applies fn to the content of every raw element named tag.
func mapRaw(doc, tag string, fn func(openTag, content string) string) string {
	segs := splitDocument(doc)
	for i := range segs {
		if segs[i].raw && segs[i].tag == tag {
			segs[i].text = fn(segs[i].openTag, segs[i].text)
		}
	}
	return joinSegments(segs)
}

var commentRe = regexp.MustCompile(`(?s)<!--(.*?)-->`)

// StripComments removes HTML comments, keeping conditional comments.
func StripComments(doc string) string {
	return mapMarkup(doc, func(s string) string {
		return commentRe.ReplaceAllStringFunc(s, func(c string) string {
			body := c[4 : len(c)-3]
			if strings.HasPrefix(body, "[if") || strings.HasPrefix(body, "<![endif]") {
				return c
			}
			return ""
		})
	})
}

var (
	betweenTagsRe = regexp.MustCompile(`>\s*\n\s*<`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// blockTags are the elements whose neighbouring line breaks never render.
// "!" stands for doctypes and comments.
var blockTags = map[string]bool{
	"!": true, "html": true, "head": true, "body": true, "title": true,
	"meta": true, "link": true, "base": true, "style": true, "script": true,
	"noscript": true, "template": true, "main": true, "header": true,
	"footer": true, "nav": true, "section": true, "article": true,
	"aside": true, "div": true, "p": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "ul": true, "ol": true, "li": true,
	"dl": true, "dt": true, "dd": true, "form": true, "fieldset": true,
	"legend": true, "table": true, "thead": true, "tbody": true,
	"tfoot": true, "tr": true, "td": true, "th": true, "pre": true,
	"blockquote": true, "figure": true, "figcaption": true, "hr": true,
	"br": true, "option": true,
}

// CollapseWhitespace drops line breaks next to block-level tags and folds
// every other whitespace run to one space. Raw element content is left
// untouched. Applying it twice gives the same result as applying it once.
func CollapseWhitespace(doc string) string {
	return mapMarkup(doc, func(s string) string {
		return whitespaceRe.ReplaceAllString(collapseBetweenTags(s), " ")
	})
}

func collapseBetweenTags(s string) string {
	locs := betweenTagsRe.FindAllStringIndex(s, -1)
	if locs == nil {
		return s
	}
	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		gt, lt := loc[0], loc[1]-1
		b.WriteString(s[prev : gt+1])
		before := ""
		if open := strings.LastIndexByte(s[:gt], '<'); open >= 0 {
			before = tagName(s[open:])
		}
		if !blockTags[before] && !blockTags[tagName(s[lt:])] {
			b.WriteByte(' ')
		}
		prev = lt
	}
	b.WriteString(s[prev:])
	return b.String()
}

// tagName returns the lower-cased element name of the tag starting at t[0].
func tagName(t string) string {
	t = strings.TrimPrefix(t, "<")
	if strings.HasPrefix(t, "!") {
		return "!"
	}
	t = strings.TrimPrefix(t, "/")
	end := 0
	for end < len(t) {
		c := t[end]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			break
		}
		end++
	}
	return asciiLower(t[:end])
}

var (
	cssCommentRe     = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cssPunctuationRe = regexp.MustCompile(`\s*([{};,])\s*`)
	cssColonRe       = regexp.MustCompile(`:\s+`)
	cssLeadingZeroRe = regexp.MustCompile(`(^|[\s:,(-])0+\.(\d)`)
)

// MinifyCSS strips comments and redundant whitespace and semicolons, and
// trims leading zeros from fractional numbers.
func MinifyCSS(css string) string {
	css = cssCommentRe.ReplaceAllString(css, "")
	css = whitespaceRe.ReplaceAllString(css, " ")
	css = cssPunctuationRe.ReplaceAllString(css, "$1")
	css = cssColonRe.ReplaceAllString(css, ":")
	css = strings.ReplaceAll(css, ";}", "}")
	css = cssLeadingZeroRe.ReplaceAllString(css, "$1.$2")
	return strings.TrimSpace(css)
}

// MinifyStyles minifies the content of every <style> element.
func MinifyStyles(doc string) string {
	return mapRaw(doc, "style", func(_, content string) string {
		return MinifyCSS(content)
	})
}

// MinifyScripts minifies inline JavaScript. Scripts with a src attribute
// or a non-JavaScript type are left alone.
func MinifyScripts(doc string) string {
	return mapRaw(doc, "script", func(openTag, content string) string {
		attrs := parseAttrs(openTag)
		if _, ok := attrs.get("src"); ok {
			return content
		}
		if typ, ok := attrs.get("type"); ok && !isJavaScriptType(typ) {
			return content
		}
		return MinifyJS(content)
	})
}

func isJavaScriptType(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "module":
		return true
	}
	return false
}

var tagRe = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9-]*)((?:\s+[^\s"'>/=]+(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'=<>` + "`" + `]+))?)*)\s*(/?)>`)

// mapTags applies fn to every start tag in markup segments. fn receives the
// lower-cased element name and the whole tag.
func mapTags(doc string, fn func(name, tag string) string) string {
	return mapMarkup(doc, func(s string) string {
		return tagRe.ReplaceAllStringFunc(s, func(tag string) string {
			m := tagRe.FindStringSubmatch(tag)
			return fn(strings.ToLower(m[1]), tag)
		})
	})
}

var emptyAttrRe = regexp.MustCompile(`\s+([^\s"'>/=]+)\s*=\s*(?:""|'')`)

// DropEmptyAttributes removes attributes whose value is empty. alt="" is
// meaningful and kept.
func DropEmptyAttributes(doc string) string {
	return mapTags(doc, func(_, tag string) string {
		return emptyAttrRe.ReplaceAllStringFunc(tag, func(attr string) string {
			m := emptyAttrRe.FindStringSubmatch(attr)
			if strings.EqualFold(m[1], "alt") {
				return attr
			}
			return ""
		})
	})
}

// DedupeMeta removes <meta> tags whose identifying attribute repeats an
// earlier one. The first occurrence wins.
func DedupeMeta(doc string) string {
	seen := make(map[string]bool)
	return mapTags(doc, func(name, tag string) string {
		if name != "meta" {
			return tag
		}
		key := metaKey(parseAttrs(tag))
		if key == "" {
			return tag
		}
		if seen[key] {
			return ""
		}
		seen[key] = true
		return tag
	})
}

func metaKey(attrs attributes) string {
	if _, ok := attrs.get("charset"); ok {
		return "charset"
	}
	for _, name := range []string{"name", "property", "http-equiv"} {
		if v, ok := attrs.get(name); ok && v != "" {
			return name + ":" + strings.ToLower(v)
		}
	}
	return ""
}

// AddImageHints adds lazy loading and async decoding to <img> tags that do
// not set them.
func AddImageHints(doc string) string {
	return mapTags(doc, func(name, tag string) string {
		if name != "img" {
			return tag
		}
		attrs := parseAttrs(tag)
		var extra string
		if _, ok := attrs.get("loading"); !ok {
			extra += ` loading="lazy"`
		}
		if _, ok := attrs.get("decoding"); !ok {
			extra += ` decoding="async"`
		}
		if extra == "" {
			return tag
		}
		end := len(tag) - 1
		if strings.HasSuffix(tag, "/>") {
			end--
		}
		head := strings.TrimRight(tag[:end], " \t\n\r\f")
		return head + extra + tag[end:]
	})
}

// attributes is an ordered list of parsed name/value pairs.
type attributes [][2]string

func (a attributes) get(name string) (string, bool) {
	for _, kv := range a {
		if strings.EqualFold(kv[0], name) {
			return kv[1], true
		}
	}
	return "", false
}

var attrRe = regexp.MustCompile(`([^\s"'>/=]+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'=<>` + "`" + `]+)))?`)

// parseAttrs reads the attributes of a start tag.
func parseAttrs(tag string) attributes {
	inner := strings.TrimPrefix(tag, "<")
	inner = strings.TrimSuffix(strings.TrimSuffix(inner, ">"), "/")
	sp := strings.IndexAny(inner, " \t\n\r\f")
	if sp < 0 {
		return nil
	}
	var attrs attributes
	for _, m := range attrRe.FindAllStringSubmatch(inner[sp:], -1) {
		attrs = append(attrs, [2]string{m[1], m[2] + m[3] + m[4]})
	}
	return attrs
}

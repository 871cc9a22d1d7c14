package build

import "strings"

// MinifyJS strips comments and redundant whitespace from a script. String,
// template and regular expression literals are copied verbatim. A
// whitespace run containing a line break is kept as one newline so that
// automatic semicolon insertion still sees it.
func MinifyJS(src string) string {
	var out strings.Builder
	out.Grow(len(src))

	var last, sig byte
	pendingSpace, pendingNewline := false, false

	flush := func(next byte) {
		switch {
		case pendingNewline && last != 0:
			out.WriteByte('\n')
			last = '\n'
		case pendingSpace && last != 0 && needsSpace(last, next):
			out.WriteByte(' ')
			last = ' '
		}
		pendingSpace, pendingNewline = false, false
	}
	emit := func(s string) {
		if s == "" {
			return
		}
		flush(s[0])
		out.WriteString(s)
		last = s[len(s)-1]
		sig = last
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n' || c == '\r':
			pendingNewline = true
			i++
		case c == ' ' || c == '\t' || c == '\f' || c == '\v':
			pendingSpace = true
			i++
		case c == '"' || c == '\'' || c == '`':
			end := scanQuoted(src, i)
			emit(src[i:end])
			i = end
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
				break
			}
			if strings.ContainsAny(src[i+2:i+2+end], "\n\r") {
				pendingNewline = true
			} else {
				pendingSpace = true
			}
			i += 2 + end + 2
		case c == '/' && regexAllowedAfter(sig):
			end := scanRegex(src, i)
			emit(src[i:end])
			i = end
		default:
			emit(src[i : i+1])
			i++
		}
	}
	return out.String()
}

// scanQuoted returns the index just past the string literal starting at i.
func scanQuoted(src string, i int) int {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			if quote != '`' {
				return j
			}
		}
	}
	return len(src)
}

// scanRegex returns the index just past the regular expression literal
// starting at i, including its flags.
func scanRegex(src string, i int) int {
	inClass := false
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n':
			return j
		case '/':
			if inClass {
				continue
			}
			j++
			for j < len(src) && isIdentByte(src[j]) {
				j++
			}
			return j
		}
	}
	return len(src)
}

// regexAllowedAfter reports whether a slash following c starts a regular
// expression rather than a division.
func regexAllowedAfter(c byte) bool {
	switch c {
	case 0, '(', ',', '=', ':', '[', '!', '&', '|', '?', '{', '}', ';', '+', '-', '*', '%', '<', '>', '~', '^':
		return true
	}
	return false
}

func needsSpace(prev, next byte) bool {
	if isIdentByte(prev) && isIdentByte(next) {
		return true
	}
	return (prev == '+' || prev == '-') && (next == '+' || next == '-')
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c == '\\' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

package build

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const validDoc = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Valid</title>
</head>
<body>
<img src="a.png" alt="">
<form>
<label for="email">Email</label><input id="email" type="email" name="email">
<label>Name <input type="text" name="name"></label>
<input type="text" name="company" placeholder="Company">
<input type="hidden" name="token">
<input type="checkbox" name="agree">
<br/>
</form>
<script>if (a < b) { document.write("<p>"); }</script>
</body>
</html>`

func TestValidateCleanDocument(t *testing.T) {
	warnings := Validate(validDoc, 0)
	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)
}

func TestValidateStructure(t *testing.T) {
	warnings := Validate(`<div><p>text</div>`, 0)

	assert.Contains(t, warnings, "missing <!DOCTYPE html> declaration")
	for _, tag := range []string{"html", "head", "body", "title"} {
		assert.Contains(t, warnings, "missing <"+tag+"> element")
	}
	assert.Contains(t, warnings, "missing viewport meta tag")
	assert.Contains(t, warnings, "unbalanced <p> tags: 1 opened, 0 closed")
}

func TestValidateSizeLimit(t *testing.T) {
	doc := validDoc + strings.Repeat(" ", 100)
	assert.Empty(t, Validate(doc, len(doc)))

	warnings := Validate(doc, 10)
	assert.Contains(t, warnings, "document is "+strconv.Itoa(len(doc))+" bytes, above the 10 byte limit")
}

func TestValidateImagesAndInputs(t *testing.T) {
	doc := strings.Replace(validDoc, `<img src="a.png" alt="">`, `<img src="b.png">`, 1)
	doc = strings.Replace(doc, `placeholder="Company"`, ``, 1)

	warnings := Validate(doc, 0)
	assert.Contains(t, warnings, `<img> without alt attribute (src="b.png")`)
	assert.Contains(t, warnings, `<input> "company" has neither a placeholder nor a label`)
	assert.Len(t, warnings, 2)
}

func TestValidateDisallowedSchemes(t *testing.T) {
	tests := []struct {
		snippet string
		scheme  string
	}{
		{`<a href="JavaScript:alert(1)">x</a>`, "javascript:"},
		{`<a href="data:text/html;base64,AAAA">x</a>`, "data:text/html"},
	}
	for _, tt := range tests {
		doc := strings.Replace(validDoc, "<br/>", tt.snippet, 1)
		assert.Contains(t, Validate(doc, 0), `document contains disallowed URI scheme "`+tt.scheme+`"`)
	}
}

func TestValidateNeverPanicsOnGarbage(t *testing.T) {
	for _, doc := range []string{"", "<", "</>", "<<<>>>", "<div attr=\"unterminated>", "\x00\xff"} {
		assert.NotPanics(t, func() { Validate(doc, 0) }, doc)
	}
}

package sections

import (
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"github.com/conneroisu/pagecraft/internal/page"
)

type formField struct {
	name         string
	inputType    string
	label        string
	placeholder  string
	autocomplete string
	required     bool
}

var (
	nameField    = formField{"name", "text", "Name", "Your name", "name", true}
	emailField   = formField{"email", "email", "Email", "you@example.com", "email", true}
	phoneField   = formField{"phone", "tel", "Phone", "Your phone number", "tel", false}
	companyField = formField{"company", "text", "Company", "Your company", "organization", false}
)

// enabledFields returns the inputs of a form in their fixed display order.
func enabledFields(f page.FormFields) []formField {
	fields := make([]formField, 0, 4)
	if f.Name {
		fields = append(fields, nameField)
	}
	if f.Email {
		fields = append(fields, emailField)
	}
	if f.Phone {
		fields = append(fields, phoneField)
	}
	if f.Company {
		fields = append(fields, companyField)
	}
	return fields
}

func writeForm(b *strings.Builder, sectionID string, d page.CallToActionData, buttonStyle string) {
	formID := templ.EscapeString(FormID(sectionID))
	fmt.Fprintf(b, `<form id="%s" class="cta-form" novalidate>`, formID)

	for _, field := range enabledFields(d.Fields) {
		inputID := templ.EscapeString(sectionID + "-" + field.name)
		required := ""
		if field.required {
			required = " required"
		}
		fmt.Fprintf(b,
			`<div class="form-group"><label for="%s">%s</label>`+
				`<input type="%s" id="%s" name="%s" placeholder="%s" autocomplete="%s"%s></div>`,
			inputID, field.label,
			field.inputType, inputID, field.name, field.placeholder, field.autocomplete, required)
	}

	label := d.ButtonText
	if label == "" {
		label = "Submit"
	}
	fmt.Fprintf(b, `<button type="submit" class="btn btn-primary"%s>%s</button>`,
		styleAttr(buttonStyle), templ.EscapeString(label))
	b.WriteString(`<p class="form-message" role="status" aria-live="polite"></p>`)
	b.WriteString(`</form>`)
}

package forms

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	scriptCloseRe  = regexp.MustCompile(`(?i)</(script)`)
	commentOpenRe  = regexp.MustCompile(`<!--`)
	commentCloseRe = regexp.MustCompile(`-->`)
)

// Neutralize rewrites the sequences that would end a <script> element early
// or open an HTML comment inside one. The rewrites only touch characters
// inside string literals, where the escaped forms are equivalent.
func Neutralize(script string) string {
	script = scriptCloseRe.ReplaceAllString(script, `<\/$1`)
	script = commentOpenRe.ReplaceAllString(script, `<\!--`)
	return commentCloseRe.ReplaceAllString(script, `--\>`)
}

// jsString returns s as a JavaScript string literal. encoding/json escapes
// <, > and & as \u003c, \u003e and \u0026, plus U+2028 and U+2029.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// backend supplies the parts of a submit script that differ per service.
type backend struct {
	// prepare runs once when the script loads, before the submit handler is
	// attached.
	prepare string
	// bypass returns early from the submit handler, leaving the browser's
	// native submission in place.
	bypass string
	// send is an expression evaluating to a fetch-style Promise.
	send string
}

// buildScript wraps a backend in the shared idle, sending, success, error
// state machine.
func buildScript(d SubmitData, be backend) string {
	success := d.SuccessMessage
	if success == "" {
		success = defaultSuccessMessage
	}
	failure := d.ErrorMessage
	if failure == "" {
		failure = defaultErrorMessage
	}

	var b strings.Builder
	b.WriteString("(function () {\n")
	b.WriteString("  'use strict';\n")
	b.WriteString("  var form = document.getElementById(" + jsString(d.FormID) + ");\n")
	b.WriteString("  if (!form) { return; }\n")
	b.WriteString("  var message = form.querySelector('.form-message');\n")
	b.WriteString("  var button = form.querySelector('button[type=\"submit\"]');\n")
	b.WriteString("  var text = { sending: " + jsString(sendingMessage) +
		", success: " + jsString(success) +
		", error: " + jsString(failure) + " };\n")
	b.WriteString(`  var timer = null;
  function setState(state) {
    form.setAttribute('data-state', state);
    if (button) { button.disabled = state === 'sending'; }
    if (!message) { return; }
    message.textContent = text[state] || '';
    message.className = 'form-message' + (state === 'success' ? ' is-success' : state === 'error' ? ' is-error' : '');
  }
  function succeed() {
    setState('success');
    form.reset();
    clearTimeout(timer);
    timer = setTimeout(function () { setState('idle'); }, ` + strconv.Itoa(resetDelayMillis) + `);
  }
  function fail() {
    setState('error');
  }
`)
	b.WriteString(be.prepare)
	b.WriteString("  form.addEventListener('submit', function (event) {\n")
	b.WriteString(be.bypass)
	b.WriteString(`    event.preventDefault();
    if (form.getAttribute('data-state') === 'sending') { return; }
    if (!form.checkValidity()) {
      form.reportValidity();
      return;
    }
    setState('sending');
    Promise.resolve()
      .then(function () { return ` + be.send + `; })
      .then(function (response) {
        if (response && response.ok === false) { throw new Error('status ' + response.status); }
        succeed();
      })
      .catch(fail);
  });
  setState('idle');
})();
`)
	return Neutralize(b.String())
}

package forms

import (
	"net/url"
	"strings"
)

// hostedStrategy submits to a formsubmit-style collection service. The
// endpoint key is the recipient address; browsers without fetch fall back
// to a native POST that redirects back to the page.
type hostedStrategy struct {
	endpoint string
}

func (s *hostedStrategy) Service() Service { return ServiceHosted }

func (s *hostedStrategy) RenderSubmitScript(d SubmitData) (string, error) {
	if err := requireFormID(d); err != nil {
		return "", err
	}
	if err := requireRecipient(ServiceHosted, d); err != nil {
		return "", err
	}

	key := url.PathEscape(strings.TrimSpace(d.Recipient))
	subject := d.Subject
	if subject == "" {
		subject = "New form submission"
	}

	prepare := `  form.setAttribute('action', ` + jsString(s.endpoint+"/"+key) + `);
  form.setAttribute('method', 'POST');
  function hidden(name, value) {
    var input = document.createElement('input');
    input.type = 'hidden';
    input.name = name;
    input.value = value;
    form.appendChild(input);
  }
  hidden('_subject', ` + jsString(subject) + `);
  hidden('_next', window.location.href);
  hidden('_captcha', 'false');
`
	return buildScript(d, backend{
		prepare: prepare,
		bypass:  "    if (!window.fetch) { return; }\n",
		send: `fetch(` + jsString(s.endpoint+"/ajax/"+key) + `, {
        method: 'POST',
        headers: { 'Accept': 'application/json' },
        body: new FormData(form)
      })`,
	}), nil
}

// platformStrategy targets a static host that captures form posts itself.
// The host recognises the decorated form and intercepts the POST to "/".
type platformStrategy struct{}

func (s *platformStrategy) Service() Service { return ServicePlatform }

func (s *platformStrategy) RenderSubmitScript(d SubmitData) (string, error) {
	if err := requireFormID(d); err != nil {
		return "", err
	}

	name := jsString(d.FormID)
	prepare := `  form.setAttribute('name', ` + name + `);
  form.setAttribute('method', 'POST');
  form.setAttribute('data-netlify', 'true');
  form.setAttribute('netlify-honeypot', 'bot-field');
  var formName = document.createElement('input');
  formName.type = 'hidden';
  formName.name = 'form-name';
  formName.value = ` + name + `;
  form.insertBefore(formName, form.firstChild);
  var trap = document.createElement('p');
  trap.hidden = true;
  trap.innerHTML = '<label>Leave this field empty <input name="bot-field" tabindex="-1" autocomplete="off"></label>';
  form.insertBefore(trap, form.firstChild);
`
	return buildScript(d, backend{
		prepare: prepare,
		send: `(form.elements['bot-field'] && form.elements['bot-field'].value) ? null : fetch('/', {
        method: 'POST',
        headers: { 'Content-Type': 'application/x-www-form-urlencoded' },
        body: new URLSearchParams(new FormData(form)).toString()
      })`,
	}), nil
}

// customStrategy posts JSON to the pagecraft submission API. Every exported
// page keeps this runtime dependency on the origin that generated it.
type customStrategy struct {
	origin string
}

func (s *customStrategy) Service() Service { return ServiceCustom }

func (s *customStrategy) RenderSubmitScript(d SubmitData) (string, error) {
	if err := requireFormID(d); err != nil {
		return "", err
	}
	if err := requireRecipient(ServiceCustom, d); err != nil {
		return "", err
	}

	prepare := `  function checkField(input) {
    var valid = input.checkValidity();
    input.classList.toggle('is-invalid', !valid);
    input.setAttribute('aria-invalid', valid ? 'false' : 'true');
    return valid;
  }
  Array.prototype.forEach.call(form.querySelectorAll('input'), function (input) {
    input.addEventListener('blur', function () { checkField(input); });
    input.addEventListener('input', function () {
      if (input.classList.contains('is-invalid')) { checkField(input); }
    });
  });
  form.addEventListener('reset', function () {
    Array.prototype.forEach.call(form.querySelectorAll('input'), function (input) {
      input.classList.remove('is-invalid');
      input.removeAttribute('aria-invalid');
    });
  });
`
	return buildScript(d, backend{
		prepare: prepare,
		send: `(function () {
        var fields = {};
        new FormData(form).forEach(function (value, key) { fields[key] = value; });
        return fetch(` + jsString(s.origin+CustomSubmitPath) + `, {
          method: 'POST',
          mode: 'cors',
          headers: { 'Content-Type': 'application/json' },
          body: JSON.stringify({
            to: ` + jsString(strings.TrimSpace(d.Recipient)) + `,
            pageId: ` + jsString(d.PageID) + `,
            sectionId: ` + jsString(d.SectionID) + `,
            subject: ` + jsString(d.Subject) + `,
            fields: fields,
            metadata: {
              timestamp: new Date().toISOString(),
              referrer: document.referrer,
              userAgent: navigator.userAgent
            }
          })
        });
      })()`,
	}), nil
}

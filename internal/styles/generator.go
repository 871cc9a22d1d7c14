// Package styles builds the stylesheet embedded in every generated page.
package styles

import (
	"fmt"
	"strings"

	"github.com/conneroisu/pagecraft/internal/page"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultPrimary   = "#2563eb"
	defaultSecondary = "#1e293b"
	systemStack      = `-apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif`
)

// Options controls the optional parts of the stylesheet.
type Options struct {
	Animations bool
}

// Generator assembles page stylesheets from preloaded base sheets.
type Generator struct {
	assets Assets
}

// NewGenerator creates a generator over the given base sheets.
func NewGenerator(assets Assets) *Generator {
	return &Generator{assets: assets}
}

// Generate returns the complete stylesheet for a theme.
func (g *Generator) Generate(theme page.GlobalStyles, opts Options) (string, error) {
	if err := g.assets.check(); err != nil {
		return "", err
	}
	family, err := fontStack(theme.FontFamily)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, ":root{--color-primary:%s;--color-secondary:%s;--color-text:#111827;--color-background:#ffffff;--font-family:%s;}\n",
		orDefault(theme.PrimaryColor, defaultPrimary),
		orDefault(theme.SecondaryColor, defaultSecondary),
		family)

	b.WriteString(g.assets.Reset)
	b.WriteString("\n")
	b.WriteString(g.assets.Utilities)
	b.WriteString("\n")
	b.WriteString(controlRules)
	if opts.Animations {
		b.WriteString(animationRules)
	}
	b.WriteString(g.assets.Responsive)
	b.WriteString("\n")
	b.WriteString(reducedMotionRules)
	b.WriteString(printRules)

	return b.String(), nil
}

// FontName returns the display name of a font family, e.g. "Open Sans".
// A Caser is stateful, so each call builds its own.
func FontName(f page.FontFamily) string {
	if f == page.FontSystem {
		return "System UI"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(f), "-", " "))
}

func fontStack(f page.FontFamily) (string, error) {
	if f == "" {
		f = page.DefaultFont
	}
	if !f.Valid() {
		return "", fmt.Errorf("unsupported font family %q", f)
	}
	if f == page.FontSystem {
		return systemStack, nil
	}
	fallback := systemStack
	if f == page.FontPlayfair {
		fallback = "Georgia, serif"
	}
	return fmt.Sprintf("%q, %s", FontName(f), fallback), nil
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

const controlRules = `/* buttons and forms */
.btn {
  display: inline-block;
  padding: 0.875rem 1.75rem;
  border: 0;
  border-radius: 0.5rem;
  font-weight: 600;
  text-decoration: none;
  cursor: pointer;
  transition: transform 0.15s ease, box-shadow 0.15s ease;
}

.btn-primary {
  background-color: var(--color-primary);
  color: #ffffff;
}

.btn:hover {
  transform: translateY(-1px);
  box-shadow: 0 6px 16px rgba(0, 0, 0, 0.15);
}

.btn:focus-visible,
.form-group input:focus-visible {
  outline: 3px solid var(--color-primary);
  outline-offset: 2px;
}

.btn:disabled {
  opacity: 0.6;
  cursor: not-allowed;
}

.cta-form {
  display: grid;
  gap: 1rem;
  max-width: 28rem;
  margin: 2rem auto 0;
  text-align: left;
}

.form-group label {
  display: block;
  margin-bottom: 0.375rem;
  font-size: 0.875rem;
  font-weight: 600;
}

.form-group input {
  width: 100%;
  padding: 0.75rem 1rem;
  border: 1px solid #d1d5db;
  border-radius: 0.5rem;
  background-color: #ffffff;
  color: #111827;
}

.form-group input.is-invalid {
  border-color: #dc2626;
}

.form-message {
  min-height: 1.5rem;
  font-size: 0.875rem;
}

.form-message.is-success {
  color: #16a34a;
}

.form-message.is-error {
  color: #dc2626;
}
`

const animationRules = `/* animations */
@keyframes fade-in {
  from { opacity: 0; }
  to { opacity: 1; }
}

@keyframes slide-up {
  from { opacity: 0; transform: translateY(24px); }
  to { opacity: 1; transform: translateY(0); }
}

.animate-fade-in {
  animation: fade-in 0.6s ease-out both;
}

.animate-slide-up {
  animation: slide-up 0.6s ease-out both;
}
`

const reducedMotionRules = `@media (prefers-reduced-motion: reduce) {
  *, *::before, *::after {
    animation-duration: 0.01ms !important;
    animation-iteration-count: 1 !important;
    transition-duration: 0.01ms !important;
    scroll-behavior: auto !important;
  }
}
`

const printRules = `@media print {
  .btn, .cta-form, .section-overlay, form, button {
    display: none !important;
  }

  body {
    color: #000000;
    background: #ffffff;
  }

  .section {
    padding: 1rem 0;
    background: none !important;
    color: #000000 !important;
  }
}
`

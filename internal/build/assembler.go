package build

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

// Insertion points in the document shell.
const (
	slotCSP            = "{{CSP}}"
	slotTitle          = "{{TITLE}}"
	slotDescription    = "{{DESCRIPTION}}"
	slotGenerator      = "{{GENERATOR}}"
	slotFavicon        = "{{FAVICON}}"
	slotAdSenseMeta    = "{{ADSENSE_META}}"
	slotStructuredData = "{{STRUCTURED_DATA}}"
	slotCSS            = "{{CSS}}"
	slotAnalytics      = "{{ANALYTICS}}"
	slotBody           = "{{BODY}}"
	slotScripts        = "{{SCRIPTS}}"
	slotAdSenseScript  = "{{ADSENSE_SCRIPT}}"
)

var requiredSlots = []string{
	slotCSP, slotTitle, slotDescription, slotGenerator, slotFavicon,
	slotAdSenseMeta, slotStructuredData, slotCSS, slotAnalytics,
	slotBody, slotScripts, slotAdSenseScript,
}

// Parts are the generated fragments substituted into the shell. Title and
// Description are plain text; every other field is already markup.
type Parts struct {
	Title          string
	Description    string
	Generator      string
	CSP            string
	Favicon        string
	CSS            string
	Body           string
	Scripts        []string
	StructuredData string
	Analytics      string
	AdSenseMeta    string
	AdSenseScript  string
}

// Assemble substitutes parts into shell. All insertion points are replaced
// in a single pass, so inserted content is never rescanned for slots.
func Assemble(shell string, p Parts) (string, error) {
	if strings.TrimSpace(shell) == "" {
		return "", fmt.Errorf("document shell is empty")
	}
	for _, slot := range requiredSlots {
		if !strings.Contains(shell, slot) {
			return "", fmt.Errorf("document shell is missing insertion point %s", slot)
		}
	}

	var scripts strings.Builder
	for i, s := range p.Scripts {
		if i > 0 {
			scripts.WriteString("\n")
		}
		scripts.WriteString("<script>\n")
		scripts.WriteString(s)
		scripts.WriteString("</script>")
	}

	r := strings.NewReplacer(
		slotCSP, templ.EscapeString(p.CSP),
		slotTitle, templ.EscapeString(p.Title),
		slotDescription, templ.EscapeString(p.Description),
		slotGenerator, templ.EscapeString(p.Generator),
		slotFavicon, p.Favicon,
		slotAdSenseMeta, p.AdSenseMeta,
		slotStructuredData, p.StructuredData,
		slotCSS, styleText(p.CSS),
		slotAnalytics, p.Analytics,
		slotBody, p.Body,
		slotScripts, scripts.String(),
		slotAdSenseScript, p.AdSenseScript,
	)
	return r.Replace(shell), nil
}

// styleText keeps a stylesheet from closing its <style> element. "<\/" is
// an equivalent CSS escape.
func styleText(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// faviconLink returns the favicon <link>, or "" when no favicon is set.
func faviconLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	return `<link rel="icon" href="` + templ.EscapeString(string(templ.URL(href))) + `">`
}

// structuredData returns a JSON-LD WebPage description of the page.
func structuredData(title, description, modified string) (string, error) {
	doc := map[string]string{
		"@context":     "https://schema.org",
		"@type":        "WebPage",
		"name":         title,
		"description":  description,
		"dateModified": modified,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode structured data: %w", err)
	}
	return `<script type="application/ld+json">` + string(data) + `</script>`, nil
}

const (
	gtagHost    = "https://www.googletagmanager.com"
	gaHost      = "https://www.google-analytics.com"
	adSenseHost = "https://pagead2.googlesyndication.com"
	adFrameHost = "https://googleads.g.doubleclick.net"
)

// analyticsSnippet returns the GA4 loader for measurementID.
func analyticsSnippet(measurementID string) string {
	id, _ := json.Marshal(measurementID)
	return `<script async src="` + gtagHost + `/gtag/js?id=` + templ.EscapeString(url.QueryEscape(measurementID)) + `"></script>` +
		"\n<script>\nwindow.dataLayer = window.dataLayer || [];\n" +
		"function gtag() { dataLayer.push(arguments); }\n" +
		"gtag('js', new Date());\n" +
		"gtag('config', " + string(id) + ");\n</script>"
}

// adSenseMeta returns the account verification tag for clientID.
func adSenseMeta(clientID string) string {
	return `<meta name="google-adsense-account" content="` + templ.EscapeString(clientID) + `">`
}

// adSenseScript returns the ad loader for clientID.
func adSenseScript(clientID string) string {
	return `<script async src="` + adSenseHost + `/pagead/js/adsbygoogle.js?client=` +
		templ.EscapeString(url.QueryEscape(clientID)) + `" crossorigin="anonymous"></script>`
}

// policy describes the optional origins a page talks to.
type policy struct {
	analytics bool
	adSense   bool
	connect   []string
	formPost  []string
}

// contentSecurityPolicy builds the strict policy for a page. Inline scripts
// and styles are allowed because the document is self-contained.
func contentSecurityPolicy(p policy) string {
	scriptSrc := []string{"'self'", "'unsafe-inline'"}
	connectSrc := []string{"'self'"}
	imgSrc := []string{"'self'", "https:", "data:"}
	frameSrc := []string{"'none'"}

	if p.analytics {
		scriptSrc = append(scriptSrc, gtagHost)
		connectSrc = append(connectSrc, gaHost, "https://*.google-analytics.com")
	}
	if p.adSense {
		scriptSrc = append(scriptSrc, adSenseHost)
		frameSrc = []string{adFrameHost, "https://tpc.googlesyndication.com"}
	}
	connectSrc = append(connectSrc, p.connect...)
	formAction := append([]string{"'self'"}, p.formPost...)

	directives := []string{
		"default-src 'self'",
		"script-src " + strings.Join(scriptSrc, " "),
		"style-src 'self' 'unsafe-inline'",
		"img-src " + strings.Join(imgSrc, " "),
		"font-src 'self'",
		"connect-src " + strings.Join(connectSrc, " "),
		"frame-src " + strings.Join(frameSrc, " "),
		"form-action " + strings.Join(formAction, " "),
		"base-uri 'self'",
		"object-src 'none'",
	}
	return strings.Join(directives, "; ")
}

// Package build compiles page models into self-contained HTML documents.
//
// A Compiler runs the pipeline sections -> stylesheet -> form scripts ->
// assembly -> optimization -> validation. It holds only read-only assets and
// settings, so one Compiler may serve concurrent callers. Any stage failure
// aborts the call with a single *errors.GenerationError.
package build

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/forms"
	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/conneroisu/pagecraft/internal/page"
	"github.com/conneroisu/pagecraft/internal/sections"
	"github.com/conneroisu/pagecraft/internal/styles"
	"github.com/conneroisu/pagecraft/internal/version"
	"github.com/google/uuid"
)

//go:embed assets/shell.html
var shellFS embed.FS

// Pipeline stage names reported by GenerationError.
const (
	StageInput    = "input"
	StageSections = "sections"
	StageStyles   = "styles"
	StageForms    = "forms"
	StageAssemble = "assemble"
)

// Assets are the read-only inputs loaded once per Compiler.
type Assets struct {
	Shell  string
	Styles styles.Assets
}

// LoadAssets reads the embedded document shell and base stylesheets.
func LoadAssets() (Assets, error) {
	shell, err := shellFS.ReadFile("assets/shell.html")
	if err != nil {
		return Assets{}, pcerrors.NewIOError(pcerrors.ErrCodeMissingAsset, "document shell not found", err)
	}
	sheets, err := styles.LoadAssets()
	if err != nil {
		return Assets{}, err
	}
	return Assets{Shell: string(shell), Styles: sheets}, nil
}

// Settings carry deployment configuration that is not part of a page.
type Settings struct {
	// Version is stamped into the output metadata and generator meta tag.
	Version string
	// AnalyticsID is the GA4 measurement id.
	AnalyticsID string
	// AdSenseClientID is the AdSense publisher id (ca-pub-...).
	AdSenseClientID string
	// Forms configures the form submission endpoints.
	Forms forms.Settings
	// SizeLimit is the validator's size ceiling in bytes.
	SizeLimit int
}

// Compiler turns pages into documents.
type Compiler struct {
	assets   Assets
	settings Settings
	styles   *styles.Generator
	sections *sections.Renderer
	now      func() time.Time
	newID    func() string
	logger   logging.Logger
	metrics  *BuildMetrics
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithClock replaces the wall clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// WithIDGenerator replaces the build id generator.
func WithIDGenerator(newID func() string) Option {
	return func(c *Compiler) { c.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithSettings sets deployment settings.
func WithSettings(s Settings) Option {
	return func(c *Compiler) { c.settings = s }
}

// New creates a Compiler over preloaded assets. Assets are not checked
// here; a missing asset fails the first Compile call.
func New(assets Assets, opts ...Option) *Compiler {
	c := &Compiler{
		assets:   assets,
		styles:   styles.NewGenerator(assets.Styles),
		sections: sections.NewRenderer(),
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logging.NewNopLogger(),
		metrics:  NewBuildMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settings.Version == "" {
		c.settings.Version = version.GetVersion()
	}
	c.logger = c.logger.WithComponent("compiler")
	return c
}

// NewDefault creates a Compiler over the embedded assets.
func NewDefault(opts ...Option) (*Compiler, error) {
	assets, err := LoadAssets()
	if err != nil {
		return nil, err
	}
	return New(assets, opts...), nil
}

// Compile generates the document for p. The page is only read.
func (c *Compiler) Compile(ctx context.Context, p *page.Page, opts Options) (*Output, error) {
	start := time.Now()
	out, err := c.compile(ctx, p, opts)
	warnings := 0
	if out != nil {
		warnings = len(out.Warnings)
	}
	c.metrics.RecordBuild(time.Since(start), warnings, err)
	return out, err
}

// Metrics returns the counters of every Compile call so far.
func (c *Compiler) Metrics() BuildMetrics {
	return c.metrics.GetSnapshot()
}

func (c *Compiler) compile(ctx context.Context, p *page.Page, opts Options) (*Output, error) {
	if p == nil {
		return nil, pcerrors.NewGenerationError(StageInput, "", fmt.Errorf("page is nil"))
	}
	if err := ctx.Err(); err != nil {
		return nil, pcerrors.NewGenerationError(StageInput, p.ID, err)
	}

	perf := logging.StartOperation(c.logger, "compile")
	log := c.logger.With("page_id", p.ID)

	for _, s := range p.Sections {
		if u, ok := s.(*page.Unrecognized); ok {
			log.Debug(ctx, "Skipping unrecognized section", "section_id", u.ID, "type", u.Type)
		}
	}

	rc := sections.Context{
		FirstContentID: page.FirstOf(p.Sections, page.KindContent),
		Animations:     opts.IncludeAnimations,
	}
	body, err := c.sections.RenderAll(ctx, rc, p.Sections)
	if err != nil {
		return nil, c.fail(ctx, perf, StageSections, p.ID, err)
	}
	log.Debug(ctx, "Rendered sections", "count", len(p.Sections))

	css, err := c.styles.Generate(p.Theme, styles.Options{Animations: opts.IncludeAnimations})
	if err != nil {
		return nil, c.fail(ctx, perf, StageStyles, p.ID, err)
	}
	log.Debug(ctx, "Generated stylesheet", "bytes", len(css))

	service := opts.FormService
	if service == "" {
		service = forms.ServiceCustom
	}
	scripts, err := c.formScripts(p, service)
	if err != nil {
		return nil, c.fail(ctx, perf, StageForms, p.ID, err)
	}
	log.Debug(ctx, "Generated form scripts", "count", len(scripts), "service", service)

	generatedAt := c.now().UTC()
	parts, err := c.parts(p, opts, service, generatedAt)
	if err != nil {
		return nil, c.fail(ctx, perf, StageAssemble, p.ID, err)
	}
	parts.CSS = css
	parts.Body = body
	parts.Scripts = scripts

	doc, err := Assemble(c.assets.Shell, parts)
	if err != nil {
		return nil, c.fail(ctx, perf, StageAssemble, p.ID, err)
	}

	if opts.Minify {
		before := len(doc)
		doc = Optimize(doc)
		log.Debug(ctx, "Optimized document", "before", before, "after", len(doc))
	}

	warnings := Validate(doc, c.settings.SizeLimit)
	for _, w := range warnings {
		log.Debug(ctx, "Validation warning", "warning", w)
	}

	out := &Output{
		HTML:     doc,
		Size:     len(doc),
		Warnings: warnings,
		Metadata: Metadata{
			GeneratedAt: generatedAt,
			Version:     c.settings.Version,
			Checksum:    Checksum(doc),
			BuildID:     c.newID(),
		},
	}
	perf.End(ctx, "page_id", p.ID, "bytes", out.Size, "warnings", len(warnings))
	return out, nil
}

func (c *Compiler) fail(ctx context.Context, perf *logging.PerfLogger, stage, pageID string, err error) error {
	gerr := pcerrors.NewGenerationError(stage, pageID, err)
	perf.EndWithError(ctx, gerr, "stage", stage, "page_id", pageID)
	return gerr
}

// formScripts renders one submit script per form-bearing call to action, in
// render order.
func (c *Compiler) formScripts(p *page.Page, service forms.Service) ([]string, error) {
	var strategy forms.Strategy
	var scripts []string
	for _, s := range page.Ordered(p.Sections) {
		cta, ok := s.(*page.CallToAction)
		if !ok || !cta.Data.HasForm() {
			continue
		}
		if strategy == nil {
			var err error
			if strategy, err = forms.ForService(service, c.settings.Forms); err != nil {
				return nil, err
			}
		}
		script, err := strategy.RenderSubmitScript(forms.SubmitData{
			FormID:         sections.FormID(cta.ID),
			SectionID:      cta.ID,
			PageID:         p.ID,
			Recipient:      cta.Data.RecipientEmail,
			Subject:        "New submission from " + pageTitle(p),
			SuccessMessage: cta.Data.SuccessMessage,
		})
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", cta.ID, err)
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

// parts builds the head fragments: metadata, vendor snippets and policy.
func (c *Compiler) parts(p *page.Page, opts Options, service forms.Service, generatedAt time.Time) (Parts, error) {
	title := pageTitle(p)
	description := strings.TrimSpace(p.Metadata.Description)
	if description == "" {
		description = title
	}

	ld, err := structuredData(title, description, generatedAt.Format(time.RFC3339))
	if err != nil {
		return Parts{}, err
	}

	parts := Parts{
		Title:          title,
		Description:    description,
		Generator:      "pagecraft " + c.settings.Version,
		Favicon:        faviconLink(p.Metadata.Favicon),
		StructuredData: ld,
	}

	pol := policy{}
	if hasForm(p) {
		fs := c.settings.Forms
		switch service {
		case forms.ServiceHosted:
			endpoint := orDefault(fs.HostedEndpoint, forms.DefaultHostedEndpoint)
			pol.connect = append(pol.connect, endpoint)
			pol.formPost = append(pol.formPost, endpoint)
		case forms.ServiceCustom:
			pol.connect = append(pol.connect, orDefault(fs.CustomOrigin, forms.DefaultCustomOrigin))
		}
	}
	if opts.IncludeAnalytics && c.settings.AnalyticsID != "" {
		parts.Analytics = analyticsSnippet(c.settings.AnalyticsID)
		pol.analytics = true
	}
	if opts.IncludeAdSense && c.settings.AdSenseClientID != "" {
		parts.AdSenseMeta = adSenseMeta(c.settings.AdSenseClientID)
		parts.AdSenseScript = adSenseScript(c.settings.AdSenseClientID)
		pol.adSense = true
	}
	parts.CSP = contentSecurityPolicy(pol)
	return parts, nil
}

func pageTitle(p *page.Page) string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return p.ID
}

func hasForm(p *page.Page) bool {
	for _, s := range p.Sections {
		if cta, ok := s.(*page.CallToAction); ok && cta.Data.HasForm() {
			return true
		}
	}
	return false
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return strings.TrimRight(value, "/")
}

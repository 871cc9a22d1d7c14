package build

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/forms"
	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/conneroisu/pagecraft/internal/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestCompiler(t *testing.T, settings Settings) *Compiler {
	t.Helper()
	assets, err := LoadAssets()
	require.NoError(t, err)
	if settings.Version == "" {
		settings.Version = "1.2.3"
	}
	return New(assets,
		WithSettings(settings),
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() string { return "build-0001" }),
	)
}

func samplePage() *page.Page {
	return &page.Page{
		ID:    "spring-launch",
		Title: "Spring Launch",
		Theme: page.GlobalStyles{PrimaryColor: "#0055ff", SecondaryColor: "#111111", FontFamily: page.FontPoppins},
		Metadata: page.Metadata{
			Description: "Everything new this spring",
			Favicon:     "https://cdn.example.com/favicon.png",
		},
		Sections: []page.Section{
			&page.Hero{
				Base: page.Base{ID: "hero", Order: 2},
				Data: page.HeroData{Headline: "Hello", CTAText: "Learn more"},
			},
			&page.Content{
				Base: page.Base{ID: "content", Order: 0},
				Data: page.ContentData{
					Title:    "About",
					Body:     "We build things.",
					HasImage: true,
					ImageURL: "https://cdn.example.com/team.jpg",
					ImageAlt: "The team",
				},
			},
			&page.CallToAction{
				Base: page.Base{ID: "cta", Order: 1},
				Data: page.CallToActionData{
					Headline:       "Stay in touch",
					ButtonText:     "Subscribe",
					Action:         page.ActionForm,
					FormEnabled:    true,
					Fields:         page.FormFields{Name: true, Email: true},
					RecipientEmail: "team@example.com",
				},
			},
		},
	}
}

func compile(t *testing.T, c *Compiler, p *page.Page, opts Options) *Output {
	t.Helper()
	out, err := c.Compile(context.Background(), p, opts)
	require.NoError(t, err)
	return out
}

func startTags(doc, tag string) int {
	z := html.NewTokenizer(strings.NewReader(doc))
	n := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return n
		}
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			if name, _ := z.TagName(); string(name) == tag {
				n++
			}
		}
	}
}

func TestCompileSectionContainers(t *testing.T) {
	out := compile(t, newTestCompiler(t, Settings{}), samplePage(), DefaultOptions())

	assert.Equal(t, 3, startTags(out.HTML, "section"))
	for _, id := range []string{"hero", "content", "cta"} {
		assert.Equal(t, 1, strings.Count(out.HTML, `data-section-id="`+id+`"`), id)
	}
}

func TestCompileOrdersSections(t *testing.T) {
	out := compile(t, newTestCompiler(t, Settings{}), samplePage(), DefaultOptions())

	content := strings.Index(out.HTML, `data-section-id="content"`)
	cta := strings.Index(out.HTML, `data-section-id="cta"`)
	hero := strings.Index(out.HTML, `data-section-id="hero"`)
	assert.Less(t, content, cta)
	assert.Less(t, cta, hero)
}

func TestCompileEscapesAuthorText(t *testing.T) {
	p := samplePage()
	p.Title = "<script>alert('title')</script>"
	p.Sections[1].(*page.Content).Data.Body = "<script>alert('body')</script>"

	for _, minify := range []bool{false, true} {
		opts := DefaultOptions()
		opts.Minify = minify
		out := compile(t, newTestCompiler(t, Settings{}), p, opts)

		assert.NotContains(t, out.HTML, "<script>alert(")
		assert.Contains(t, out.HTML, "&lt;script&gt;alert(&#39;body&#39;)&lt;/script&gt;")
	}
}

func TestCompileNonASCIIText(t *testing.T) {
	titles := []string{
		strings.Repeat("\u212a", 400),
		"İİİ",
		"Caf\xff" + strings.Repeat("İ", 200),
	}
	c := newTestCompiler(t, Settings{})
	for _, title := range titles {
		p := samplePage()
		p.Title = title
		p.Sections[0].(*page.Hero).Data.Headline = title

		for _, minify := range []bool{false, true} {
			opts := DefaultOptions()
			opts.Minify = minify

			var out *Output
			var err error
			require.NotPanics(t, func() { out, err = c.Compile(context.Background(), p, opts) })
			require.NoError(t, err)
			assert.Equal(t, 3, startTags(out.HTML, "section"))
			assert.Equal(t, strings.Count(out.HTML, "<script"), strings.Count(strings.ToLower(out.HTML), "</script"))
		}
	}
}

func TestCompileAnimations(t *testing.T) {
	c := newTestCompiler(t, Settings{})
	for _, minify := range []bool{false, true} {
		opts := DefaultOptions()
		opts.Minify = minify

		opts.IncludeAnimations = false
		out := compile(t, c, samplePage(), opts)
		assert.Equal(t, 0, strings.Count(out.HTML, "@keyframes"))
		assert.NotContains(t, out.HTML, "animate-")

		opts.IncludeAnimations = true
		out = compile(t, c, samplePage(), opts)
		assert.Equal(t, 1, strings.Count(out.HTML, "@keyframes fade-in"))
		assert.Contains(t, out.HTML, `class="section hero-section animate-fade-in"`)
	}
}

func TestCompileCustomEndpoint(t *testing.T) {
	p := samplePage()
	p.ID = "</script><script>alert(1)//"

	opts := DefaultOptions()
	opts.FormService = forms.ServiceCustom
	out := compile(t, newTestCompiler(t, Settings{}), p, opts)

	assert.Contains(t, out.HTML, forms.DefaultCustomOrigin)
	assert.Equal(t, strings.Count(out.HTML, "<script"), strings.Count(strings.ToLower(out.HTML), "</script"),
		"every </script must close a script element")
	assert.NotContains(t, out.HTML, "<script>alert(1)")
}

func TestCompileFormBackends(t *testing.T) {
	tests := []struct {
		service forms.Service
		marker  string
	}{
		{forms.ServiceHosted, "formsubmit.co/ajax/team@example.com"},
		{forms.ServicePlatform, "data-netlify"},
		{forms.ServiceCustom, "/api/forms/submit"},
	}
	for _, tt := range tests {
		t.Run(string(tt.service), func(t *testing.T) {
			opts := DefaultOptions()
			opts.FormService = tt.service
			out := compile(t, newTestCompiler(t, Settings{}), samplePage(), opts)

			assert.Contains(t, out.HTML, tt.marker)
			assert.Equal(t, 1, startTags(out.HTML, "form"))
			assert.Equal(t, 2, startTags(out.HTML, "input"))
		})
	}
}

func TestCompileWithoutFormHasNoScripts(t *testing.T) {
	p := samplePage()
	p.Sections[2].(*page.CallToAction).Data.FormEnabled = false

	out := compile(t, newTestCompiler(t, Settings{}), p, DefaultOptions())
	assert.Equal(t, 0, startTags(out.HTML, "form"))
	assert.NotContains(t, out.HTML, forms.DefaultCustomOrigin)
	assert.Equal(t, 1, startTags(out.HTML, "script"), "only structured data remains")
}

func TestCompileAdSense(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		enabled  bool
		want     int
	}{
		{"disabled", "ca-pub-123", false, 0},
		{"missing vendor id", "", true, 0},
		{"enabled", "ca-pub-123", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.IncludeAdSense = tt.enabled
			out := compile(t, newTestCompiler(t, Settings{AdSenseClientID: tt.clientID}), samplePage(), opts)

			assert.Equal(t, tt.want, strings.Count(out.HTML, `name="google-adsense-account"`))
			assert.Equal(t, tt.want, strings.Count(out.HTML, "adsbygoogle.js"))
		})
	}
}

func TestCompileAnalytics(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeAnalytics = true

	out := compile(t, newTestCompiler(t, Settings{}), samplePage(), opts)
	assert.NotContains(t, out.HTML, "googletagmanager")

	out = compile(t, newTestCompiler(t, Settings{AnalyticsID: "G-TEST123"}), samplePage(), opts)
	assert.Contains(t, out.HTML, "https://www.googletagmanager.com/gtag/js?id=G-TEST123")
	assert.Contains(t, out.HTML, `gtag('config',"G-TEST123")`)
}

func TestCompileMetadata(t *testing.T) {
	out := compile(t, newTestCompiler(t, Settings{}), samplePage(), DefaultOptions())

	assert.Equal(t, fixedTime, out.Metadata.GeneratedAt)
	assert.Equal(t, "1.2.3", out.Metadata.Version)
	assert.Equal(t, "build-0001", out.Metadata.BuildID)
	assert.Equal(t, Checksum(out.HTML), out.Metadata.Checksum)
	assert.Equal(t, len(out.HTML), out.Size)
	assert.Empty(t, out.Warnings, "a well-formed page should validate cleanly")
}

func TestCompileHead(t *testing.T) {
	out := compile(t, newTestCompiler(t, Settings{}), samplePage(), DefaultOptions())

	assert.Contains(t, out.HTML, "<title>Spring Launch</title>")
	assert.Contains(t, out.HTML, `<meta property="og:description" content="Everything new this spring">`)
	assert.Contains(t, out.HTML, `<link rel="icon" href="https://cdn.example.com/favicon.png">`)
	assert.Contains(t, out.HTML, `"@type":"WebPage"`)
	assert.Contains(t, out.HTML, `http-equiv="Content-Security-Policy"`)
	assert.Contains(t, out.HTML, `loading="lazy"`)
	assert.NotContains(t, out.HTML, "<!-- page sections -->")
	assert.NotContains(t, out.HTML, "{{")
}

func TestCompileIsDeterministic(t *testing.T) {
	c := newTestCompiler(t, Settings{})
	first := compile(t, c, samplePage(), DefaultOptions())
	second := compile(t, c, samplePage(), DefaultOptions())
	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, first.Metadata, second.Metadata)
}

func TestCompileSkipsUnknownSections(t *testing.T) {
	p := samplePage()
	p.Sections = append(p.Sections, &page.Unrecognized{Base: page.Base{ID: "quotes", Order: 9}, Type: "testimonial"})

	out := compile(t, newTestCompiler(t, Settings{}), p, DefaultOptions())
	assert.Equal(t, 3, startTags(out.HTML, "section"))
	assert.NotContains(t, out.HTML, "quotes")
}

func TestCompileFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	assets, err := LoadAssets()
	require.NoError(t, err)
	c := New(assets, WithLogger(logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelInfo, Output: &buf})))

	p := samplePage()
	p.Sections[2].(*page.CallToAction).Data.RecipientEmail = ""
	_, err = c.Compile(context.Background(), p, DefaultOptions())
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="compile failed"`)
	assert.Contains(t, out, "operation=compile")
	assert.Contains(t, out, "stage=forms")
	assert.Contains(t, out, "page_id=spring-launch")
	assert.Contains(t, out, "elapsed=")
	assert.NotContains(t, out, `msg="compile finished"`)
}

func TestCompileFailures(t *testing.T) {
	t.Run("missing recipient", func(t *testing.T) {
		p := samplePage()
		p.Sections[2].(*page.CallToAction).Data.RecipientEmail = ""

		out, err := newTestCompiler(t, Settings{}).Compile(context.Background(), p, DefaultOptions())
		require.Error(t, err)
		assert.Nil(t, out)
		assert.True(t, errors.Is(err, pcerrors.ErrGenerationFailed))

		var gerr *pcerrors.GenerationError
		require.True(t, errors.As(err, &gerr))
		assert.Equal(t, StageForms, gerr.Stage)
		assert.Contains(t, err.Error(), "generation failed: forms: section cta")
	})

	t.Run("missing shell insertion point", func(t *testing.T) {
		assets, err := LoadAssets()
		require.NoError(t, err)
		assets.Shell = strings.Replace(assets.Shell, "{{BODY}}", "", 1)

		_, err = New(assets).Compile(context.Background(), samplePage(), DefaultOptions())
		assert.True(t, errors.Is(err, pcerrors.ErrGenerationFailed))
		assert.ErrorContains(t, err, "missing insertion point {{BODY}}")
	})

	t.Run("missing stylesheet", func(t *testing.T) {
		assets, err := LoadAssets()
		require.NoError(t, err)
		assets.Styles.Reset = ""

		_, err = New(assets).Compile(context.Background(), samplePage(), DefaultOptions())
		assert.True(t, errors.Is(err, pcerrors.ErrGenerationFailed))
		assert.ErrorContains(t, err, "generation failed: styles")
	})

	t.Run("nil page", func(t *testing.T) {
		_, err := newTestCompiler(t, Settings{}).Compile(context.Background(), nil, DefaultOptions())
		assert.True(t, errors.Is(err, pcerrors.ErrGenerationFailed))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestCompiler(t, Settings{}).Compile(ctx, samplePage(), DefaultOptions())
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestCompileConcurrentCallers(t *testing.T) {
	c := newTestCompiler(t, Settings{})
	want := compile(t, c, samplePage(), DefaultOptions()).HTML

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := c.Compile(context.Background(), samplePage(), DefaultOptions())
			if err == nil {
				results[i] = out.HTML
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
	assert.Equal(t, int64(len(results)+1), c.Metrics().TotalBuilds)
}

func TestCompileDoesNotMutatePage(t *testing.T) {
	p := samplePage()
	compile(t, newTestCompiler(t, Settings{}), p, DefaultOptions())
	assert.Equal(t, "hero", p.Sections[0].SectionID())
	assert.Equal(t, samplePage(), p)
}

func TestCompilerMetrics(t *testing.T) {
	c := newTestCompiler(t, Settings{})
	out := compile(t, c, samplePage(), DefaultOptions())

	_, err := c.Compile(context.Background(), nil, DefaultOptions())
	require.Error(t, err)

	m := c.Metrics()
	assert.Equal(t, int64(2), m.TotalBuilds)
	assert.Equal(t, int64(1), m.SuccessfulBuilds)
	assert.Equal(t, int64(1), m.FailedBuilds)
	assert.Equal(t, int64(len(out.Warnings)), m.TotalWarnings)
}

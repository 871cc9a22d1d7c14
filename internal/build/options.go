package build

import (
	"time"

	"github.com/conneroisu/pagecraft/internal/forms"
)

// Options are the recognised generation flags.
type Options struct {
	// Minify runs the optimizer over the assembled document.
	Minify bool `json:"minify" yaml:"minify"`
	// InlineCSS is always honoured as true; stylesheets are never linked.
	InlineCSS bool `json:"inlineCSS" yaml:"inlineCSS"`
	// IncludeAnalytics emits the analytics loader when a measurement id is
	// configured.
	IncludeAnalytics bool `json:"includeAnalytics" yaml:"includeAnalytics"`
	// IncludeAdSense emits the ad verification meta and loader when a
	// client id is configured.
	IncludeAdSense bool `json:"includeAdSense" yaml:"includeAdSense"`
	// FormService selects the form submission backend.
	FormService forms.Service `json:"formService" yaml:"formService"`
	// IncludeAnimations emits the animation rules and classes.
	IncludeAnimations bool `json:"includeAnimations" yaml:"includeAnimations"`
}

// DefaultOptions returns the options used for publishing.
func DefaultOptions() Options {
	return Options{
		Minify:            true,
		InlineCSS:         true,
		FormService:       forms.ServiceCustom,
		IncludeAnimations: true,
	}
}

// Output is the result of one generation call.
type Output struct {
	HTML     string   `json:"html"`
	Size     int      `json:"size"`
	Warnings []string `json:"warnings"`
	Metadata Metadata `json:"metadata"`
}

// Metadata describes a generated document.
type Metadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Version     string    `json:"version"`
	Checksum    string    `json:"checksum"`
	BuildID     string    `json:"buildId"`
}

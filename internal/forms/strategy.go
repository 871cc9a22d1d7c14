// Package forms generates the client scripts that submit call-to-action forms.
//
// Each backend is a Strategy. All of them share one state machine
// (idle, sending, then success or error) and differ only in how the form is
// prepared and how the request is sent. Values interpolated into scripts are
// JSON string literals, and every finished script passes through Neutralize
// before it is embedded in a <script> element.
package forms

import (
	"fmt"
	"net/mail"
	"strings"

	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
)

// Service names a submission backend.
type Service string

const (
	// ServiceHosted posts to a third-party form collection endpoint keyed by
	// the recipient address.
	ServiceHosted Service = "hosted-form-service"
	// ServicePlatform decorates the form for a static host's built-in form
	// capture.
	ServicePlatform Service = "platform-native-forms"
	// ServiceCustom posts JSON to the pagecraft submission API.
	ServiceCustom Service = "custom-endpoint"
)

// Services lists every backend in display order.
var Services = []Service{ServiceHosted, ServicePlatform, ServiceCustom}

var serviceAliases = map[string]Service{
	"hosted":     ServiceHosted,
	"formsubmit": ServiceHosted,
	"platform":   ServicePlatform,
	"netlify":    ServicePlatform,
	"custom":     ServiceCustom,
}

// ParseService resolves a backend name or one of its short aliases.
func ParseService(name string) (Service, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Services {
		if string(s) == name {
			return s, nil
		}
	}
	if s, ok := serviceAliases[name]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown form service %q (want one of %s)", name, joinServices())
}

func joinServices() string {
	names := make([]string, len(Services))
	for i, s := range Services {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

const (
	// DefaultHostedEndpoint is the hosted form collection service.
	DefaultHostedEndpoint = "https://formsubmit.co"
	// DefaultCustomOrigin is the origin of the pagecraft submission API.
	DefaultCustomOrigin = "https://api.pagecraft.app"
	// CustomSubmitPath is the submission route on the custom origin.
	CustomSubmitPath = "/api/forms/submit"

	defaultSuccessMessage = "Thanks! We'll be in touch soon."
	defaultErrorMessage   = "Something went wrong. Please try again."
	sendingMessage        = "Sending..."
	resetDelayMillis      = 5000
)

// Settings configures the backend endpoints.
type Settings struct {
	HostedEndpoint string
	CustomOrigin   string
}

// DefaultSettings returns the production endpoints.
func DefaultSettings() Settings {
	return Settings{
		HostedEndpoint: DefaultHostedEndpoint,
		CustomOrigin:   DefaultCustomOrigin,
	}
}

func (s Settings) withDefaults() Settings {
	if s.HostedEndpoint == "" {
		s.HostedEndpoint = DefaultHostedEndpoint
	}
	if s.CustomOrigin == "" {
		s.CustomOrigin = DefaultCustomOrigin
	}
	s.HostedEndpoint = strings.TrimRight(s.HostedEndpoint, "/")
	s.CustomOrigin = strings.TrimRight(s.CustomOrigin, "/")
	return s
}

// SubmitData is everything a submit script needs to know about one form.
type SubmitData struct {
	FormID         string
	SectionID      string
	PageID         string
	Recipient      string
	Subject        string
	SuccessMessage string
	ErrorMessage   string
}

// Strategy renders the submit script of one backend.
type Strategy interface {
	Service() Service
	RenderSubmitScript(d SubmitData) (string, error)
}

// ForService returns the strategy for a backend.
func ForService(service Service, settings Settings) (Strategy, error) {
	settings = settings.withDefaults()
	switch service {
	case ServiceHosted:
		return &hostedStrategy{endpoint: settings.HostedEndpoint}, nil
	case ServicePlatform:
		return &platformStrategy{}, nil
	case ServiceCustom:
		return &customStrategy{origin: settings.CustomOrigin}, nil
	default:
		return nil, pcerrors.NewValidationError(pcerrors.ErrCodeFormBackend,
			fmt.Sprintf("unknown form service %q", service))
	}
}

func requireFormID(d SubmitData) error {
	if strings.TrimSpace(d.FormID) == "" {
		return pcerrors.NewValidationError(pcerrors.ErrCodeFormBackend, "form id is required").
			WithSection(d.SectionID)
	}
	return nil
}

// requireRecipient checks that d carries a deliverable address.
func requireRecipient(service Service, d SubmitData) error {
	if strings.TrimSpace(d.Recipient) == "" {
		return pcerrors.NewValidationError(pcerrors.ErrCodeFormBackend,
			fmt.Sprintf("%s requires a recipient email address", service)).
			WithSection(d.SectionID)
	}
	if _, err := mail.ParseAddress(d.Recipient); err != nil {
		return pcerrors.NewValidationError(pcerrors.ErrCodeFormBackend,
			fmt.Sprintf("invalid recipient email address %q", d.Recipient)).
			WithSection(d.SectionID)
	}
	return nil
}

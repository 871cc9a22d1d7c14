// Package config loads pagecraft settings with Viper from .pagecraft.yml,
// PAGECRAFT_ environment variables and command-line flags.
//
// Settings are grouped into sections: forms (submission backend and
// endpoints), vendors (analytics and ad ids), output (publish target and
// generation flags), preview (local server) and logging. Every section has a
// validator; Load fails on the first invalid section.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/conneroisu/pagecraft/internal/build"
	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/forms"
	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/conneroisu/pagecraft/internal/validation"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PAGECRAFT_OUTPUT_DIR.
const EnvPrefix = "PAGECRAFT"

type Config struct {
	Forms   FormsConfig   `mapstructure:"forms" yaml:"forms"`
	Vendors VendorsConfig `mapstructure:"vendors" yaml:"vendors"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Preview PreviewConfig `mapstructure:"preview" yaml:"preview"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type FormsConfig struct {
	Service        string `mapstructure:"service" yaml:"service"`
	HostedEndpoint string `mapstructure:"hosted_endpoint" yaml:"hosted_endpoint"`
	CustomOrigin   string `mapstructure:"custom_origin" yaml:"custom_origin"`
}

type VendorsConfig struct {
	AnalyticsID     string `mapstructure:"analytics_id" yaml:"analytics_id"`
	AdSenseClientID string `mapstructure:"adsense_client_id" yaml:"adsense_client_id"`
}

type OutputConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	Owner      string `mapstructure:"owner" yaml:"owner"`
	Minify     bool   `mapstructure:"minify" yaml:"minify"`
	Animations bool   `mapstructure:"animations" yaml:"animations"`
	Analytics  bool   `mapstructure:"analytics" yaml:"analytics"`
	AdSense    bool   `mapstructure:"adsense" yaml:"adsense"`
	SizeLimit  int    `mapstructure:"size_limit" yaml:"size_limit"`
}

type PreviewConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	Open           bool     `mapstructure:"open" yaml:"open"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// BindEnv enables PAGECRAFT_<SECTION>_<KEY> environment overrides.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// SetDefaults registers the default value of every key on the global viper
// instance. Values already set by files, flags or the environment win.
func SetDefaults() {
	viper.SetDefault("forms.service", string(forms.ServiceCustom))
	viper.SetDefault("forms.hosted_endpoint", forms.DefaultHostedEndpoint)
	viper.SetDefault("forms.custom_origin", forms.DefaultCustomOrigin)

	viper.SetDefault("output.dir", "dist")
	viper.SetDefault("output.owner", "local")
	viper.SetDefault("output.minify", true)
	viper.SetDefault("output.animations", true)
	viper.SetDefault("output.analytics", false)
	viper.SetDefault("output.adsense", false)
	viper.SetDefault("output.size_limit", build.DefaultSizeLimit)

	viper.SetDefault("preview.host", "localhost")
	viper.SetDefault("preview.port", 7777)
	viper.SetDefault("preview.open", false)
	viper.SetDefault("preview.allowed_origins", []string{})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	SetDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, pcerrors.WrapConfig(err, pcerrors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	if len(config.Preview.AllowedOrigins) == 0 {
		config.Preview.AllowedOrigins = []string{
			fmt.Sprintf("%s:%d", config.Preview.Host, config.Preview.Port),
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, pcerrors.WrapConfig(err, pcerrors.ErrCodeConfigInvalid, "invalid configuration")
	}

	return &config, nil
}

// BuildSettings returns the compiler settings carried by the configuration.
func (c *Config) BuildSettings() build.Settings {
	return build.Settings{
		AnalyticsID:     c.Vendors.AnalyticsID,
		AdSenseClientID: c.Vendors.AdSenseClientID,
		Forms: forms.Settings{
			HostedEndpoint: c.Forms.HostedEndpoint,
			CustomOrigin:   c.Forms.CustomOrigin,
		},
		SizeLimit: c.Output.SizeLimit,
	}
}

// BuildOptions returns the generation flags carried by the configuration.
func (c *Config) BuildOptions() build.Options {
	opts := build.DefaultOptions()
	opts.Minify = c.Output.Minify
	opts.IncludeAnimations = c.Output.Animations
	opts.IncludeAnalytics = c.Output.Analytics
	opts.IncludeAdSense = c.Output.AdSense
	if service, err := forms.ParseService(c.Forms.Service); err == nil {
		opts.FormService = service
	}
	return opts
}

// LoggerConfig returns the logger configuration. Unknown levels were already
// rejected by Load.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Logging.Level); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.Logging.Format
	return cfg
}

// validateConfig validates every section.
func validateConfig(config *Config) error {
	if err := validateFormsConfig(&config.Forms); err != nil {
		return fmt.Errorf("forms config: %w", err)
	}
	if err := validateVendorsConfig(&config.Vendors); err != nil {
		return fmt.Errorf("vendors config: %w", err)
	}
	if err := validateOutputConfig(&config.Output); err != nil {
		return fmt.Errorf("output config: %w", err)
	}
	if err := validatePreviewConfig(&config.Preview); err != nil {
		return fmt.Errorf("preview config: %w", err)
	}
	if err := validateLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func validateFormsConfig(config *FormsConfig) error {
	if _, err := forms.ParseService(config.Service); err != nil {
		return err
	}
	if config.HostedEndpoint != "" {
		if err := validation.ValidateURL(config.HostedEndpoint); err != nil {
			return fmt.Errorf("hosted_endpoint: %w", err)
		}
	}
	if config.CustomOrigin != "" {
		if err := validation.ValidateOriginURL(config.CustomOrigin); err != nil {
			return fmt.Errorf("custom_origin: %w", err)
		}
	}
	return nil
}

var (
	analyticsIDRe = regexp.MustCompile(`^G-[A-Z0-9]{4,20}$`)
	adSenseIDRe   = regexp.MustCompile(`^ca-pub-[0-9]{10,20}$`)
)

func validateVendorsConfig(config *VendorsConfig) error {
	if config.AnalyticsID != "" && !analyticsIDRe.MatchString(config.AnalyticsID) {
		return fmt.Errorf("analytics_id %q is not a GA4 measurement id (G-XXXXXXX)", config.AnalyticsID)
	}
	if config.AdSenseClientID != "" && !adSenseIDRe.MatchString(config.AdSenseClientID) {
		return fmt.Errorf("adsense_client_id %q is not a publisher id (ca-pub-...)", config.AdSenseClientID)
	}
	return nil
}

func validateOutputConfig(config *OutputConfig) error {
	if err := validation.ValidatePath(config.Dir); err != nil {
		return fmt.Errorf("dir: %w", err)
	}
	if config.BaseURL != "" {
		if err := validation.ValidateURL(config.BaseURL); err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
	}
	if err := validation.ValidateIdentifier("owner", config.Owner); err != nil {
		return err
	}
	if config.SizeLimit < 0 {
		return fmt.Errorf("size_limit %d must not be negative", config.SizeLimit)
	}
	return nil
}

func validatePreviewConfig(config *PreviewConfig) error {
	// Allow 0 for system-assigned ports in testing.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", "/"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	for _, origin := range config.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("allowed_origins contains an empty entry")
		}
	}
	return nil
}

func validateLoggingConfig(config *LoggingConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return err
	}
	switch config.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", config.Format)
	}
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/conneroisu/pagecraft/internal/forms"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// formServiceValue is a pflag.Value restricted to the form backends.
type formServiceValue struct {
	service forms.Service
}

var _ pflag.Value = (*formServiceValue)(nil)

func (v *formServiceValue) String() string { return string(v.service) }

func (v *formServiceValue) Set(s string) error {
	service, err := forms.ParseService(s)
	if err != nil {
		return err
	}
	v.service = service
	return nil
}

func (v *formServiceValue) Type() string { return "service" }

// outputFormat is a pflag.Value for report formats.
type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func (f *outputFormat) String() string { return string(*f) }

func (f *outputFormat) Set(s string) error {
	switch outputFormat(strings.ToLower(s)) {
	case formatTable, formatJSON, formatYAML:
		*f = outputFormat(strings.ToLower(s))
		return nil
	default:
		return fmt.Errorf("unsupported format %q (supported: table, json, yaml)", s)
	}
}

func (f *outputFormat) Type() string { return "format" }

// generationKeys maps configuration keys to the generation flags.
var generationKeys = map[string]string{
	"output.minify":     "minify",
	"output.animations": "animations",
	"output.analytics":  "analytics",
	"output.adsense":    "adsense",
	"forms.service":     "form-service",
}

// addGenerationFlags registers the generation flags on cmd.
func addGenerationFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.Bool("minify", true, "Run the optimizer over the document")
	flags.Bool("animations", true, "Emit animation rules and classes")
	flags.Bool("analytics", false, "Include the analytics loader (needs vendors.analytics_id)")
	flags.Bool("adsense", false, "Include the AdSense loader (needs vendors.adsense_client_id)")
	flags.Var(&formServiceValue{service: forms.ServiceCustom}, "form-service",
		"Form backend (hosted-form-service, platform-native-forms, custom-endpoint)")
}

// bindFlags binds configuration keys to the flags of the running command.
// Several commands share flag names, so binding happens in PreRunE rather
// than init. A flag set on the command line overrides file and environment.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag --%s is not defined on %s", name, cmd.Name())
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

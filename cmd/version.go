package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/conneroisu/pagecraft/internal/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	versionFormat = formatTable
	versionShort  bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the pagecraft version, commit, build time, Go version and
platform. The version is also stamped into every generated document.

Examples:
  pagecraft version
  pagecraft version --short
  pagecraft version --format json`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().VarP(&versionFormat, "format", "f", "Output format (table, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	info := version.GetBuildInfo()

	switch versionFormat {
	case formatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case formatYAML:
		data, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		if versionShort {
			fmt.Fprintln(out, version.GetShortVersion())
			return nil
		}
		fmt.Fprintln(out, info.String())
		return nil
	}
}

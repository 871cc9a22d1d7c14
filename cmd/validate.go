package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/conneroisu/pagecraft/internal/build"
	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	validateFormat    = formatTable
	validateSizeLimit int
	validateStrict    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <html-file>",
	Short: "Check a generated HTML document",
	Long: `Run the document validator over an HTML file and report its findings:

- Missing doctype, html, head, body or title elements
- Missing viewport meta tag
- Unbalanced tags
- Documents above the size limit
- Images without alt text and unlabelled inputs
- javascript: and data:text/html URIs

Examples:
  pagecraft validate dist/local/spring-launch/index.html
  pagecraft validate index.html --format json
  pagecraft validate index.html --strict   # exit non-zero on warnings`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().VarP(&validateFormat, "format", "f", "Output format (table, json, yaml)")
	validateCmd.Flags().IntVar(&validateSizeLimit, "size-limit", build.DefaultSizeLimit, "Size limit in bytes")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Fail when any warning is reported")
}

// ValidationReport is the machine-readable result of validate.
type ValidationReport struct {
	File     string   `json:"file" yaml:"file"`
	Size     int      `json:"size" yaml:"size"`
	Checksum string   `json:"checksum" yaml:"checksum"`
	Valid    bool     `json:"valid" yaml:"valid"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := validation.ValidatePath(path); err != nil {
		return pcerrors.WrapValidation(err, pcerrors.ErrCodeInvalidPath, "invalid document path").WithFile(path)
	}
	if err := validation.ValidateFileExtension(path, []string{".html", ".htm"}); err != nil {
		return pcerrors.WrapValidation(err, pcerrors.ErrCodeUnsupportedType, "document must be an .html file").WithFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pcerrors.NewIOError(pcerrors.ErrCodeFileNotFound, "failed to read document", err).WithFile(path)
	}

	doc := string(data)
	warnings := build.Validate(doc, validateSizeLimit)
	report := ValidationReport{
		File:     path,
		Size:     len(doc),
		Checksum: build.Checksum(doc),
		Valid:    len(warnings) == 0,
		Warnings: warnings,
	}

	if err := writeReport(cmd.OutOrStdout(), validateFormat, report); err != nil {
		return err
	}

	if validateStrict && !report.Valid {
		return fmt.Errorf("%s: %d validation warning(s)", path, len(warnings))
	}
	return nil
}

func writeReport(w io.Writer, format outputFormat, report ValidationReport) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(report)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "FILE\t%s\n", report.File)
		fmt.Fprintf(tw, "SIZE\t%d bytes\n", report.Size)
		fmt.Fprintf(tw, "CHECKSUM\t%s\n", report.Checksum)
		if report.Valid {
			fmt.Fprintf(tw, "STATUS\t✓ valid\n")
		} else {
			fmt.Fprintf(tw, "STATUS\t✗ %d warning(s)\n", len(report.Warnings))
		}
		for i, warning := range report.Warnings {
			fmt.Fprintf(tw, "  %d\t%s\n", i+1, warning)
		}
		return tw.Flush()
	}
}

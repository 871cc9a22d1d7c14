package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/conneroisu/pagecraft/internal/build"
	"github.com/conneroisu/pagecraft/internal/config"
	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/conneroisu/pagecraft/internal/page"
	"github.com/conneroisu/pagecraft/internal/publish"
	"github.com/spf13/cobra"
)

var compileStdout bool

var compileCmd = &cobra.Command{
	Use:     "compile <page-file>",
	Aliases: []string{"c"},
	Short:   "Compile a page file and publish the document",
	Long: `Compile a .yaml, .yml or .json page file into one self-contained HTML
document and publish it to <output.dir>/<owner>/<page-id>/index.html.

Validator findings are printed as warnings; they never fail the command.

Examples:
  pagecraft compile page.yaml
  pagecraft compile page.yaml --form-service hosted --minify=false
  pagecraft compile page.yaml --stdout > page.html`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, compileKeys)
	},
	RunE: runCompile,
}

var compileKeys = map[string]string{
	"output.dir":      "out",
	"output.base_url": "base-url",
	"output.owner":    "owner",
}

func init() {
	rootCmd.AddCommand(compileCmd)

	addGenerationFlags(compileCmd)
	compileCmd.Flags().StringP("out", "o", "dist", "Publish directory")
	compileCmd.Flags().String("base-url", "", "Public base URL of the publish directory")
	compileCmd.Flags().String("owner", "local", "Owner id used in the publish path")
	compileCmd.Flags().BoolVar(&compileStdout, "stdout", false, "Write the document to stdout instead of publishing")

	for key, name := range generationKeys {
		compileKeys[key] = name
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	w, err := newWorkflow(cfg, logger)
	if err != nil {
		return err
	}

	p, out, err := w.compileFile(ctx, args[0])
	if err != nil {
		return err
	}

	if compileStdout {
		_, err := io.WriteString(cmd.OutOrStdout(), out.HTML)
		printWarnings(cmd.ErrOrStderr(), out.Warnings)
		return err
	}

	res, err := w.publish(ctx, p, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Published %s (%d bytes, revision %s)\n", p.ID, out.Size, res.Revision)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", res.URL)
	printWarnings(cmd.OutOrStdout(), out.Warnings)
	return nil
}

func printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "%d warning(s):\n", len(warnings))
	for _, warning := range warnings {
		fmt.Fprintf(w, "  ⚠ %s\n", warning)
	}
}

// workflow is the load, compile and publish sequence shared by compile,
// watch and preview.
type workflow struct {
	cfg       *config.Config
	compiler  *build.Compiler
	publisher publish.Publisher
	logger    logging.Logger
	errors    *pcerrors.ErrorHandler
}

func newWorkflow(cfg *config.Config, logger logging.Logger) (*workflow, error) {
	compiler, err := build.NewDefault(
		build.WithSettings(cfg.BuildSettings()),
		build.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	publisher, err := publish.NewDirectoryPublisher(cfg.Output.Dir, cfg.Output.BaseURL, publish.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &workflow{
		cfg:       cfg,
		compiler:  compiler,
		publisher: publisher,
		logger:    logger,
		errors:    pcerrors.NewErrorHandler(logger),
	}, nil
}

// compileFile loads, checks and compiles one page file.
func (w *workflow) compileFile(ctx context.Context, path string) (*page.Page, *build.Output, error) {
	p, err := page.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err := page.CheckPublishable(p); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	out, err := w.compiler.Compile(ctx, p, w.cfg.BuildOptions())
	if err != nil {
		return nil, nil, err
	}
	return p, out, nil
}

func (w *workflow) publish(ctx context.Context, p *page.Page, out *build.Output) (*publish.Result, error) {
	return w.publisher.Publish(ctx, w.cfg.Output.Owner, p.ID, out.HTML, out.Metadata)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/conneroisu/pagecraft/internal/preview"
	"github.com/conneroisu/pagecraft/internal/validation"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:     "preview <page-file>",
	Aliases: []string{"p"},
	Short:   "Serve a page locally and reload the browser on every change",
	Long: `Compile a page file, serve the document on a local HTTP server and
recompile whenever the file changes. Connected browsers reload over a
WebSocket; a failed compilation replaces the page with the error until it is
fixed. Nothing is published.

Examples:
  pagecraft preview page.yaml
  pagecraft preview page.yaml --port 8080 --open`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, previewKeys)
	},
	RunE: runPreview,
}

var previewKeys = map[string]string{
	"preview.host": "host",
	"preview.port": "port",
	"preview.open": "open",
}

func init() {
	rootCmd.AddCommand(previewCmd)

	addGenerationFlags(previewCmd)
	previewCmd.Flags().String("host", "localhost", "Host to bind to")
	previewCmd.Flags().IntP("port", "p", 7777, "Port to serve on")
	previewCmd.Flags().Bool("open", false, "Open the preview in a browser")

	for key, name := range generationKeys {
		previewKeys[key] = name
	}
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	w, err := newWorkflow(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := preview.New(preview.Config{
		Host:           cfg.Preview.Host,
		Port:           cfg.Preview.Port,
		AllowedOrigins: cfg.Preview.AllowedOrigins,
	}, logger)

	path := args[0]
	rebuild := func(ctx context.Context) {
		p, out, err := w.compileFile(ctx, path)
		if err != nil {
			w.errors.Handle(ctx, err)
			server.Fail(path, err)
			return
		}
		logger.Info(ctx, "Page recompiled", "page_id", p.ID, "size", out.Size, "warnings", len(out.Warnings))
		server.Update(p.ID, out)
	}
	rebuild(ctx)

	fw, err := watchPageFile(path, 200*time.Millisecond, rebuild, w)
	if err != nil {
		return err
	}
	defer fw.Stop()
	if err := fw.Start(ctx); err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s", preview.Config{Host: cfg.Preview.Host, Port: cfg.Preview.Port}.Addr())
	fmt.Fprintf(cmd.OutOrStdout(), "Previewing %s at %s (Ctrl+C to stop)\n", path, url)
	if cfg.Preview.Open {
		go openBrowser(ctx, url, logger)
	}

	err = server.ListenAndServe(ctx)
	m := w.compiler.Metrics()
	logger.Info(context.Background(), "Preview stopped",
		"builds", m.TotalBuilds, "failed", m.FailedBuilds, "average", m.AverageDuration)
	return err
}

func openBrowser(ctx context.Context, url string, logger logging.Logger) {
	// Give the server time to start.
	time.Sleep(100 * time.Millisecond)

	if err := validation.ValidateURL(url); err != nil {
		logger.Warn(ctx, err, "Not opening browser for invalid URL")
		return
	}

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err != nil {
		logger.Warn(ctx, err, "Failed to open browser")
	}
}

package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/conneroisu/pagecraft/internal/watcher"
	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:     "watch <page-file|directory>",
	Aliases: []string{"w"},
	Short:   "Recompile and republish pages whenever their files change",
	Long: `Watch a page file, or every page file under a directory, and run
compile each time one is saved. A failed compilation is reported and the
last published document stays in place.

Examples:
  pagecraft watch page.yaml
  pagecraft watch pages/
  pagecraft watch page.yaml --debounce 500ms`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, generationKeys)
	},
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addGenerationFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "Quiet period before recompiling")
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	target := args[0]
	out := cmd.OutOrStdout()

	rebuild := func(ctx context.Context, path string) {
		p, output, err := w.compileFile(ctx, path)
		if err != nil {
			w.errors.Handle(ctx, err)
			fmt.Fprintf(out, "✗ %v\n", err)
			return
		}
		res, err := w.publish(ctx, p, output)
		if err != nil {
			w.errors.Handle(ctx, err)
			fmt.Fprintf(out, "✗ %v\n", err)
			return
		}
		fmt.Fprintf(out, "✓ %s published (%d bytes, revision %s)\n", p.ID, output.Size, res.Revision)
		printWarnings(out, output.Warnings)
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	var fw *watcher.FileWatcher
	if info.IsDir() {
		files, err := pageFilesIn(target)
		if err != nil {
			return err
		}
		for _, path := range files {
			rebuild(ctx, path)
		}
		fw, err = watchPageDir(target, watchDebounce, rebuild, w)
		if err != nil {
			return err
		}
	} else {
		rebuild(ctx, target)
		fw, err = watchPageFile(target, watchDebounce, func(ctx context.Context) { rebuild(ctx, target) }, w)
		if err != nil {
			return err
		}
	}
	defer fw.Stop()

	if err := fw.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", target)

	<-ctx.Done()
	m := w.compiler.Metrics()
	fmt.Fprintf(out, "Stopped watching (%d builds, %d failed, average %s)\n",
		m.TotalBuilds, m.FailedBuilds, m.AverageDuration.Round(time.Millisecond))
	return nil
}

// watchPageFile returns an unstarted watcher that calls onChange after each
// debounced batch of changes to path.
func watchPageFile(path string, debounce time.Duration, onChange func(context.Context), w *workflow) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(debounce, w.logger)
	if err != nil {
		return nil, err
	}

	fw.AddFilter(watcher.PageFileFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, e := range events {
			if e.Type != watcher.EventTypeDeleted {
				onChange(ctx)
				return nil
			}
		}
		return nil
	})

	if err := fw.WatchFile(path); err != nil {
		fw.Stop()
		return nil, err
	}
	return fw, nil
}

// watchPageDir returns an unstarted watcher over every page file below dir.
// onChange is called once per changed file in each debounced batch.
func watchPageDir(dir string, debounce time.Duration, onChange func(context.Context, string), w *workflow) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(debounce, w.logger)
	if err != nil {
		return nil, err
	}

	fw.AddFilter(watcher.PageFileFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddFilter(watcher.NoGitFilter)
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, e := range events {
			if e.Type == watcher.EventTypeDeleted || e.Type == watcher.EventTypeRenamed {
				continue
			}
			onChange(ctx, e.Path)
		}
		return nil
	})

	if err := fw.AddRecursive(dir); err != nil {
		fw.Stop()
		return nil, err
	}
	return fw, nil
}

// pageFilesIn lists the page files below dir in lexical order, skipping
// hidden directories.
func pageFilesIn(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if watcher.PageFileFilter(path) && watcher.NoEditorTempFilter(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

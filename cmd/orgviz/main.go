package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/ritzau/orgviz/pkg/config"
	"github.com/ritzau/orgviz/pkg/graphviz"
	"github.com/ritzau/orgviz/pkg/logging"
	"github.com/ritzau/orgviz/pkg/output"
	"github.com/ritzau/orgviz/pkg/pictures"
	"github.com/ritzau/orgviz/pkg/pipeline"
	"github.com/ritzau/orgviz/pkg/watcher"
	"github.com/ritzau/orgviz/pkg/web"
)

func main() {
	flags := config.NewFlagSet("orgviz")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: orgviz [flags]\n\nRenders an organization outline as a Graphviz graph.\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logging.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("orgviz failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	fs := afero.NewOsFs()
	rasterizer := graphviz.NewRasterizer(nil)
	runner := pipeline.NewRunner(fs, rasterizer, os.Stdout)
	opts := pipeline.FromConfig(cfg)

	if cfg.Serve {
		return serve(ctx, cfg, runner, rasterizer, opts)
	}

	if err := runOnce(ctx, runner, opts, "initial run"); err != nil {
		if !cfg.Watch {
			return err
		}
		// Keep watching so that fixing the outline triggers a new run
		logging.Error("run failed", "error", err)
	}

	if !cfg.Watch {
		return nil
	}

	return watch(ctx, opts, func(reason string) {
		if err := runOnce(ctx, runner, opts, reason); err != nil {
			logging.Error("run failed", "error", err)
		}
	})
}

// runOnce converts the outline and prints a summary to stderr, keeping
// stdout free for DOT output
func runOnce(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, reason string) error {
	result, err := runner.Run(ctx, opts, reason)
	if result == nil {
		return err
	}

	output.PrintSummary(os.Stderr, opts.Input, result.Organization, result.Diagnostics)
	if result.ImagePath != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", result.ImagePath)
	}
	if result.DotPath != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", result.DotPath)
	}
	return err
}

func serve(ctx context.Context, cfg *config.Config, runner *pipeline.Runner, rasterizer *graphviz.Rasterizer, opts pipeline.Options) error {
	var pics pictures.Lookup
	if opts.Render.ProfilePictures {
		pics = pictures.NewDirectory(afero.NewOsFs(), opts.PictureDir)
	}
	server := web.NewServer(opts.Render, opts.Criteria, rasterizer, pics)

	reload := func(reason string) {
		server.PublishLoading(opts.Input, reason)
		org, diags, err := runner.Load(opts.Input)
		if err != nil {
			logging.Error("reload failed", "error", err)
			server.PublishError(opts.Input, err)
			return
		}
		server.SetOrganization(opts.Input, org, diags)
		logging.Info("organization loaded", "reason", reason, "people", len(org.People()), "warnings", len(diags))
	}
	reload("initial load")

	if cfg.Watch {
		go func() {
			if err := watch(ctx, opts, reload); err != nil {
				logging.Error("watcher stopped", "error", err)
			}
		}()
	}

	return server.Start(ctx, cfg.Port)
}

// watch calls onChange for every debounced change of the outline or the
// profile pictures until ctx is cancelled
func watch(ctx context.Context, opts pipeline.Options, onChange func(reason string)) error {
	pictureDir := ""
	if opts.Render.ProfilePictures {
		pictureDir = opts.PictureDir
	}

	fw, err := watcher.NewFileWatcher(opts.Input, pictureDir)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 300*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		analysis := watcher.AnalyzeChanges(event)
		if !analysis.NeedReload {
			continue
		}
		logging.Debug("change detected", "type", event.Type.String(), "files", len(analysis.ChangedFiles))
		onChange(analysis.Reason)
	}

	return nil
}

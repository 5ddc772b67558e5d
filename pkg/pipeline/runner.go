// Package pipeline runs the outline to image conversion: read, parse,
// filter, render and rasterize.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/ritzau/orgviz/pkg/config"
	"github.com/ritzau/orgviz/pkg/filter"
	"github.com/ritzau/orgviz/pkg/graphviz"
	"github.com/ritzau/orgviz/pkg/logging"
	"github.com/ritzau/orgviz/pkg/model"
	"github.com/ritzau/orgviz/pkg/parser"
	"github.com/ritzau/orgviz/pkg/pictures"
	"github.com/ritzau/orgviz/pkg/render"
)

// BaseName is the file name, without extension, of everything the runner writes.
const BaseName = "orgviz"

// Options configures a single run
type Options struct {
	Input       string
	OutputDir   string
	Format      string // svg or png
	DotOut      bool   // print DOT to stdout instead of writing an image
	KeepDotfile bool
	PictureDir  string
	Render      render.Options
	Criteria    filter.Criteria
}

// FromConfig derives the run options from the loaded configuration
func FromConfig(cfg *config.Config) Options {
	return Options{
		Input:       cfg.Input,
		OutputDir:   cfg.Output,
		Format:      cfg.OutputType,
		DotOut:      cfg.DotOut,
		KeepDotfile: cfg.KeepDotfile,
		PictureDir:  cfg.ProfilePictureDir,
		Render:      cfg.RenderOptions(),
		Criteria:    cfg.Criteria(),
	}
}

// Result describes what a run produced
type Result struct {
	Organization *model.Organization
	Diagnostics  []parser.Diagnostic
	DOT          string
	ImagePath    string // empty when DOT was printed
	DotPath      string // empty unless the DOT file was kept
}

// Runner orchestrates the conversion
type Runner struct {
	fs         afero.Fs
	rasterizer *graphviz.Rasterizer
	stdout     io.Writer
	mu         sync.Mutex // Prevent concurrent runs writing the same files
}

// NewRunner creates a runner reading and writing through fs. DOT printed
// with Options.DotOut goes to stdout.
func NewRunner(fs afero.Fs, rasterizer *graphviz.Rasterizer, stdout io.Writer) *Runner {
	if rasterizer == nil {
		rasterizer = graphviz.NewRasterizer(nil)
	}
	return &Runner{
		fs:         fs,
		rasterizer: rasterizer,
		stdout:     stdout,
	}
}

// Load reads and parses an outline file. Diagnostics are logged as warnings
// and returned.
func (r *Runner) Load(path string) (*model.Organization, []parser.Diagnostic, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening outline: %w", err)
	}
	defer f.Close()

	org, diags, err := parser.NewParser().Parse(f)
	for _, d := range diags {
		logging.Warn(d.Message, "file", path, "line", d.Line)
	}
	if err != nil {
		return nil, diags, fmt.Errorf("parsing %s: %w", path, err)
	}

	logging.Debug("parsed outline",
		"file", path,
		"people", len(org.People()),
		"edges", len(org.Edges()),
		"teams", len(org.Teams()))

	return org, diags, nil
}

// Run executes the pipeline once. When rasterizing fails the result is
// returned along with the error, and the DOT is saved next to the image.
func (r *Runner) Run(ctx context.Context, opts Options, reason string) (*Result, error) {
	// Lock to prevent concurrent runs
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	logging.Info("starting run", "reason", reason, "input", opts.Input)

	org, diags, err := r.Load(opts.Input)
	if err != nil {
		return nil, err
	}

	dot, err := render.New(opts.Render, filter.New(opts.Criteria), r.pictureLookup(opts)).Render(org)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", opts.Input, err)
	}

	result := &Result{
		Organization: org,
		Diagnostics:  diags,
		DOT:          dot,
	}

	if opts.DotOut {
		if _, err := io.WriteString(r.stdout, dot); err != nil {
			return nil, fmt.Errorf("writing DOT: %w", err)
		}
		logging.Debug("run complete", "reason", reason, "durationMs", time.Since(start).Milliseconds())
		return result, nil
	}

	if err := r.fs.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	if opts.KeepDotfile {
		result.DotPath = filepath.Join(opts.OutputDir, BaseName+".dot")
		if err := afero.WriteFile(r.fs, result.DotPath, []byte(dot), 0o644); err != nil {
			return nil, fmt.Errorf("writing DOT file: %w", err)
		}
		logging.Debug("kept DOT file", "path", result.DotPath)
	}

	image, err := r.rasterizer.Rasterize(ctx, dot, opts.Format)
	if err != nil {
		// Save the DOT so the failing graph can be inspected
		if result.DotPath == "" {
			path := filepath.Join(opts.OutputDir, BaseName+".dot")
			if werr := afero.WriteFile(r.fs, path, []byte(dot), 0o644); werr != nil {
				logging.Warn("cannot save DOT after rasterize failure", "path", path, "error", werr)
			} else {
				result.DotPath = path
			}
		}
		return result, err
	}

	result.ImagePath = filepath.Join(opts.OutputDir, BaseName+"."+opts.Format)
	if err := afero.WriteFile(r.fs, result.ImagePath, image, 0o644); err != nil {
		return nil, fmt.Errorf("writing image: %w", err)
	}

	logging.Info("wrote image",
		"path", result.ImagePath,
		"reason", reason,
		"durationMs", time.Since(start).Milliseconds())

	return result, nil
}

// pictureLookup returns the profile picture lookup, or nil when pictures are off.
func (r *Runner) pictureLookup(opts Options) pictures.Lookup {
	if !opts.Render.ProfilePictures {
		return nil
	}

	dir := pictures.NewDirectory(r.fs, opts.PictureDir)
	if ok, _ := afero.DirExists(r.fs, opts.PictureDir); !ok {
		logging.Warn("profile picture directory not found", "path", opts.PictureDir)
		return dir
	}

	// Listing walks the whole tree, only do it when someone reads the count
	if logging.Enabled(slog.LevelDebug) {
		names, err := dir.Names()
		if err != nil {
			logging.Debug("cannot list profile pictures", "path", opts.PictureDir, "error", err)
		} else {
			logging.Debug("profile pictures available", "path", opts.PictureDir, "count", len(names))
		}
	}
	return dir
}

// Package graphviz turns DOT documents into images with the external dot
// program.
package graphviz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ritzau/orgviz/pkg/logging"
)

// Supported output formats
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// ParseFormat validates an image format name.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output type %q, should be svg or png", s)
}

// Rasterizer renders DOT text through an Executor
type Rasterizer struct {
	exec Executor
}

// NewRasterizer creates a rasterizer. A nil executor runs the real dot binary.
func NewRasterizer(exec Executor) *Rasterizer {
	if exec == nil {
		exec = NewExecutor()
	}
	return &Rasterizer{exec: exec}
}

// Rasterize runs "dot -T<format>" with the document on stdin and returns
// the image bytes.
func (r *Rasterizer) Rasterize(ctx context.Context, dot string, format string) ([]byte, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterize, err)
	}

	start := time.Now()
	out, err := r.exec.Run(ctx, []string{"-T" + format}, []byte(dot))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterize, err)
	}

	logging.Debug("rasterized graph",
		"format", format,
		"bytes", len(out),
		"durationMs", time.Since(start).Milliseconds())

	return out, nil
}

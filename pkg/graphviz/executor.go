package graphviz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrRasterize is returned when the dot process cannot turn a document
// into an image.
var ErrRasterize = errors.New("graphviz rasterization failed")

// Executor runs the Graphviz layout program
type Executor interface {
	Run(ctx context.Context, args []string, stdin []byte) ([]byte, error)
}

// DefaultExecutor is the default implementation of Executor that runs the dot binary
type DefaultExecutor struct {
	// Binary is the program to run, "dot" when empty.
	Binary string
}

// NewExecutor creates a new default Graphviz executor
func NewExecutor() Executor {
	return &DefaultExecutor{}
}

// Run feeds stdin to dot and returns what it writes to stdout.
// It respects the provided context for cancellation.
func (e *DefaultExecutor) Run(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	binary := e.Binary
	if binary == "" {
		binary = "dot"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w\nOutput: %s", binary, strings.Join(args, " "), err, stderr.String())
	}

	return stdout.Bytes(), nil
}

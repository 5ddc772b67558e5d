package graphviz

import (
	"context"
)

// MockExecutor is a mock implementation of Executor for testing
type MockExecutor struct {
	MockOutput []byte
	MockError  error

	// Recorded from the last call
	Args  []string
	Stdin []byte
	Calls int
}

func (m *MockExecutor) Run(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	m.Calls++
	m.Args = args
	m.Stdin = stdin
	return m.MockOutput, m.MockError
}

package provisioning

import (
	"context"
	"strings"
	"sync"
)

// MockRunner replays canned CLI output keyed by the command name.
type MockRunner struct {
	mu       sync.Mutex
	Outputs  map[string]string
	Errors   map[string]error
	Calls    [][]string
	OnRunErr error
}

func NewMockRunner() *MockRunner {
	return &MockRunner{
		Outputs: map[string]string{},
		Errors:  map[string]error{},
	}
}

func (m *MockRunner) Run(ctx context.Context, args ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, args)
	if m.OnRunErr != nil {
		return "", m.OnRunErr
	}
	return m.Outputs[args[0]], m.Errors[args[0]]
}

// CallsTo returns the argument lists of every call to command, joined by
// spaces.
func (m *MockRunner) CallsTo(command string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := []string{}
	for _, c := range m.Calls {
		if c[0] == command {
			calls = append(calls, strings.Join(c, " "))
		}
	}
	return calls
}

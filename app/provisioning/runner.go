package provisioning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
)

// Runner executes one provisioning tool command and returns its combined
// output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// CommandError means the tool ran and exited with a non-zero status.
type CommandError struct {
	ExitCode int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("exit status %d", e.ExitCode)
}

// CLIRunner runs `python3 cli.py <args>`. The tool rewrites its own users file
// on every change, so invocations are serialized inside the process and,
// when LockFile is set, across processes through a file lock.
type CLIRunner struct {
	Python  string
	CLIPath string
	Timeout time.Duration

	mu   sync.Mutex
	lock *flock.Flock
}

func NewCLIRunner(python, cliPath, lockFile string, timeout time.Duration) *CLIRunner {
	r := &CLIRunner{
		Python:  python,
		CLIPath: cliPath,
		Timeout: timeout,
	}
	if lockFile != "" {
		r.lock = flock.New(lockFile)
	}
	return r
}

func (r *CLIRunner) Run(ctx context.Context, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lock != nil {
		locked, err := r.lock.TryLockContext(ctx, 100*time.Millisecond)
		if err != nil {
			return "", fmt.Errorf("Run: acquire cli lock: %w", err)
		}
		if !locked {
			return "", errors.New("Run: cli lock is held by another process")
		}
		defer func() {
			if err := r.lock.Unlock(); err != nil {
				log.Errorf("Run: release cli lock: %v", err)
			}
		}()
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Python, append([]string{r.CLIPath}, args...)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	started := time.Now()
	err := cmd.Run()
	output := strings.TrimSpace(out.String())
	log.WithFields(log.Fields{
		"command":  args[0],
		"duration": time.Since(started).String(),
	}).Debug("provisioning cli finished")

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return output, &CommandError{ExitCode: exitErr.ExitCode()}
		}
		return output, fmt.Errorf("Run: %s: %w", args[0], err)
	}
	return output, nil
}

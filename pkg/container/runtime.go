// Package container runs commands and moves files inside the broker and device
// containers the certificate authority lives in.
package container

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoAddress is returned by ContainerIP while the container has no network address yet.
var ErrNoAddress = errors.New("container has no network address")

// ExecResult holds the outcome of a command run inside a container.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExitError is returned by helpers that treat a non-zero exit code as failure.
type ExitError struct {
	Container string
	Cmd       []string
	Result    ExecResult
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(e.Result.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%q in %s exited with code %d", strings.Join(e.Cmd, " "), e.Container, e.Result.ExitCode)
	}
	return fmt.Sprintf("%q in %s exited with code %d: %s", strings.Join(e.Cmd, " "), e.Container, e.Result.ExitCode, stderr)
}

// Runtime is the subset of a container engine the provisioning workflow uses.
type Runtime interface {
	// Exec runs cmd inside the container and waits for it to exit. A non-zero exit
	// code is reported in the result, not as an error.
	Exec(ctx context.Context, container string, cmd []string) (ExecResult, error)
	// ReadFile returns the contents of a file inside the container.
	ReadFile(ctx context.Context, container, path string) ([]byte, error)
	// WriteFile creates or replaces a file inside the container.
	WriteFile(ctx context.Context, container, path string, data []byte) error
	// ContainerIP returns the first non-empty IP address of the container, or ErrNoAddress.
	ContainerIP(ctx context.Context, container string) (string, error)
	// Restart restarts the container.
	Restart(ctx context.Context, container string) error
}

// MustExec runs cmd and converts a non-zero exit code into an *ExitError.
func MustExec(ctx context.Context, rt Runtime, container string, cmd []string) (ExecResult, error) {
	res, err := rt.Exec(ctx, container, cmd)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &ExitError{Container: container, Cmd: cmd, Result: res}
	}
	return res, nil
}

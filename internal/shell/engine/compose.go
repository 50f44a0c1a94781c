// Package engine reaches the container engine: the compose CLI for lifecycle
// operations and the Docker SDK for a daemon reachability preflight. The
// engine is treated as an opaque collaborator - six operations, exit status
// propagated verbatim, no retries.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// Engine is the fixed operation set the dispatcher depends on.
type Engine interface {
	// Up brings the deployment up detached, removing orphaned containers.
	Up(ctx context.Context) error
	// Down tears the deployment down, allowing grace for graceful shutdown.
	Down(ctx context.Context, grace time.Duration) error
	// Status forwards the engine's process table verbatim.
	Status(ctx context.Context) error
	// Pull fetches the configured image without touching running containers.
	Pull(ctx context.Context) error
	// Logs follows the log stream with a bounded backlog. Blocks until the
	// stream ends or ctx is canceled.
	Logs(ctx context.Context, tail int) error
	// Exec attaches an interactive command inside the running service.
	Exec(ctx context.Context, service string, command ...string) error
}

// ComposeCLI implements Engine by shelling out to `docker compose`.
type ComposeCLI struct {
	composeFile string
	projectName string
	logger      *slog.Logger

	stdin          io.Reader
	stdout, stderr io.Writer
}

// NewComposeCLI creates an Engine bound to one compose file.
func NewComposeCLI(composeFile, projectName string, logger *slog.Logger) *ComposeCLI {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComposeCLI{
		composeFile: composeFile,
		projectName: projectName,
		logger:      logger,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
}

func (c *ComposeCLI) Up(ctx context.Context) error {
	return c.run(ctx, "bring-up", false, "up", "-d", "--remove-orphans")
}

func (c *ComposeCLI) Down(ctx context.Context, grace time.Duration) error {
	return c.run(ctx, "tear-down", false, "down", "-t", strconv.Itoa(int(grace.Seconds())))
}

func (c *ComposeCLI) Status(ctx context.Context) error {
	return c.run(ctx, "status", false, "ps")
}

func (c *ComposeCLI) Pull(ctx context.Context) error {
	return c.run(ctx, "pull", false, "pull")
}

func (c *ComposeCLI) Logs(ctx context.Context, tail int) error {
	return c.run(ctx, "logs", false, "logs", "--follow", "--tail", strconv.Itoa(tail))
}

func (c *ComposeCLI) Exec(ctx context.Context, service string, command ...string) error {
	args := append([]string{"exec", service}, command...)
	return c.run(ctx, "exec", true, args...)
}

// run invokes `docker compose -p <project> -f <file> <args...>` with the
// caller's streams attached. interactive additionally wires stdin for exec
// sessions.
func (c *ComposeCLI) run(ctx context.Context, op string, interactive bool, args ...string) error {
	full := append([]string{"compose", "-p", c.projectName, "-f", c.composeFile}, args...)

	c.logger.Debug("invoking engine", "op", op, "args", full)

	cmd := exec.CommandContext(ctx, "docker", full...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	if interactive {
		cmd.Stdin = c.stdin
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}
	exitCode := 1
	if cmd.ProcessState != nil && cmd.ProcessState.ExitCode() > 0 {
		exitCode = cmd.ProcessState.ExitCode()
	}
	return NewEngineError(op, exitCode, fmt.Sprintf("docker compose %s: %v", args[0], err), ErrCommandFailed)
}

package transcode

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// Command is a single invocation of an external tool.
type Command struct {
	Name   string
	Args   []string
	Stdout io.Writer
}

func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner runs external commands synchronously.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as subprocesses of the current process.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	logger.Debugf(ctx, "running: %s", c)
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	var stderr bytes.Buffer
	cmd.Stdout = c.Stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	logger.Tracef(ctx, "/running %s: %v", c.Name, err)
	if err == nil {
		return nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return &ExternalToolError{
		Tool:     c.Name,
		Args:     c.Args,
		ExitCode: exitCode,
		Stderr:   stderr.String(),
		Err:      err,
	}
}

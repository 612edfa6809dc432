package adapter

import (
	"context"
	"io"
	"os/exec"
	"time"
)

// Runner starts a process and waits for it to finish.
// Implementations must be safe for concurrent use.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner runs real OS processes
type ExecRunner struct {
	// WaitDelay bounds the time spent waiting for output pipes after the
	// process was killed (e.g. by a grandchild keeping stdout open)
	WaitDelay time.Duration
}

//nolint:whitespace // editor/linter issue
func (r ExecRunner) Run(
	ctx context.Context, name string, args []string, stdout, stderr io.Writer,
) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 2 * time.Second
	}
	return cmd.Run()
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error

//nolint:whitespace // editor/linter issue
func (f RunnerFunc) Run(
	ctx context.Context, name string, args []string, stdout, stderr io.Writer,
) error {
	return f(ctx, name, args, stdout, stderr)
}

// cappedBuffer keeps at most limit bytes. Once the limit is hit, further
// writes are discarded and onOverflow is called (once).
type cappedBuffer struct {
	buf        []byte
	limit      int
	overflow   bool
	onOverflow func()
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.overflow {
		return len(p), nil
	}
	if len(c.buf)+len(p) > c.limit {
		c.buf = append(c.buf, p[:c.limit-len(c.buf)]...)
		c.overflow = true
		if c.onOverflow != nil {
			c.onOverflow()
		}
		return len(p), nil
	}
	c.buf = append(c.buf, p...)
	return len(p), nil
}

func (c *cappedBuffer) Bytes() []byte { return c.buf }

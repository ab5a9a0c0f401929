// Package runner executes OS introspection commands with a hard timeout.
//
// Without the timeout, tools like `ip route` or powershell can hang
// indefinitely when the network stack is unstable (typically after system
// standby), which would freeze every caller above us.
package runner

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/apex/log"
)

// DefaultTimeout bounds a single command invocation.
const DefaultTimeout = 3 * time.Second

// Runner runs external commands and captures their trimmed stdout.
type Runner struct {
	timeout time.Duration
	log     log.Interface
}

// New creates a Runner. A zero timeout selects DefaultTimeout.
func New(l log.Interface, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout, log: l}
}

// Output runs name with args and returns trimmed stdout. The command is
// killed once the timeout (or the parent context) expires; in that case,
// and on any non-zero exit, an error is returned and the caller treats
// the signal as absent rather than failing.
func (r *Runner) Output(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)

	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		r.log.Warnf("command timed out: %s %s", name, strings.Join(args, " "))
		return "", fmt.Errorf("command %s timed out after %s: %w", name, r.timeout, ctx.Err())
	}
	if err != nil {
		r.log.Debugf("command failed: %s %s: %v", name, strings.Join(args, " "), err)
		return "", fmt.Errorf("command %s failed: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

package sshexec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aivistech/infrabot/internal/errors"
)

// Target identifies the remote host a report runs against. It is built from
// an already-validated ServerRecord, never from raw chat input.
type Target struct {
	Name string
	Host string
	Port int
	User string
}

// Conn is an open remote session. Run executes one literal script and
// returns its combined output; the context bounds its execution time.
type Conn interface {
	Run(ctx context.Context, script string) (string, error)
	Close() error
}

// Dialer opens remote sessions. The production implementation speaks ssh
// with the bot's key pair; tests substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Conn, error)
}

// Executor runs the compiled command table against a target. Connectivity
// and authentication failures abort the whole report; a per-command timeout
// is recorded inline and the remaining commands still run.
type Executor struct {
	dialer         Dialer
	commandTimeout time.Duration
}

func New(dialer Dialer, commandTimeout time.Duration) *Executor {
	if commandTimeout <= 0 {
		commandTimeout = 30 * time.Second
	}
	return &Executor{dialer: dialer, commandTimeout: commandTimeout}
}

// RunReport executes every table entry sequentially and collects the
// results. The session is released on every exit path.
func (e *Executor) RunReport(ctx context.Context, target Target) (*Report, error) {
	conn, err := e.dialer.Dial(ctx, target)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	report := &Report{Server: target.Name, GeneratedAt: time.Now()}
	for _, spec := range Commands {
		report.Entries = append(report.Entries, e.runEntry(ctx, conn, spec))
	}
	return report, nil
}

// RunCommand executes a single table entry on its own session. Used for
// assistant-directed single commands.
func (e *Executor) RunCommand(ctx context.Context, target Target, spec CommandSpec) (Entry, error) {
	conn, err := e.dialer.Dial(ctx, target)
	if err != nil {
		return Entry{}, err
	}
	defer conn.Close()

	return e.runEntry(ctx, conn, spec), nil
}

func (e *Executor) runEntry(ctx context.Context, conn Conn, spec CommandSpec) Entry {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = e.commandTimeout
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	output, err := conn.Run(cmdCtx, spec.Script)
	entry := Entry{Name: spec.Name, Command: spec.Script}

	switch {
	case errors.IsCategory(err, errors.ErrCommandTimeout):
		slog.Warn("Remote command timed out", "command", spec.Name, "timeout", timeout)
		entry.TimedOut = true
		entry.Output = "command timed out"
	case err != nil:
		// Non-zero exit is partial output, not a report failure.
		slog.Warn("Remote command failed", "command", spec.Name, "error", err)
		entry.Output = fmt.Sprintf("%s\n(command error: %v)", output, err)
	default:
		entry.Output = output
	}

	slog.Debug("Remote command finished", "command", spec.Name, "duration_ms", time.Since(start).Milliseconds())
	return entry
}

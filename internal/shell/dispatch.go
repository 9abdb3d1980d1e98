package shell

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Dispatcher orchestrates one request/response cycle: tokenize the raw
// line, resolve the handler, invoke it, and record the invocation in the
// session history. It is the single point guaranteeing total recovery —
// no command invocation can terminate the interpreter or leak an uncaught
// fault to the caller.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger

	now func() time.Time // injectable for tests
}

// NewDispatcher creates a dispatcher over the given immutable registry.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Registry returns the command registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Execute runs one raw input line against the session.
//
//   - An empty line is a success with empty output and NO history entry;
//     no-ops are distinguished from real invocations.
//   - Every other line — resolved or not, succeeded or failed — appends
//     exactly one history entry, timestamped before execution.
func (d *Dispatcher) Execute(ctx context.Context, sess *Session, rawLine string) Result {
	name, args := Tokenize(rawLine)
	if name == "" {
		return Result{Success: true}
	}

	command := strings.ToLower(name)
	accepted := d.now()

	var res Result
	if c, found := d.registry.Resolve(command); found {
		res = d.invoke(ctx, c, sess, args)
	} else {
		res = Result{
			Success: false,
			Output:  fmt.Sprintf("Unknown command: %s. Type 'help' for available commands.", command),
		}
	}

	entry := sess.appendHistory(HistoryEntry{
		Timestamp: accepted,
		Command:   command,
		Args:      args,
	})

	d.logger.DebugContext(ctx, "command dispatched",
		slog.String("session_id", sess.ID),
		slog.String("command", command),
		slog.Int("seq", entry.Seq),
		slog.Bool("success", res.Success),
	)

	return res
}

// invoke runs the handler, converting errors and panics into failed
// results. A handler must never propagate a raw fault past this point.
func (d *Dispatcher) invoke(ctx context.Context, c Command, sess *Session, args []string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.ErrorContext(ctx, "command handler panicked",
				slog.String("command", c.Name),
				slog.Any("panic", p),
			)
			res = Result{Success: false, Output: fmt.Sprintf("Internal error executing %s", c.Name)}
		}
	}()

	r, err := c.Run(ctx, sess, args)
	if err != nil {
		return Result{Success: false, Output: err.Error()}
	}
	return r
}

// Package shell implements the sandboxed command interpreter core:
// tokenization, the command registry, per-session state, and the safe
// in-process command handlers. No real shell or external process is ever
// invoked; every command is implemented directly against the filesystem,
// the system-metrics provider, or session state.
package shell

// Action signals a UI-level behavior to the front end, distinct from any
// text a command could legitimately output.
type Action int

const (
	// ActionNone means the result carries only text output.
	ActionNone Action = iota
	// ActionClear tells the front end to erase its displayed output.
	ActionClear
	// ActionEnd tells the front end to terminate this session's loop.
	ActionEnd
)

// String returns the wire name of the action ("" for ActionNone).
func (a Action) String() string {
	switch a {
	case ActionClear:
		return "clear"
	case ActionEnd:
		return "end"
	default:
		return ""
	}
}

// Result is the outcome of one command invocation.
//
// Invariant: Success=false implies Output is a non-empty human-readable
// error message. Success=true allows an empty Output (cd, mkdir, clear).
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Action  Action `json:"-"`
}

// ok builds a successful text result.
func ok(output string) Result {
	return Result{Success: true, Output: output}
}

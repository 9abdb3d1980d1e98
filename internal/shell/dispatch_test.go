package shell

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecuteEmptyLineIsNoOp(t *testing.T) {
	d, sess := newTestDispatcher(t)

	for _, line := range []string{"", "   ", "\t"} {
		res := d.Execute(context.Background(), sess, line)
		if !res.Success {
			t.Errorf("Execute(%q) success = false, want true", line)
		}
		if res.Output != "" {
			t.Errorf("Execute(%q) output = %q, want empty", line, res.Output)
		}
	}
	if n := sess.HistoryLen(); n != 0 {
		t.Errorf("history length after empty lines = %d, want 0", n)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	d, sess := newTestDispatcher(t)

	res := d.Execute(context.Background(), sess, "foobar --now")
	if res.Success {
		t.Error("unknown command reported success")
	}
	if !strings.Contains(res.Output, "foobar") {
		t.Errorf("output %q does not name the attempted command", res.Output)
	}

	// Unknown commands were real attempted invocations: audited.
	entry, found := sess.LastEntry()
	if !found {
		t.Fatal("no history entry appended for unknown command")
	}
	if entry.Command != "foobar" {
		t.Errorf("history command = %q, want %q", entry.Command, "foobar")
	}
}

func TestExecuteSequenceNumbers(t *testing.T) {
	d, sess := newTestDispatcher(t)
	ctx := context.Background()

	// Successes, failures, and unknown commands all append exactly one
	// entry; empty lines append none.
	lines := []string{"pwd", "cat missing.txt", "nope", "", "echo hi"}
	for _, line := range lines {
		d.Execute(ctx, sess, line)
	}

	entries := sess.History()
	if len(entries) != 4 {
		t.Fatalf("history length = %d, want 4", len(entries))
	}
	for i, e := range entries {
		if e.Seq != i+1 {
			t.Errorf("entry %d Seq = %d, want %d", i, e.Seq, i+1)
		}
	}
}

func TestExecuteLowercasesCommand(t *testing.T) {
	d, sess := newTestDispatcher(t)

	res := d.Execute(context.Background(), sess, "PWD")
	if !res.Success {
		t.Fatalf("PWD failed: %s", res.Output)
	}
	entry, _ := sess.LastEntry()
	if entry.Command != "pwd" {
		t.Errorf("history command = %q, want lowercased %q", entry.Command, "pwd")
	}
}

func TestExecuteTimestampBeforeExecution(t *testing.T) {
	d, sess := newTestDispatcher(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	d.Execute(context.Background(), sess, "pwd")
	entry, _ := sess.LastEntry()
	if !entry.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", entry.Timestamp, fixed)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	reg := NewRegistry(Command{
		Name: "boom", Usage: "boom", Description: "panics",
		Run: func(context.Context, *Session, []string) (Result, error) {
			panic("handler bug")
		},
	})
	d := NewDispatcher(reg, testLogger())
	sess := NewSession("test", t.TempDir())

	res := d.Execute(context.Background(), sess, "boom")
	if res.Success {
		t.Error("panicking handler reported success")
	}
	if res.Output == "" {
		t.Error("panicking handler produced empty output")
	}
	if sess.HistoryLen() != 1 {
		t.Errorf("history length = %d, want 1", sess.HistoryLen())
	}
}

func TestExecuteQuotedArgs(t *testing.T) {
	d, sess := newTestDispatcher(t)

	res := mustSucceed(t, d, sess, `echo "a b c"`)
	if res.Output != "a b c" {
		t.Errorf("output = %q, want %q", res.Output, "a b c")
	}
	entry, _ := sess.LastEntry()
	if len(entry.Args) != 1 || entry.Args[0] != "a b c" {
		t.Errorf("args = %#v, want one token %q", entry.Args, "a b c")
	}
}

package shell

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fsCommands returns the filesystem command set. All operands are resolved
// against the session working directory; nothing beyond the process's own
// OS privileges restricts where they may point.
func fsCommands() []Command {
	return []Command{
		{Name: "ls", Usage: "ls [path]", Description: "List directory contents", Run: cmdLs},
		{Name: "cd", Usage: "cd [path]", Description: "Change directory", Run: cmdCd},
		{Name: "pwd", Usage: "pwd", Description: "Print working directory", Run: cmdPwd},
		{Name: "mkdir", Usage: "mkdir <dir>...", Description: "Create directory", Run: cmdMkdir},
		{Name: "rmdir", Usage: "rmdir <dir>...", Description: "Remove empty directory", Run: cmdRmdir},
		{Name: "rm", Usage: "rm <path>...", Description: "Remove file or directory", Run: cmdRm},
		{Name: "touch", Usage: "touch <file>...", Description: "Create empty file or update timestamp", Run: cmdTouch},
		{Name: "cat", Usage: "cat <file>...", Description: "Display file contents", Run: cmdCat},
		{Name: "echo", Usage: "echo [text...]", Description: "Display text", Run: cmdEcho},
		{Name: "mv", Usage: "mv <src> <dst>", Description: "Move or rename file", Run: cmdMv},
		{Name: "cp", Usage: "cp <src> <dst>", Description: "Copy file or directory", Run: cmdCp},
	}
}

func cmdLs(_ context.Context, sess *Session, args []string) (Result, error) {
	path := sess.WorkingDir
	display := "."
	if len(args) > 0 {
		path = sess.Resolve(args[0])
		display = args[0]
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Result{}, pathError(err, "Directory", display)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	// ReadDir already sorts by name.
	return ok(strings.Join(names, "\n")), nil
}

func cmdCd(_ context.Context, sess *Session, args []string) (Result, error) {
	target := sess.Home
	display := target
	if len(args) > 0 {
		target = sess.Resolve(args[0])
		display = args[0]
	}

	// Validate before commit: a failed cd leaves WorkingDir unchanged.
	info, err := os.Stat(target)
	if err != nil {
		return Result{}, pathError(err, "Directory", display)
	}
	if !info.IsDir() {
		return Result{}, failf(ErrNotADirectory, "Not a directory: %s", display)
	}

	sess.WorkingDir = target
	return ok(""), nil
}

func cmdPwd(_ context.Context, sess *Session, _ []string) (Result, error) {
	// Extra arguments are ignored; pwd takes none.
	return ok(sess.WorkingDir), nil
}

func cmdMkdir(_ context.Context, sess *Session, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, failf(ErrInvalidArgument, "mkdir: missing operand")
	}
	for _, a := range args {
		// Non-recursive: the parent must exist and the target must not.
		if err := os.Mkdir(sess.Resolve(a), 0755); err != nil {
			return Result{}, pathError(err, "Directory", a)
		}
	}
	return ok(""), nil
}

func cmdRmdir(_ context.Context, sess *Session, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, failf(ErrInvalidArgument, "rmdir: missing operand")
	}
	for _, a := range args {
		path := sess.Resolve(a)
		info, err := os.Stat(path)
		if err != nil {
			return Result{}, pathError(err, "Directory", a)
		}
		if !info.IsDir() {
			return Result{}, failf(ErrNotADirectory, "Not a directory: %s", a)
		}
		if err := os.Remove(path); err != nil {
			return Result{}, pathError(err, "Directory", a)
		}
	}
	return ok(""), nil
}

func cmdRm(_ context.Context, sess *Session, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, failf(ErrInvalidArgument, "rm: missing operand")
	}
	for _, a := range args {
		path := sess.Resolve(a)
		if _, err := os.Lstat(path); err != nil {
			return Result{}, pathError(err, "File", a)
		}
		// Directories are removed recursively, matching rm -r.
		if err := os.RemoveAll(path); err != nil {
			return Result{}, pathError(err, "File", a)
		}
	}
	return ok(""), nil
}

func cmdTouch(_ context.Context, sess *Session, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, failf(ErrInvalidArgument, "touch: missing operand")
	}
	now := time.Now()
	for _, a := range args {
		path := sess.Resolve(a)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return Result{}, pathError(err, "File", a)
		}
		_ = f.Close()
		if err := os.Chtimes(path, now, now); err != nil {
			return Result{}, pathError(err, "File", a)
		}
	}
	return ok(""), nil
}

func cmdCat(_ context.Context, sess *Session, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, failf(ErrInvalidArgument, "cat: missing operand")
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		path := sess.Resolve(a)
		info, err := os.Stat(path)
		if err != nil {
			return Result{}, pathError(err, "File", a)
		}
		if info.IsDir() {
			return Result{}, failf(ErrIsADirectory, "Is a directory: %s", a)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Result{}, pathError(err, "File", a)
		}
		parts = append(parts, string(data))
	}
	return ok(strings.Join(parts, "\n")), nil
}

func cmdEcho(_ context.Context, _ *Session, args []string) (Result, error) {
	return ok(strings.Join(args, " ")), nil
}

func cmdMv(_ context.Context, sess *Session, args []string) (Result, error) {
	if len(args) != 2 {
		return Result{}, failf(ErrInvalidArgument, "mv: expected <src> <dst>")
	}
	src := sess.Resolve(args[0])
	dst := sess.Resolve(args[1])

	if _, err := os.Lstat(src); err != nil {
		return Result{}, pathError(err, "File", args[0])
	}
	// Moving onto an existing directory moves into it.
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if err := os.Rename(src, dst); err != nil {
		return Result{}, pathError(err, "File", args[0])
	}
	return ok(""), nil
}

func cmdCp(_ context.Context, sess *Session, args []string) (Result, error) {
	if len(args) != 2 {
		return Result{}, failf(ErrInvalidArgument, "cp: expected <src> <dst>")
	}
	src := sess.Resolve(args[0])
	dst := sess.Resolve(args[1])

	info, err := os.Stat(src)
	if err != nil {
		return Result{}, pathError(err, "File", args[0])
	}

	if info.IsDir() {
		if _, err := os.Stat(dst); err == nil {
			return Result{}, failf(ErrAlreadyExists, "Directory already exists: %s", args[1])
		}
		if err := copyTree(src, dst); err != nil {
			return Result{}, pathError(err, "File", args[0])
		}
		return ok(""), nil
	}

	// Copying a file onto an existing directory copies into it.
	if dstInfo, err := os.Stat(dst); err == nil && dstInfo.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if err := copyFile(src, dst, info.Mode()); err != nil {
		return Result{}, pathError(err, "File", args[0])
	}
	return ok(""), nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func copyTree(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyTree(s, d); err != nil {
				return err
			}
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		if err := copyFile(s, d, info.Mode()); err != nil {
			return err
		}
	}
	return nil
}

// Package cli implements the changereview command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/codalotl/changereview/internal/health"
)

// Version is the changereview version. It is a var so build tooling can override it with -ldflags "-X .../internal/cli.Version=1.2.3".
var Version = "0.1.0"

// RunOptions override standard I/O. Nil fields use the process's.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// UsageError indicates a malformed command line (exit code 2).
type UsageError struct {
	Message string
}

func (e UsageError) Error() string { return e.Message }

func usageErrorf(format string, args ...any) UsageError {
	return UsageError{Message: fmt.Sprintf(format, args...)}
}

// Run runs the CLI with args (typically os.Args).
//
// It returns a recommended exit code and the error, if any:
//   - 0 -> err == nil
//   - 1 -> err != nil, but the command line was well formed
//   - 2 -> err != nil, the command line could not be parsed or misused a flag
//
// Run has already printed err to opts.Err (or stderr). Callers may pass the code to os.Exit.
func Run(args []string, opts *RunOptions) (int, error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	var errW io.Writer = os.Stderr
	if opts != nil {
		if opts.In != nil {
			in = opts.In
		}
		if opts.Out != nil {
			out = opts.Out
		}
		if opts.Err != nil {
			errW = opts.Err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCommand(out)
	root.SetArgs(argv)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errW)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0, nil
	}

	code := exitCode(err)
	fmt.Fprintf(errW, "Error: %s\n", health.HumanMessage(err))
	if code == 2 {
		fmt.Fprintf(errW, "Run '%s --help' for usage.\n", root.Name())
	}
	return code, err
}

func exitCode(err error) int {
	var usage UsageError
	if errors.As(err, &usage) {
		return 2
	}
	// cobra reports unknown subcommands and flags as plain errors.
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") || strings.HasPrefix(msg, "unknown shorthand flag") {
		return 2
	}
	return 1
}

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitInterrupted is the status for a command stopped by SIGINT or SIGTERM.
const ExitInterrupted = 130

var (
	stderr io.Writer = os.Stderr
	osExit           = os.Exit
)

// ExitCode maps a command error to a process status. Cancellation from a
// signal exits 130 like a shell-interrupted job; anything else is 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return 1
	}
}

// Exit reports err on stderr and exits with its ExitCode. A nil err returns.
func Exit(err error) {
	code := ExitCode(err)
	if code == 0 {
		return
	}
	if code == ExitInterrupted {
		fmt.Fprintln(stderr, "bloomy: interrupted")
		osExit(code)
		return
	}
	Exitf("%v", err)
}

// Exitf writes a bloomy-prefixed error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(stderr, "bloomy: "+format+"\n", args...)
	osExit(1)
}

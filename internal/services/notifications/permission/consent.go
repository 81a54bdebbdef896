package permission

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Static answers every prompt with a configured state.
type Static struct {
	Answer      State
	Unsupported bool
}

// Supported reports whether the static mechanism is enabled.
func (s Static) Supported() bool { return !s.Unsupported }

// Ask returns the configured answer.
func (s Static) Ask(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return StateDefault, err
	}
	if s.Answer == "" {
		return StateDefault, nil
	}
	return s.Answer, nil
}

// TTY is a terminal input with a file descriptor.
type TTY interface {
	io.Reader
	Fd() uintptr
}

// Terminal asks on an interactive terminal. Non-terminal input is
// unsupported.
type Terminal struct {
	In     TTY
	Out    io.Writer
	Prompt string
}

// Supported reports whether In is a terminal.
func (t Terminal) Supported() bool {
	return t.In != nil && t.Out != nil && term.IsTerminal(int(t.In.Fd()))
}

// Ask prints the prompt and reads one line.
func (t Terminal) Ask(ctx context.Context) (State, error) {
	if !t.Supported() {
		return StateDenied, nil
	}
	if err := ctx.Err(); err != nil {
		return StateDefault, err
	}
	prompt := strings.TrimSpace(t.Prompt)
	if prompt == "" {
		prompt = "Enable wellness reminders? [y/n]"
	}

	fd := int(t.In.Fd())
	previous, err := term.MakeRaw(fd)
	if err != nil {
		return readLineAnswer(t.In, t.Out, prompt)
	}
	defer func() { _ = term.Restore(fd, previous) }()

	screen := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{t.In, t.Out}, prompt+" ")
	line, err := screen.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return StateDefault, nil
		}
		return StateDefault, fmt.Errorf("read consent: %w", err)
	}
	return ParseAnswer(line), nil
}

func readLineAnswer(in io.Reader, out io.Writer, prompt string) (State, error) {
	if _, err := fmt.Fprint(out, prompt+" "); err != nil {
		return StateDefault, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return StateDefault, fmt.Errorf("read consent: %w", err)
	}
	return ParseAnswer(line), nil
}

// ParseAnswer maps a typed reply to a state. Blank replies dismiss the
// prompt and leave the state at default.
func ParseAnswer(line string) State {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "sim", "allow", "grant", "granted":
		return StateGranted
	case "n", "no", "nao", "não", "block", "deny", "denied":
		return StateDenied
	default:
		return StateDefault
	}
}

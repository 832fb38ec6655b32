package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Console is a line-oriented chat console. It implements agent.Speaker.
type Console struct {
	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	render      func(string) (string, error)
	profile     termenv.Profile
	interactive bool
}

// NewConsole creates a console on stdin/stdout. Colors and markdown rendering
// are enabled only when stdout is a terminal.
func NewConsole() *Console {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	width := 80
	if interactive {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	c := NewConsoleWithIO(os.Stdin, os.Stdout)
	if interactive {
		c.interactive = true
		c.profile = termenv.ColorProfile()
		c.render = NewRenderer(width)
	}
	return c
}

// NewConsoleWithIO creates a plain console on the given streams.
func NewConsoleWithIO(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:      bufio.NewReader(in),
		out:     out,
		render:  func(s string) (string, error) { return s + "\n", nil },
		profile: termenv.Ascii,
	}
}

// Say prints an assistant utterance.
func (c *Console) Say(_ context.Context, text string) error {
	rendered, err := c.render(text)
	if err != nil {
		rendered = text + "\n"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := c.profile.String("agent>").Foreground(c.profile.Color("#34d399")).Bold()
	_, err = fmt.Fprintf(c.out, "%s %s", prefix, strings.TrimLeft(rendered, " \n"))
	return err
}

// Notice prints a dimmed status line.
func (c *Console) Notice(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.profile.String(fmt.Sprintf(format, args...)).Faint())
}

// Prompt reads one line of user input. It returns io.EOF when input ends.
func (c *Console) Prompt() (string, error) {
	c.mu.Lock()
	fmt.Fprint(c.out, c.profile.String("you> ").Foreground(c.profile.Color("#38bdf8")).Bold())
	c.mu.Unlock()

	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

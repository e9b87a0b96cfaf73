// Package terminal hosts the ic19 client on a line-oriented console.
//
// A Console reads commands from an io.Reader on a background goroutine so every
// prompt honours context cancellation, and writes to an io.Writer with
// fatih/color highlighting. It provides the text form, the map surface, the
// location permission prompt and the acknowledgments the core needs.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Option configures a Console.
type Option func(*Console)

// WithoutColor disables all highlighting.
func WithoutColor() Option {
	return func(c *Console) {
		c.noColor = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// WithLocation sets the zone departure times are printed in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Console) {
		c.loc = loc
	}
}

// Console is an interactive line-based terminal.
type Console struct {
	out     io.Writer
	lines   chan string
	readErr error
	logger  *slog.Logger
	loc     *time.Location
	good    *color.Color
	bad     *color.Color
	warn    *color.Color
	accent  *color.Color
	dim     *color.Color
	mu      sync.Mutex
	noColor bool
}

// New starts reading lines from in.
func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		out:    out,
		lines:  make(chan string),
		logger: slog.Default(),
		loc:    time.Local,
		good:   color.New(color.FgGreen, color.Bold),
		bad:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow),
		accent: color.New(color.FgCyan, color.Bold),
		dim:    color.New(color.FgHiBlack),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.noColor {
		for _, col := range []*color.Color{c.good, c.bad, c.warn, c.accent, c.dim} {
			col.DisableColor()
		}
	}
	go c.read(in)
	return c
}

func (c *Console) read(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	c.readErr = scanner.Err()
	if c.readErr == nil {
		c.readErr = io.EOF
	}
	close(c.lines)
}

// readLine waits for the next input line. It returns io.EOF once input ends.
func (c *Console) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", c.readErr
		}
		return strings.TrimSpace(line), nil
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		c.logger.Debug("console write failed", "error", err)
	}
}

func (c *Console) colorf(col *color.Color, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := col.Fprintf(c.out, format, args...); err != nil {
		c.logger.Debug("console write failed", "error", err)
	}
}

func (c *Console) prompt() {
	c.printf("> ")
}

// Success prints a positive acknowledgment.
func (c *Console) Success(title, msg string) {
	c.colorf(c.good, "✓ %s", title)
	c.printf(": %s\n", msg)
}

// Failure prints an error acknowledgment.
func (c *Console) Failure(title, msg string) {
	c.colorf(c.bad, "✗ %s", title)
	c.printf(": %s\n", msg)
}

// Warn prints a non-blocking warning.
func (c *Console) Warn(msg string) {
	c.colorf(c.warn, "! %s\n", msg)
}

// Permission asks whether the client may use the device position.
func (c *Console) Permission(ctx context.Context) (bool, error) {
	c.printf("Allow ic19 to use your current location? [y/N] ")
	line, err := c.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes", "s", "sim":
		return true, nil
	default:
		return false, nil
	}
}

// splitCommand separates the first word from the rest of the line.
func splitCommand(line string) (cmd, arg string) {
	cmd, arg, _ = strings.Cut(strings.TrimSpace(line), " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Option configures a Logger created with New.
type Option func(*config)

// Format selects the handler New builds.
type Format int

const (
	// FormatText is slog's logfmt-style handler.
	FormatText Format = iota
	// FormatJSON is slog's JSON handler, for log files and collectors.
	FormatJSON
	// FormatPretty is the charmbracelet/log handler for terminals.
	FormatPretty
)

// ParseLevel maps a level name as written in config.toml (debug, info,
// warn or error, in any case) to a slog.Level. An empty name is Info.
func ParseLevel(name string) (slog.Level, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return slog.LevelInfo, nil
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q (supported: debug, info, warn, error)", name)
	}
	return l, nil
}

// WithLevel sets the minimum level by name. Names ParseLevel rejects leave
// the level unchanged; config validation reports them before a logger is
// built.
func WithLevel(name string) Option {
	return func(c *config) {
		if l, err := ParseLevel(name); err == nil {
			c.level = l
		}
	}
}

// WithDebug forces the Debug level when true. False keeps whatever level
// earlier options chose, so the --debug flag layers over log.level.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithFormat selects the output handler.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithTerminal picks FormatPretty when the output is an interactive
// terminal and FormatJSON otherwise.
func WithTerminal(tty bool) Option {
	if tty {
		return WithFormat(FormatPretty)
	}
	return WithFormat(FormatJSON)
}

// WithWriter sends output to w instead of os.Stdout.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters sends output to every non-nil writer in ws.
func WithWriters(ws ...io.Writer) Option {
	return func(c *config) {
		c.writers = c.writers[:0]
		for _, w := range ws {
			if w != nil {
				c.writers = append(c.writers, w)
			}
		}
	}
}

// WithSource adds the caller's file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

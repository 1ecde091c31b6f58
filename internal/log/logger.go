// Package log wraps slog with a per-component logger that travels through
// request contexts.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger tagged with exactly one component attribute.
type Logger struct {
	*slog.Logger
	base      *slog.Logger // same handler and attrs, minus the component
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler // overrides Level when set
}

func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp}
}

// ParseLevel maps LOG_LEVEL values (debug, info, warn, error) to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewHandler builds a text or JSON handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func New(cfg Config) *Logger {
	h := cfg.Handler
	if h == nil {
		h = NewHandler(os.Stdout, "text", cfg.Level)
	}
	return tagged(slog.New(h), cfg.Component)
}

func tagged(base *slog.Logger, component string) *Logger {
	l := base
	if component != "" {
		l = base.With(FieldComponent, component)
	}
	return &Logger{Logger: l, base: base, component: component}
}

// With adds attributes while keeping the component.
func (l *Logger) With(args ...any) *Logger {
	return tagged(l.base.With(args...), l.component)
}

// WithComponent swaps the component; attributes added by With are kept.
func (l *Logger) WithComponent(component string) *Logger {
	return tagged(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger for package-level slog calls.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

package console

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// ConsoleLogger writes log records through charmbracelet/log, either as
// coloured text for terminals or as JSON lines.
type ConsoleLogger struct {
	logger *log.Logger
}

type ConsoleLoggerParams struct {
	Debug bool
	// JSON switches to one JSON object per line, for log collectors.
	JSON bool
	// Prefix is printed in front of every message, e.g. the program name.
	Prefix string
	// Writer defaults to stderr.
	Writer io.Writer
}

func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	w := params.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           levelFor(params.Debug),
		Prefix:          params.Prefix,
	}
	if params.JSON {
		opts.Formatter = log.JSONFormatter
		opts.TimeFormat = time.RFC3339
	}
	return &ConsoleLogger{logger: log.NewWithOptions(w, opts)}
}

func levelFor(debug bool) log.Level {
	if debug {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// SetDebug toggles the debug level after construction.
func (c *ConsoleLogger) SetDebug(debug bool) {
	c.logger.SetLevel(levelFor(debug))
}

func (c *ConsoleLogger) Log(message string, keyvals ...any) {
	c.logger.Print(message, keyvals...)
}

func (c *ConsoleLogger) Info(message string, keyvals ...any) {
	c.logger.Info(message, keyvals...)
}

func (c *ConsoleLogger) Warn(message string, keyvals ...any) {
	c.logger.Warn(message, keyvals...)
}

func (c *ConsoleLogger) Error(message string, keyvals ...any) {
	c.logger.Error(message, keyvals...)
}

func (c *ConsoleLogger) Debug(message string, keyvals ...any) {
	c.logger.Debug(message, keyvals...)
}

// Fatal logs and exits with status 1.
func (c *ConsoleLogger) Fatal(message string, keyvals ...any) {
	c.logger.Fatal(message, keyvals...)
}

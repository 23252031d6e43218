package isoimage

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
)

// logrLogger adapts a logr.Logger to the isoimage.Logger interface,
// following the pack's go-logr-everywhere convention: callers who already
// have a logr.Logger wire it in directly rather than implementing Printf
// themselves.
type logrLogger struct {
	l logr.Logger
}

// NewLogrLogger wraps l as an isoimage.Logger.
func NewLogrLogger(l logr.Logger) Logger {
	return &logrLogger{l: l}
}

func (a *logrLogger) Printf(format string, args ...any) {
	a.l.Info(fmt.Sprintf(format, args...))
}

var (
	logPrefixInfo  = color.New(color.FgGreen).SprintFunc()
	logPrefixWarn  = color.New(color.FgYellow).SprintFunc()
	logPrefixError = color.New(color.FgRed).SprintFunc()
)

// consoleLogger is a small colorized Logger used by the CLI, grounded on
// the pack's colored SimpleLogSink, but implementing Printf directly
// rather than going through a logr.LogSink since the CLI has no need for
// logr's structured key/value plumbing.
type consoleLogger struct {
	w io.Writer
}

// NewConsoleLogger returns a colorized Logger writing to w (os.Stderr when
// w is nil).
func NewConsoleLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &consoleLogger{w: w}
}

func (c *consoleLogger) Printf(format string, args ...any) {
	fmt.Fprintf(c.w, "%s %s\n", logPrefixInfo("[isoforge]"), fmt.Sprintf(format, args...))
}

// consoleProgress implements ProgressReporter with colorized status lines;
// the terminal spinner itself (theckman/yacspin) is owned by the CLI,
// which passes an onStatus callback that SetStatus/SetProgress forward to,
// keeping the spinner's message in sync.
type consoleProgress struct {
	w         io.Writer
	onStatus  func(string)
	cancelled func() bool
}

// NewConsoleProgress returns a ProgressReporter that writes warnings/errors
// to w and forwards status text to onStatus (typically a yacspin spinner's
// Message method). cancelled is polled by Cancelled(); pass nil for a
// reporter that never cancels.
func NewConsoleProgress(w io.Writer, onStatus func(string), cancelled func() bool) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}
	return &consoleProgress{w: w, onStatus: onStatus, cancelled: cancelled}
}

func (c *consoleProgress) SetStatus(text string) {
	if c.onStatus != nil {
		c.onStatus(text)
	}
}

func (c *consoleProgress) SetMarquee(bool) {}

func (c *consoleProgress) SetProgress(percent float64) {
	if c.onStatus != nil {
		c.onStatus(fmt.Sprintf("%.0f%%", percent))
	}
}

func (c *consoleProgress) Notify(level NotifyLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case NotifyWarning:
		fmt.Fprintf(c.w, "%s %s\n", logPrefixWarn("[warn]"), msg)
	case NotifyError:
		fmt.Fprintf(c.w, "%s %s\n", logPrefixError("[error]"), msg)
	default:
		fmt.Fprintf(c.w, "%s %s\n", logPrefixInfo("[info]"), msg)
	}
}

func (c *consoleProgress) Cancelled() bool { return c.cancelled() }

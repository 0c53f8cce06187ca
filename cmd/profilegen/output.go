package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	stepColor    = color.New(color.FgCyan)
	faintColor   = color.New(color.Faint)
	boldColor    = color.New(color.Bold)
)

func printSuccess(format string, args ...any) {
	successColor.Fprintln(os.Stderr, "✓ "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	errorColor.Fprintln(os.Stderr, "✗ "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	warnColor.Fprintln(os.Stderr, "⚠ "+fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	stepColor.Fprintln(os.Stderr, "→ "+fmt.Sprintf(format, args...))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", boldColor.Sprint(label+":"), fmt.Sprintf(format, args...))
}

// progressColor picks the color for a progress line.
func progressColor(s orchestrator.Status) *color.Color {
	switch s {
	case orchestrator.StatusCompleted:
		return successColor
	case orchestrator.StatusFailed:
		return errorColor
	case orchestrator.StatusSkipped:
		return warnColor
	case orchestrator.StatusInProgress:
		return stepColor
	default:
		return faintColor
	}
}

// drainProgress prints every event from events until the channel closes,
// then signals done.
func drainProgress(w io.Writer, events <-chan orchestrator.ProgressEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		progressColor(ev.Status).Fprintln(w, orchestrator.FormatProgress(ev))
	}
}

// Package ui provides terminal output helpers for the recommender CLI.
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

var verboseFlag bool

// Init applies the color and verbosity settings.
func Init(noColor, verbose bool) {
	verboseFlag = verbose
	if noColor {
		color.NoColor = true
	}
}

// Section prints a highlighted section header.
func Section(title string) {
	fmt.Println()
	color.New(color.FgCyan, color.Bold).Printf("━━ %s ━━\n", title)
}

// Info prints an informational line.
func Info(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

// Verbose prints only when verbose output is enabled.
func Verbose(format string, args ...interface{}) {
	if verboseFlag {
		color.New(color.Faint).Printf(format+"\n", args...)
	}
}

// Success prints a green success line.
func Success(format string, args ...interface{}) {
	color.New(color.FgGreen).Printf(format+"\n", args...)
}

// Warn prints a yellow warning line.
func Warn(format string, args ...interface{}) {
	color.New(color.FgYellow).Printf(format+"\n", args...)
}

// Errorf prints a red error line to stderr.
func Errorf(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
}

// Spinner wraps an indeterminate progress indicator.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	return &Spinner{s: s}
}

// Start begins the spinner animation.
func (sp *Spinner) Start() { sp.s.Start() }

// Stop halts the spinner and clears the line.
func (sp *Spinner) Stop() { sp.s.Stop() }

// ProgressBar wraps a determinate progress display.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a progress bar over total items.
func NewProgressBar(total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
	return &ProgressBar{bar: bar}
}

// Add advances the bar by n items.
func (p *ProgressBar) Add(n int) {
	_ = p.bar.Add(n)
}

// Finish completes the bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

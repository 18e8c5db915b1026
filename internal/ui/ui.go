// Package ui renders progress and status lines on the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	success = color.New(color.FgGreen, color.Bold).SprintFunc()
	failure = color.New(color.FgRed, color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Success formats a line reporting a completed step.
func Success(s string) string { return success(s) }

// Failure formats a line reporting a failed step.
func Failure(s string) string { return failure(s) }

// Detail formats secondary information.
func Detail(s string) string { return faint(s) }

// Spin runs fn while showing msg. With animate set a spinner is drawn on out
// until fn returns; otherwise msg is printed once.
func Spin(out io.Writer, animate bool, msg string, fn func() error) error {
	if out == nil {
		out = io.Discard
	}
	if !animate {
		fmt.Fprintln(out, msg)
		return fn()
	}

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + msg
	s.Start()
	err := fn()
	s.Stop()

	if err != nil {
		fmt.Fprintln(out, Failure("✗")+" "+msg)
	} else {
		fmt.Fprintln(out, Success("✓")+" "+msg)
	}
	return err
}

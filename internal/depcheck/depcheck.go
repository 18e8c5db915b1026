// Package depcheck finds dependencies cargo-udeps reports as unused and removes
// them from the manifest after confirmation.
package depcheck

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/slimbuild/slimbuild/internal/l10n"
	"github.com/slimbuild/slimbuild/internal/manifest"
	"github.com/slimbuild/slimbuild/internal/toolchain"
	"github.com/slimbuild/slimbuild/internal/ui"
)

// ErrToolMissing is returned when cargo-udeps is not installed.
var ErrToolMissing = errors.New("cargo-udeps is not installed (install with: cargo install cargo-udeps)")

var depPattern = regexp.MustCompile(`"([^"]+)"`)

// ParseUdepsOutput returns the sorted crate names listed under each
// "unused dependencies:" block of cargo-udeps output.
func ParseUdepsOutput(output string) []string {
	var (
		deps      []string
		capturing bool
	)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			capturing = false
		case strings.HasPrefix(line, "unused dependencies:"):
			capturing = true
		case capturing:
			if m := depPattern.FindStringSubmatch(line); m != nil {
				deps = append(deps, m[1])
			}
		}
	}

	sort.Strings(deps)
	return deps
}

// Removal is the outcome of removing one dependency.
type Removal struct {
	Dependency string
	Section    string
	Err        error
}

// Succeeded reports whether the dependency was removed.
func (r Removal) Succeeded() bool { return r.Err == nil }

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(prompt string) bool

// Checker scans for and removes unused dependencies.
type Checker struct {
	Toolchain *toolchain.Toolchain
	// Manifest is the path of the Cargo manifest.
	Manifest string
	Out      io.Writer
	// Confirm defaults to PromptStdin.
	Confirm ConfirmFunc
	// Spinner shows progress while cargo-udeps runs.
	Spinner bool
}

func (c *Checker) out() io.Writer {
	if c.Out == nil {
		return io.Discard
	}
	return c.Out
}

func (c *Checker) confirm(prompt string) bool {
	if c.Confirm == nil {
		return PromptStdin(c.out())(prompt)
	}
	return c.Confirm(prompt)
}

// Check scans the project and removes confirmed unused dependencies. Removal
// failures are reported per dependency and do not fail the check.
func (c *Checker) Check(ctx context.Context) error {
	if err := c.Toolchain.RequireCommand("cargo-udeps"); err != nil {
		return ErrToolMissing
	}

	var output string
	err := ui.Spin(c.out(), c.Spinner, l10n.T("Scanning for unused dependencies..."), func() error {
		var err error
		output, err = c.Toolchain.Udeps(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to scan dependencies: %w", err)
	}

	unused := ParseUdepsOutput(output)
	if len(unused) == 0 {
		fmt.Fprintln(c.out(), l10n.T("No unused dependencies found"))
		return nil
	}

	fmt.Fprintln(c.out(), l10n.TN("\nFound %d unused dependency:", "\nFound %d unused dependencies:", uint32(len(unused)), len(unused)))
	fmt.Fprintln(c.out(), strings.Join(unused, "\n"))

	if !c.confirm(l10n.T("\nConfirm removal of these dependencies?")) {
		fmt.Fprintln(c.out(), l10n.T("Operation cancelled"))
		return nil
	}

	c.printRemovals(c.Remove(ctx, unused))
	return nil
}

// Remove locates each dependency in the manifest and removes it with cargo.
func (c *Checker) Remove(ctx context.Context, deps []string) []Removal {
	data, err := os.ReadFile(c.Manifest)
	if err != nil {
		err = fmt.Errorf("failed to load %s: %w", c.Manifest, err)
		return failAll(deps, err)
	}
	content := string(data)

	removals := make([]Removal, 0, len(deps))
	for _, dep := range deps {
		loc, err := manifest.LocateDependency(content, dep)
		if err != nil {
			removals = append(removals, Removal{Dependency: dep, Err: err})
			continue
		}
		r := Removal{Dependency: dep, Section: loc.Section}
		if err := c.Toolchain.Remove(ctx, dep, loc.Flag); err != nil {
			slog.Debug("cargo remove failed", "dependency", dep, "error", err)
			r.Err = err
		}
		removals = append(removals, r)
	}
	return removals
}

func failAll(deps []string, err error) []Removal {
	removals := make([]Removal, 0, len(deps))
	for _, dep := range deps {
		removals = append(removals, Removal{Dependency: dep, Err: err})
	}
	return removals
}

func (c *Checker) printRemovals(removals []Removal) {
	var ok, failed []Removal
	for _, r := range removals {
		if r.Succeeded() {
			ok = append(ok, r)
		} else {
			failed = append(failed, r)
		}
	}

	if len(ok) > 0 {
		fmt.Fprintln(c.out(), ui.Success(l10n.T("\nSuccessfully removed:")))
		for _, r := range ok {
			fmt.Fprintf(c.out(), "  %s (%s)\n", r.Dependency, r.Section)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(c.out(), ui.Failure(l10n.T("\nFailed to remove:")))
		for _, r := range failed {
			fmt.Fprintf(c.out(), "  %s: %v\n", r.Dependency, r.Err)
		}
	}
}

package depcheck

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/slimbuild/slimbuild/internal/manifest"
	"github.com/slimbuild/slimbuild/internal/toolchain"
	"github.com/slimbuild/slimbuild/internal/toolchain/toolchaintest"
)

const udepsOutput = `    Checking demo v0.1.0 (/work/demo)
    Finished dev [unoptimized + debuginfo] target(s) in 1.20s
info: Loading save analysis from "/work/demo/target/debug/deps/save-analysis/demo.json"
unused dependencies:
` + "`demo v0.1.0 (/work/demo)`" + `
└─── dependencies
     ├─── "regex"
     └─── "log"
└─── dev-dependencies
     └─── "proptest"

Note: They might be false-positive.
      For example, ` + "`cargo-udeps`" + ` cannot detect usage of crates that are only used in doc-tests.
`

const demoManifest = `[package]
name = "demo"

[dependencies]
log = "0.4"
regex = "1"

[dev-dependencies]
proptest = "1"
`

func TestParseUdepsOutput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "cargo-udeps report",
			input:    udepsOutput,
			expected: []string{"log", "proptest", "regex"},
		},
		{
			name:     "all dependencies used",
			input:    "All deps seem to have been used.\n",
			expected: nil,
		},
		{
			name:     "quoted text outside the block is ignored",
			input:    "info: \"noise\"\nunused dependencies:\n  \"serde\"\n\n\"later\"\n",
			expected: []string{"serde"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, ParseUdepsOutput(tt.input)); diff != "" {
				t.Errorf("ParseUdepsOutput() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func newChecker(t *testing.T, runner *toolchaintest.Runner, confirm ConfirmFunc) (*Checker, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Cargo.toml")
	if err := os.WriteFile(path, []byte(demoManifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	var out bytes.Buffer
	return &Checker{
		Toolchain: toolchain.New(runner),
		Manifest:  path,
		Out:       &out,
		Confirm:   confirm,
	}, &out
}

func TestChecker_Check(t *testing.T) {
	t.Run("removes confirmed dependencies", func(t *testing.T) {
		runner := toolchaintest.NewRunner().On("cargo +nightly udeps", toolchaintest.Response{
			Result: toolchain.Result{ExitCode: 1, Stdout: []byte(udepsOutput)},
		})
		checker, out := newChecker(t, runner, AlwaysYes)

		if err := checker.Check(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{
			"cargo +nightly udeps --all-targets",
			"cargo remove log",
			"cargo remove proptest --dev",
			"cargo remove regex",
		}
		if diff := cmp.Diff(expected, runner.Calls()); diff != "" {
			t.Errorf("Check() calls mismatch (-want +got):\n%s", diff)
		}
		if !strings.Contains(out.String(), "proptest (dev-dependencies)") {
			t.Errorf("expected removal summary, got:\n%s", out.String())
		}
	})

	t.Run("declined removal", func(t *testing.T) {
		runner := toolchaintest.NewRunner().Stdout("cargo +nightly udeps", udepsOutput)
		checker, out := newChecker(t, runner, func(string) bool { return false })

		if err := checker.Check(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"cargo +nightly udeps --all-targets"}, runner.Calls()); diff != "" {
			t.Errorf("Check() calls mismatch (-want +got):\n%s", diff)
		}
		if !strings.Contains(out.String(), "Operation cancelled") {
			t.Errorf("expected cancellation notice, got:\n%s", out.String())
		}
	})

	t.Run("nothing unused", func(t *testing.T) {
		runner := toolchaintest.NewRunner().Stdout("cargo +nightly udeps", "All deps seem to have been used.\n")
		checker, out := newChecker(t, runner, func(string) bool {
			t.Error("confirmation must not be requested")
			return false
		})

		if err := checker.Check(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "No unused dependencies found") {
			t.Errorf("expected notice, got:\n%s", out.String())
		}
	})

	t.Run("cargo-udeps missing", func(t *testing.T) {
		runner := toolchaintest.NewRunner().Missing("cargo-udeps")
		checker, _ := newChecker(t, runner, AlwaysYes)

		if err := checker.Check(context.Background()); !errors.Is(err, ErrToolMissing) {
			t.Errorf("expected ErrToolMissing, got %v", err)
		}
	})

	t.Run("cargo-udeps crashes", func(t *testing.T) {
		runner := toolchaintest.NewRunner().Fail("cargo +nightly udeps", 101, "panicked")
		checker, _ := newChecker(t, runner, AlwaysYes)

		var exitErr *toolchain.ExitError
		if err := checker.Check(context.Background()); !errors.As(err, &exitErr) {
			t.Errorf("expected *ExitError, got %v", err)
		}
	})
}

func TestChecker_Remove(t *testing.T) {
	runner := toolchaintest.NewRunner().Fail("cargo remove regex", 1, "error: the dependency `regex` could not be found")
	checker, _ := newChecker(t, runner, AlwaysYes)

	removals := checker.Remove(context.Background(), []string{"log", "regex", "serde"})
	if len(removals) != 3 {
		t.Fatalf("expected 3 removals, got %d", len(removals))
	}
	if !removals[0].Succeeded() || removals[0].Section != "dependencies" {
		t.Errorf("expected log removed from dependencies, got %+v", removals[0])
	}
	if removals[1].Succeeded() {
		t.Error("expected regex removal to fail")
	}
	if !errors.Is(removals[2].Err, manifest.ErrDependencyNotFound) {
		t.Errorf("expected ErrDependencyNotFound for serde, got %v", removals[2].Err)
	}
}

func TestChecker_RemoveMissingManifest(t *testing.T) {
	checker := &Checker{
		Toolchain: toolchain.New(toolchaintest.NewRunner()),
		Manifest:  filepath.Join(t.TempDir(), "Cargo.toml"),
	}
	for _, r := range checker.Remove(context.Background(), []string{"log", "regex"}) {
		if r.Succeeded() {
			t.Errorf("expected %s removal to fail", r.Dependency)
		}
	}
}

func TestPrompt(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{input: "y\n", expected: true},
		{input: "Y\n", expected: true},
		{input: "  y  \n", expected: true},
		{input: "yes\n", expected: false},
		{input: "n\n", expected: false},
		{input: "", expected: false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		if got := Prompt(strings.NewReader(tt.input), &out)("Proceed?"); got != tt.expected {
			t.Errorf("Prompt(%q) = %v, want %v", tt.input, got, tt.expected)
		}
		if out.String() != "Proceed? (y/n) " {
			t.Errorf("unexpected prompt %q", out.String())
		}
	}
}

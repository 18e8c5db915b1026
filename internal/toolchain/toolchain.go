package toolchain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrNightlyMissing is returned when the nightly toolchain is not installed.
	ErrNightlyMissing = errors.New("rust nightly toolchain is required but not installed")
	// ErrRustupUnavailable is returned when rustup cannot be executed.
	ErrRustupUnavailable = errors.New("rustup is not available or cannot be executed")
	// ErrUPXNoLZMA is returned when the installed upx lacks LZMA support.
	ErrUPXNoLZMA = errors.New("upx with LZMA support is required")
	// ErrCommandMissing is returned by RequireCommand.
	ErrCommandMissing = errors.New("required command not found")
)

// DefaultUPXArgs are the upx flags used when none are configured.
var DefaultUPXArgs = []string{"--best", "--lzma"}

// Toolchain wraps the cargo, rustc, rustup and upx invocations of a release
// build.
type Toolchain struct {
	Runner Runner
	// Channel is the rustup toolchain used for build-std builds.
	Channel string
	UPXArgs []string
}

// New returns a Toolchain using the nightly channel.
func New(runner Runner) *Toolchain {
	return &Toolchain{
		Runner:  runner,
		Channel: "nightly",
		UPXArgs: DefaultUPXArgs,
	}
}

func (t *Toolchain) channel() string {
	if t.Channel == "" {
		return "nightly"
	}
	return t.Channel
}

// run executes a command and turns a non-zero exit into an *ExitError.
func (t *Toolchain) run(ctx context.Context, name string, args ...string) (Result, error) {
	res, err := t.Runner.Run(ctx, name, args...)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &ExitError{
			Command: strings.TrimSpace(name + " " + strings.Join(args, " ")),
			Code:    res.ExitCode,
			Stderr:  strings.TrimSpace(string(res.Stderr)),
		}
	}
	return res, nil
}

// RequireCommand fails when name cannot be found on PATH.
func (t *Toolchain) RequireCommand(name string) error {
	if _, err := t.Runner.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s", ErrCommandMissing, name)
	}
	return nil
}

// CheckNightly verifies the configured channel is installed.
func (t *Toolchain) CheckNightly(ctx context.Context) error {
	if err := t.RequireCommand("rustup"); err != nil {
		return ErrRustupUnavailable
	}
	res, err := t.Runner.Run(ctx, "rustup", "run", t.channel(), "rustc", "--version")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRustupUnavailable, err)
	}
	if res.ExitCode != 0 || !bytes.Contains(res.Stdout, []byte("nightly")) {
		return ErrNightlyMissing
	}
	return nil
}

// CheckUPX verifies upx is installed and supports LZMA.
func (t *Toolchain) CheckUPX(ctx context.Context) error {
	if err := t.RequireCommand("upx"); err != nil {
		return err
	}
	res, err := t.Runner.Run(ctx, "upx", "--help")
	if err != nil {
		return err
	}
	if !bytes.Contains(res.Stdout, []byte("--lzma")) {
		return ErrUPXNoLZMA
	}
	return nil
}

// HostTarget returns the host triple reported by `rustc -vV`.
func (t *Toolchain) HostTarget(ctx context.Context) (string, error) {
	res, err := t.run(ctx, "rustc", "-vV")
	if err != nil {
		return "", fmt.Errorf("failed to get rustc version: %w", err)
	}
	return ParseHostTarget(string(res.Stdout))
}

// ParseHostTarget extracts the "host: " line from `rustc -vV` output.
func ParseHostTarget(output string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if host, ok := strings.CutPrefix(line, "host: "); ok {
			return strings.TrimSpace(host), nil
		}
	}
	return "", errors.New("unable to determine default target platform")
}

type metadataDTO struct {
	TargetDirectory string `json:"target_directory"`
}

// TargetDir returns cargo's target directory for the current workspace.
func (t *Toolchain) TargetDir(ctx context.Context) (string, error) {
	res, err := t.run(ctx, "cargo", "metadata", "--format-version=1", "--no-deps")
	if err != nil {
		return "", fmt.Errorf("failed to read cargo metadata: %w", err)
	}
	var dto metadataDTO
	if err := json.Unmarshal(res.Stdout, &dto); err != nil {
		return "", fmt.Errorf("failed to parse cargo metadata: %w", err)
	}
	if dto.TargetDirectory == "" {
		return "", errors.New("failed to get target directory")
	}
	return dto.TargetDirectory, nil
}

// Clean removes previous build output.
func (t *Toolchain) Clean(ctx context.Context) error {
	_, err := t.run(ctx, "cargo", "clean")
	return err
}

// BuildArgs returns the cargo arguments of a size-optimized release build.
func (t *Toolchain) BuildArgs(target string) []string {
	return []string{
		"+" + t.channel(),
		"build",
		"-Z", "build-std=std,panic_abort",
		"-Z", "build-std-features=panic_immediate_abort",
		"--target", target,
		"--release",
	}
}

// Build compiles the release artifact for target.
func (t *Toolchain) Build(ctx context.Context, target string) error {
	_, err := t.run(ctx, "cargo", t.BuildArgs(target)...)
	return err
}

// Clippy runs the linter and treats warnings as errors.
func (t *Toolchain) Clippy(ctx context.Context) error {
	_, err := t.run(ctx, "cargo", "clippy", "--all-targets", "--", "-D", "warnings")
	return err
}

// Deny runs the cargo-deny license and advisory checks.
func (t *Toolchain) Deny(ctx context.Context) error {
	if err := t.RequireCommand("cargo-deny"); err != nil {
		return fmt.Errorf("%w (install with: cargo install cargo-deny)", err)
	}
	_, err := t.run(ctx, "cargo", "deny", "check")
	return err
}

// Compress packs the executable at path with upx.
func (t *Toolchain) Compress(ctx context.Context, path string) error {
	args := t.UPXArgs
	if len(args) == 0 {
		args = DefaultUPXArgs
	}
	_, err := t.run(ctx, "upx", append(append([]string{}, args...), path)...)
	return err
}

// Udeps runs cargo-udeps and returns its combined output. cargo-udeps exits
// with 1 when it finds unused dependencies, so only higher codes fail.
func (t *Toolchain) Udeps(ctx context.Context) (string, error) {
	res, err := t.Runner.Run(ctx, "cargo", "+"+t.channel(), "udeps", "--all-targets")
	if err != nil {
		return "", err
	}
	if res.ExitCode > 1 || res.ExitCode < 0 {
		return "", &ExitError{
			Command: "cargo udeps",
			Code:    res.ExitCode,
			Stderr:  strings.TrimSpace(string(res.Stderr)),
		}
	}
	return string(res.Stdout) + "\n" + string(res.Stderr), nil
}

// Remove drops dep from the manifest with `cargo remove`. flag selects the
// dependency table (--dev, --build) and may be empty.
func (t *Toolchain) Remove(ctx context.Context, dep, flag string) error {
	args := []string{"remove", dep}
	if flag != "" {
		args = append(args, flag)
	}
	_, err := t.run(ctx, "cargo", args...)
	return err
}

// ExecutablePath returns where cargo places the release binary of name built
// for target.
func ExecutablePath(targetDir, name, target string) string {
	return filepath.Join(targetDir, target, "release", name+executableSuffix(target))
}

func executableSuffix(target string) string {
	switch {
	case strings.Contains(target, "uefi"):
		return ".efi"
	case strings.Contains(target, "windows"):
		return ".exe"
	default:
		return ""
	}
}

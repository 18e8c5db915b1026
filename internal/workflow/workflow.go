// Package workflow sequences a size-optimized release build: preflight checks,
// optional lint and audit steps, the patched-manifest build, compression and
// the size report.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/slimbuild/slimbuild/internal/l10n"
	"github.com/slimbuild/slimbuild/internal/manifest"
	"github.com/slimbuild/slimbuild/internal/toolchain"
	"github.com/slimbuild/slimbuild/internal/ui"
)

// Options selects the optional steps of a build.
type Options struct {
	// Target is the target triple; empty means the host.
	Target string
	UPX    bool
	Clean  bool
	Clippy bool
	Deny   bool
	// FullCheck runs clippy, the unused-dependency scan and cargo-deny before
	// building, stopping at the first failure.
	FullCheck bool
}

// DependencyChecker scans for unused dependencies.
type DependencyChecker interface {
	Check(ctx context.Context) error
}

// DependencyCheckFunc adapts a function to DependencyChecker.
type DependencyCheckFunc func(ctx context.Context) error

// Check implements DependencyChecker.
func (f DependencyCheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Report describes the produced artifact.
type Report struct {
	RunID      string
	Target     string
	Executable string
	Size       int64
}

// SizeKB returns the artifact size in kibibytes.
func (r Report) SizeKB() float64 { return float64(r.Size) / 1024.0 }

// Orchestrator runs the release workflow.
type Orchestrator struct {
	Toolchain *toolchain.Toolchain
	// Manifest is the path of Cargo.toml.
	Manifest string
	// Section and Settings default to manifest.ReleaseSection and
	// manifest.ReleaseProfile.
	Section  string
	Settings []manifest.Setting
	// DependencyChecker runs during a full check; nil skips the scan.
	DependencyChecker DependencyChecker
	Out               io.Writer
	// Spinner animates long steps.
	Spinner bool
	Logger  *slog.Logger
}

func (o *Orchestrator) out() io.Writer {
	if o.Out == nil {
		return io.Discard
	}
	return o.Out
}

func (o *Orchestrator) section() string {
	if o.Section == "" {
		return manifest.ReleaseSection
	}
	return o.Section
}

func (o *Orchestrator) settings() []manifest.Setting {
	if o.Settings == nil {
		return manifest.ReleaseProfile
	}
	return o.Settings
}

// Run executes the workflow. The manifest is patched only around the build
// steps and is restored before any build failure is returned.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run", report.RunID)

	if err := o.preflight(ctx, opts); err != nil {
		return report, err
	}

	target := opts.Target
	if target == "" {
		host, err := o.Toolchain.HostTarget(ctx)
		if err != nil {
			return report, err
		}
		target = host
		logger.Debug("detected host target", "target", target)
	}
	report.Target = target

	executable, err := o.executablePath(ctx, target)
	if err != nil {
		return report, err
	}
	report.Executable = executable

	if err := o.checks(ctx, opts); err != nil {
		return report, err
	}

	patched := false
	err = manifest.Patch(o.Manifest, o.section(), o.settings(), func(scope *manifest.Scope) error {
		patched = true
		logger.Info("patched manifest", "path", scope.Path(), "section", o.section())
		size, err := o.build(ctx, opts, target, executable)
		report.Size = size
		return err
	})
	if patched {
		logger.Info("restored manifest", "path", o.Manifest, "error", err)
	}
	if err != nil {
		return report, err
	}

	fmt.Fprintf(o.out(), "\n%s\n", ui.Success(l10n.T("Build complete! Final size: %.1f KB", report.SizeKB())))
	fmt.Fprintln(o.out(), l10n.T("Executable path: %s", report.Executable))
	logger.Info("build finished", "target", target, "executable", executable, "size", report.Size)
	return report, nil
}

func (o *Orchestrator) preflight(ctx context.Context, opts Options) error {
	if err := o.Toolchain.RequireCommand("cargo"); err != nil {
		return err
	}
	if err := o.Toolchain.CheckNightly(ctx); err != nil {
		return err
	}
	if opts.UPX {
		if err := o.Toolchain.CheckUPX(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) executablePath(ctx context.Context, target string) (string, error) {
	data, err := os.ReadFile(o.Manifest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", manifest.ErrNotFound, o.Manifest)
		}
		return "", fmt.Errorf("failed to read %s: %w", o.Manifest, err)
	}
	name, err := manifest.PackageName(string(data))
	if err != nil {
		return "", err
	}
	targetDir, err := o.Toolchain.TargetDir(ctx)
	if err != nil {
		return "", err
	}
	return toolchain.ExecutablePath(targetDir, name, target), nil
}

// checks runs lint and audit steps against the unpatched manifest. They run
// before the patch scope because `cargo remove` rewrites the manifest and a
// restore would undo it.
func (o *Orchestrator) checks(ctx context.Context, opts Options) error {
	type step struct {
		enabled bool
		msg     string
		fn      func(context.Context) error
	}

	var depcheck func(context.Context) error
	if o.DependencyChecker != nil {
		depcheck = o.DependencyChecker.Check
	}

	steps := []step{
		{opts.Clippy || opts.FullCheck, l10n.T("Running clippy lint checks..."), o.Toolchain.Clippy},
		{opts.FullCheck && depcheck != nil, l10n.T("Checking for unused dependencies..."), depcheck},
		{opts.Deny || opts.FullCheck, l10n.T("Running cargo-deny checks..."), o.Toolchain.Deny},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ui.Spin(o.out(), o.Spinner, s.msg, func() error { return s.fn(ctx) }); err != nil {
			return err
		}
	}
	return nil
}

// build runs inside the patch scope and returns the artifact size.
func (o *Orchestrator) build(ctx context.Context, opts Options, target, executable string) (int64, error) {
	if opts.Clean {
		if err := ui.Spin(o.out(), o.Spinner, l10n.T("Cleaning previous build files..."), func() error {
			return o.Toolchain.Clean(ctx)
		}); err != nil {
			return 0, err
		}
	}

	fmt.Fprintln(o.out(), ui.Detail(l10n.T("Target: %s", target)))
	if err := ui.Spin(o.out(), o.Spinner, l10n.T("Building optimized executable..."), func() error {
		return o.Toolchain.Build(ctx, target)
	}); err != nil {
		return 0, err
	}

	if opts.UPX {
		if err := ui.Spin(o.out(), o.Spinner, l10n.T("Compressing with UPX: %s", executable), func() error {
			return o.Toolchain.Compress(ctx, executable)
		}); err != nil {
			return 0, err
		}
	}

	info, err := os.Stat(executable)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect %s: %w", executable, err)
	}
	return info.Size(), nil
}

package main

import (
	"github.com/urfave/cli/v2"

	"github.com/slimbuild/slimbuild/internal/conf"
	"github.com/slimbuild/slimbuild/internal/depcheck"
	"github.com/slimbuild/slimbuild/internal/l10n"
	"github.com/slimbuild/slimbuild/internal/manifest"
	"github.com/slimbuild/slimbuild/internal/workflow"
)

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: l10n.T("Build the project"),
		Description: l10n.T("Temporarily adds size optimizations to the release profile of the manifest, " +
			"builds the standard library from source with the nightly toolchain and restores the " +
			"manifest afterwards, whether the build succeeds or not."),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Usage: l10n.T("target platform (default: auto-detect)"),
			},
			&cli.BoolFlag{
				Name:  "upx",
				Usage: l10n.T("enable UPX compression"),
			},
			&cli.BoolFlag{
				Name:  "clean",
				Usage: l10n.T("clean before building"),
			},
			&cli.BoolFlag{
				Name:  "clippy",
				Usage: l10n.T("run clippy lint checks before building"),
			},
			&cli.BoolFlag{
				Name:  "deny",
				Usage: l10n.T("run cargo-deny checks before building"),
			},
			&cli.BoolFlag{
				Name:  "full-check",
				Usage: l10n.T("run clippy, depcheck and cargo-deny before building, stopping on the first failure"),
			},
			&cli.BoolFlag{
				Name:  "yes",
				Usage: l10n.T("remove unused dependencies found by --full-check without asking"),
			},
		},
		Action: buildAction,
	}
}

func buildAction(c *cli.Context) error {
	tc := newToolchain(c)
	out := c.App.Writer

	checker := &depcheck.Checker{
		Toolchain: tc,
		Manifest:  c.String("manifest"),
		Out:       out,
		Confirm:   depcheck.PromptStdin(out),
		Spinner:   animate(c),
	}
	if c.Bool("yes") {
		checker.Confirm = depcheck.AlwaysYes
	}

	section := conf.Configuration.ProfileSection
	if section == "" {
		section = manifest.ReleaseSection
	}

	orchestrator := &workflow.Orchestrator{
		Toolchain:         tc,
		Manifest:          c.String("manifest"),
		Section:           section,
		Settings:          manifest.ReleaseProfile,
		DependencyChecker: checker,
		Out:               out,
		Spinner:           animate(c),
	}
	_, err := orchestrator.Run(c.Context, workflow.Options{
		Target:    c.String("target"),
		UPX:       c.Bool("upx"),
		Clean:     c.Bool("clean"),
		Clippy:    c.Bool("clippy"),
		Deny:      c.Bool("deny"),
		FullCheck: c.Bool("full-check"),
	})
	return err
}

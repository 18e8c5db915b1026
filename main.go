package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"

	"github.com/slimbuild/slimbuild/internal/conf"
	"github.com/slimbuild/slimbuild/internal/l10n"
	"github.com/slimbuild/slimbuild/internal/logging"
	"github.com/slimbuild/slimbuild/internal/toolchain"
	"github.com/slimbuild/slimbuild/internal/ui"
)

// Version is set at link time.
var Version = "dev"

func main() {
	app := newApp()

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Failure(l10n.T("error: %v", err)))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "slimbuild",
		Version: Version,
		Usage:   l10n.T("build size-optimized Rust release executables"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "manifest",
				Value: conf.Configuration.Manifest,
				Usage: l10n.T("path to the Cargo manifest"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: conf.Configuration.LogLevel.String(),
				Usage: l10n.T("log verbosity: DEBUG, INFO, WARN or ERROR"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: l10n.T("stream the output of cargo and upx"),
			},
			&cli.BoolFlag{
				Name:   "generate-man-page",
				Hidden: true,
			},
			&cli.BoolFlag{
				Name:   "generate-markdown",
				Hidden: true,
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			depcheckCommand(),
		},
		Before: beforeAction,
		Action: mainAction,
	}
}

func beforeAction(c *cli.Context) error {
	level, err := logging.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	slog.SetDefault(logging.New(os.Stderr, conf.Configuration.LogTarget, level))
	slog.Debug("configuration loaded", "manifest", c.String("manifest"), "toolchain", conf.Configuration.Toolchain)
	return nil
}

func mainAction(c *cli.Context) error {
	switch {
	case c.Bool("generate-man-page"):
		page, err := c.App.ToMan()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, page)
		return nil
	case c.Bool("generate-markdown"):
		page, err := c.App.ToMarkdown()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, page)
		return nil
	}
	return cli.ShowAppHelp(c)
}

// newRunner creates the runner executing toolchain commands in dir.
var newRunner = func(dir string, stdout, stderr io.Writer) toolchain.Runner {
	return &toolchain.ExecRunner{Dir: dir, Stdout: stdout, Stderr: stderr}
}

// newToolchain returns a toolchain running commands next to the manifest.
func newToolchain(c *cli.Context) *toolchain.Toolchain {
	var stdout, stderr io.Writer
	if c.Bool("verbose") {
		stdout, stderr = c.App.ErrWriter, c.App.ErrWriter
	}
	tc := toolchain.New(newRunner(filepath.Dir(c.String("manifest")), stdout, stderr))
	if conf.Configuration.Toolchain != "" {
		tc.Channel = conf.Configuration.Toolchain
	}
	if len(conf.Configuration.UPXArgs) > 0 {
		tc.UPXArgs = conf.Configuration.UPXArgs
	}
	return tc
}

// animate reports whether spinners should be drawn.
func animate(c *cli.Context) bool {
	return !c.Bool("verbose") && ui.IsTerminal(os.Stdout)
}

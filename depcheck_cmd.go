package main

import (
	"github.com/urfave/cli/v2"

	"github.com/slimbuild/slimbuild/internal/depcheck"
	"github.com/slimbuild/slimbuild/internal/l10n"
)

func depcheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "depcheck",
		Usage: l10n.T("Check and remove unused dependencies"),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: l10n.T("remove unused dependencies without asking"),
			},
		},
		Action: func(c *cli.Context) error {
			out := c.App.Writer
			checker := &depcheck.Checker{
				Toolchain: newToolchain(c),
				Manifest:  c.String("manifest"),
				Out:       out,
				Confirm:   depcheck.PromptStdin(out),
				Spinner:   animate(c),
			}
			if c.Bool("yes") {
				checker.Confirm = depcheck.AlwaysYes
			}
			return checker.Check(c.Context)
		},
	}
}

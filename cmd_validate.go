package main

import (
	"github.com/urfave/cli/v2"

	"adei_backend/core"
	"adei_backend/core/validation"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check configuration, database, and LLM endpoint health",
		UsageText: "adei validate [--strict] [--quick]",
		Description: "Runs the startup checklist and prints a colored report: environment\n" +
			"file, endpoint URL and API key, data directory, disk space, database\n" +
			"and migrations, dataset counts, and LLM reachability. Exits non-zero\n" +
			"on failures; with --strict, warnings fail too.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "treat warnings as failures",
			},
			&cli.BoolFlag{
				Name:  "quick",
				Usage: "configuration and filesystem checks only, skip network and database probes",
			},
		},
		Action: validateAction,
	}
}

func validateAction(c *cli.Context) error {
	// The checklist is the command's output, so the structured logger
	// stays out of the way here.
	cfg, err := core.LoadConfig()
	if err != nil {
		return err
	}

	suite := validation.NewValidationSuite(cfg)

	var result validation.SuiteResult
	if c.Bool("quick") {
		result = suite.ValidateQuick()
	} else {
		result = suite.Validate(c.Context)
	}

	if !result.OK(c.Bool("strict")) {
		// The suite already printed the per-check report
		return cli.Exit("", core.ExitCodeError)
	}
	return nil
}

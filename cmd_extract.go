package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"adei_backend/adei"
	"adei_backend/core"
	"adei_backend/core/validation"
	"adei_backend/pdfprocessor"
)

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract country records from the index report PDF via the LLM",
		UsageText: "adei extract [--pdf FILE] [--out FILE]",
		Description: "Reads the report, locates the country profile section, splits it\n" +
			"into per-country chunks, and asks the configured LLM to return each\n" +
			"country's scores as JSON. Countries that fail extraction are skipped\n" +
			"with a warning; the command only fails when no country succeeds.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "pdf",
				Usage: "report `FILE` to extract from (default from configuration)",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output JSON `FILE` (default from configuration)",
			},
		},
		Action: extractAction,
	}
}

func extractAction(c *cli.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer syncLogger(log)

	if path := c.String("pdf"); path != "" {
		cfg.PDFPath = path
	}
	if path := c.String("out"); path != "" {
		cfg.JSONPath = path
	}

	// Quick validation so a missing API key fails before the first LLM call
	suite := validation.NewValidationSuite(cfg)
	if result := suite.ValidateQuick(); !result.OK(false) {
		return fmt.Errorf("configuration check failed: %s", result.Summary())
	}

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := core.NewAIClient(cfg, log)
	pipeline := pdfprocessor.NewPipeline(pdfprocessor.PipelineConfigFromCore(cfg), client, log)
	pipeline.SetProgressCallback(consoleProgress)

	log.Infow("Starting extraction",
		"pdf", cfg.PDFPath,
		"output", cfg.JSONPath,
		"model", cfg.Model,
		"max_concurrent", cfg.MaxConcurrent,
	)

	result, runErr := pipeline.Run(ctx, cfg.PDFPath)

	// Partial results are written even when the run as a whole failed, so
	// a long extraction interrupted near the end is not lost.
	if result != nil && len(result.Records) > 0 {
		if err := adei.WriteDataset(cfg.JSONPath, result.Records); err != nil {
			return fmt.Errorf("writing dataset: %w", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, pdfprocessor.ErrNoCountriesExtracted) {
			return fmt.Errorf("extraction produced no usable country data: %w", runErr)
		}
		if result != nil && len(result.Records) > 0 {
			fmt.Printf("Partial dataset written to %s (%d countries)\n", cfg.JSONPath, len(result.Records))
		}
		return fmt.Errorf("extraction failed: %w", runErr)
	}

	log.Infow("Extraction complete",
		"extracted", result.Extracted,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"chunks", result.TotalChunks,
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens,
		"duration", result.Duration,
		"output", cfg.JSONPath,
	)

	fmt.Printf("Extracted %d countries (%d skipped, %d failed) in %s -> %s\n",
		result.Extracted, result.Skipped, result.Failed,
		result.Duration.Round(time.Second), cfg.JSONPath)

	return nil
}

// consoleProgress prints pipeline progress to stdout. Stages that report
// a fraction get a percentage; purely informational stages just print.
func consoleProgress(stage string, progress float64, message string) {
	if progress >= 0 {
		fmt.Printf("  [%s] %3.0f%% %s\n", stage, progress*100, message)
		return
	}
	fmt.Printf("  [%s] %s\n", stage, message)
}

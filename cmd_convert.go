package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"adei_backend/adei"
	"adei_backend/excelconv"
)

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert the official scores workbook (XLSX) to the JSON dataset",
		UsageText: "adei convert [--xlsx FILE] [--sheet NAME] [--out FILE] [--structure FILE]",
		Description: "Reads the published scores table, keeps the most recent year per\n" +
			"country, recomputes competition ranking, and writes the same JSON\n" +
			"dataset shape the PDF extraction produces. Use --structure to load\n" +
			"a YAML pillar layout when the workbook columns change between years.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "xlsx",
				Usage: "scores workbook `FILE` (default from configuration)",
			},
			&cli.StringFlag{
				Name:  "sheet",
				Usage: "worksheet `NAME` holding the scores table",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output JSON `FILE` (default from configuration)",
			},
			&cli.StringFlag{
				Name:  "structure",
				Usage: "YAML `FILE` overriding the built-in pillar column layout",
			},
		},
		Action: convertAction,
	}
}

func convertAction(c *cli.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer syncLogger(log)

	if path := c.String("xlsx"); path != "" {
		cfg.XLSXPath = path
	}
	if name := c.String("sheet"); name != "" {
		cfg.SheetName = name
	}
	if path := c.String("out"); path != "" {
		cfg.JSONPath = path
	}
	if path := c.String("structure"); path != "" {
		cfg.StructurePath = path
	}

	convConfig := excelconv.DefaultConfig()
	if cfg.SheetName != "" {
		convConfig.SheetName = cfg.SheetName
	}
	if cfg.StructurePath != "" {
		structure, err := excelconv.LoadStructure(cfg.StructurePath)
		if err != nil {
			return fmt.Errorf("loading structure file %s: %w", cfg.StructurePath, err)
		}
		convConfig.Structure = structure
		log.Infow("Using structure override", "path", cfg.StructurePath)
	}

	converter := excelconv.NewConverter(convConfig, log)
	result, err := converter.ConvertFile(cfg.XLSXPath)
	if err != nil {
		return fmt.Errorf("converting %s: %w", cfg.XLSXPath, err)
	}

	if err := adei.WriteDataset(cfg.JSONPath, result.Records); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}

	log.Infow("Conversion complete",
		"countries", len(result.Records),
		"rows_read", result.RowsRead,
		"dropped", result.Dropped,
		"sheet", convConfig.SheetName,
		"output", cfg.JSONPath,
	)

	fmt.Printf("Converted %d countries (%d rows read, %d dropped) -> %s\n",
		len(result.Records), result.RowsRead, result.Dropped, cfg.JSONPath)

	return nil
}

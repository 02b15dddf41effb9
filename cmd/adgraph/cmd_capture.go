package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/VeeDuvv/adgraph/internal/capture"
)

func captureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record advertising knowledge into the graph",
	}

	cmd.AddCommand(
		captureCampaignCmd(),
		captureBriefCmd(),
	)

	return cmd
}

func captureCampaignCmd() *cobra.Command {
	var (
		description string
		brand       string
		audiences   string
		channels    string
		tags        string
		source      string
	)

	cmd := &cobra.Command{
		Use:   "campaign [name]",
		Short: "Record a campaign with its brand, audiences, and channels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("capture campaign: %w", err)
			}
			defer func() { _ = eng.Close() }()

			capturer := capture.NewCapturer(eng, logger)
			result, err := capturer.CaptureCampaign(ctx, capture.Campaign{
				Name:        args[0],
				Description: description,
				Brand:       brand,
				Audiences:   splitCSV(audiences),
				Channels:    splitCSV(channels),
				Tags:        splitCSV(tags),
				Source:      source,
			})
			if err != nil {
				return fmt.Errorf("capture campaign: %w", err)
			}

			fmt.Printf("Captured campaign %s with %d relationships\n",
				result.CampaignID, len(result.RelationshipIDs))
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "campaign description")
	cmd.Flags().StringVar(&brand, "brand", "", "brand the campaign promotes")
	cmd.Flags().StringVar(&audiences, "audiences", "", "comma-separated audience segments the campaign targets")
	cmd.Flags().StringVar(&channels, "channels", "", "comma-separated media channels the campaign uses")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags for the campaign entity")
	cmd.Flags().StringVar(&source, "source", "", "where this campaign was described")
	return cmd
}

func captureBriefCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "brief [file]",
		Short: "Extract entities and relationships from a campaign brief with Claude",
		Long: `Reads a campaign brief from the given file (or stdin when the argument
is "-"), asks Claude to extract advertising entities and relationships, and
records the high-confidence results in the graph. Requires claude.api_key
or ANTHROPIC_API_KEY.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if cfg.Claude.APIKey == "" {
				return fmt.Errorf("capture brief: claude.api_key is not set")
			}

			var brief []byte
			var err error
			if args[0] == "-" {
				brief, err = io.ReadAll(os.Stdin)
			} else {
				brief, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("capture brief: reading brief: %w", err)
			}
			if len(brief) == 0 {
				return fmt.Errorf("capture brief: brief is empty")
			}

			extractor := capture.NewBriefExtractor(cfg.Claude.APIKey, cfg.Claude.Model, logger)
			extraction, err := extractor.Extract(ctx, string(brief))
			if err != nil {
				return fmt.Errorf("capture brief: %w", err)
			}
			if len(extraction.Entities) == 0 {
				fmt.Println("No entities extracted from brief.")
				return nil
			}

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("capture brief: %w", err)
			}
			defer func() { _ = eng.Close() }()

			capturer := capture.NewCapturer(eng, logger)
			result, err := capturer.CaptureExtraction(ctx, extraction, source)
			if err != nil {
				return fmt.Errorf("capture brief: %w", err)
			}

			fmt.Printf("Captured %d entities and %d relationships from brief\n",
				len(extraction.Entities), len(result.RelationshipIDs))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "reference recorded on each captured entity")
	return cmd
}

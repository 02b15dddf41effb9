package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func rebuildIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-index",
		Short: "Rebuild the derived name, tag, and type indexes from stored entities",
		Long: `Scans every stored entity and rewrites the derived indexes, then rebuilds
the in-memory graph. Use after a crash or whenever lookups return entities
that were deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("rebuild-index: %w", err)
			}
			defer func() { _ = eng.Close() }()

			if err := eng.RebuildIndex(ctx); err != nil {
				return fmt.Errorf("rebuild-index: %w", err)
			}

			fmt.Println("Indexes rebuilt.")
			return nil
		},
	}
}

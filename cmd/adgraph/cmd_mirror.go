package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VeeDuvv/adgraph/internal/mirror"
)

func mirrorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mirror",
		Short: "Push the graph to Neo4j for visualization",
		Long: `Copies every entity and relationship into the configured Neo4j database
using MERGE, so repeated pushes update nodes in place. The local store
remains the source of truth; nothing is read back from Neo4j.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			m, err := mirror.New(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database, logger)
			if err != nil {
				return fmt.Errorf("mirror: %w", err)
			}
			defer func() { _ = m.Close(ctx) }()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("mirror: %w", err)
			}
			defer func() { _ = eng.Close() }()

			entities, rels, err := m.Push(ctx, eng)
			if err != nil {
				return fmt.Errorf("mirror: %w", err)
			}

			fmt.Printf("Mirrored %d entities and %d relationships to %s\n", entities, rels, cfg.Neo4j.URI)
			return nil
		},
	}
}

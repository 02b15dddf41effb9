package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show graph statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer func() { _ = eng.Close() }()

			stats := eng.GetStatistics()

			fmt.Printf("Entities:      %d\n", stats.EntityCount)
			fmt.Printf("Relationships: %d\n", stats.RelationshipCount)
			fmt.Printf("Density:       %.4f\n", stats.Density)
			fmt.Printf("Clustering:    %.4f\n", stats.AvgClustering)
			fmt.Printf("Strongly connected: %v\n", stats.StronglyConnected)
			if stats.Diameter >= 0 {
				fmt.Printf("Diameter:      %d\n", stats.Diameter)
			} else {
				fmt.Println("Diameter:      n/a (graph is not strongly connected)")
			}

			if len(stats.EntityTypes) > 0 {
				fmt.Println("\nBy entity type:")
				for t, c := range stats.EntityTypes {
					fmt.Printf("  %-14s %d\n", t, c)
				}
			}

			if len(stats.RelationTypes) > 0 {
				fmt.Println("\nBy relation type:")
				for t, c := range stats.RelationTypes {
					fmt.Printf("  %-14s %d\n", t, c)
				}
			}

			if len(stats.TopConnected) > 0 {
				fmt.Println("\nMost connected:")
				for _, d := range stats.TopConnected {
					fmt.Printf("  %-30s degree %d (centrality %.3f)\n", d.Name, d.Degree, d.Centrality)
				}
			}

			return nil
		},
	}
}

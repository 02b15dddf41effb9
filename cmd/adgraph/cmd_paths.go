package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func pathsCmd() *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "paths [source-id] [target-id]",
		Short: "Enumerate simple directed paths between two entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("paths: %w", err)
			}
			defer func() { _ = eng.Close() }()

			paths := eng.FindPaths(args[0], args[1], maxDepth)
			if len(paths) == 0 {
				fmt.Println("No paths found.")
				return nil
			}

			for i, path := range paths {
				if len(path) == 0 {
					fmt.Printf("%d. (source and target are the same entity)\n", i+1)
					continue
				}
				fmt.Printf("%d. %s", i+1, path[0].FromID)
				for _, step := range path {
					fmt.Printf(" -[%s]-> %s", step.Type, step.ToID)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", 3, "maximum number of hops")
	return cmd
}

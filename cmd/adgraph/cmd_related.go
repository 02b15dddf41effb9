package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/VeeDuvv/adgraph/internal/models"
)

func relatedCmd() *cobra.Command {
	var (
		relTypes string
		depth    int
	)

	cmd := &cobra.Command{
		Use:   "related [entity-id]",
		Short: "Show entities related to one entity, grouped by relation type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			var filter []models.RelationType
			for _, name := range splitCSV(relTypes) {
				rt := models.RelationType(name)
				if !rt.IsValid() {
					return fmt.Errorf("related: invalid relation type %q", name)
				}
				filter = append(filter, rt)
			}

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("related: %w", err)
			}
			defer func() { _ = eng.Close() }()

			grouped := eng.GetRelatedEntities(args[0], filter, depth)
			if len(grouped) == 0 {
				fmt.Println("No related entities found.")
				return nil
			}

			types := make([]string, 0, len(grouped))
			for rt := range grouped {
				types = append(types, string(rt))
			}
			sort.Strings(types)

			for _, rt := range types {
				fmt.Printf("%s:\n", rt)
				for _, re := range grouped[models.RelationType(rt)] {
					fmt.Printf("  %s  [%s] %s (%s, distance %d)\n",
						re.Entity.ID, re.Entity.Type, re.Entity.Name, re.Direction, re.Distance)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&relTypes, "types", "", "comma-separated relation types to include")
	cmd.Flags().IntVar(&depth, "depth", 1, "how many hops to expand")
	return cmd
}

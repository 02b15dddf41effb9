package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VeeDuvv/adgraph/internal/models"
)

func findCmd() *cobra.Command {
	var (
		entityType string
		tags       string
		matchAll   bool
	)

	cmd := &cobra.Command{
		Use:   "find [query]",
		Short: "Find entities by text, type, or tags",
		Long: `Finds entities. With a positional query, performs a case-insensitive
substring search over names, descriptions, details, and tags. With --type or
--tags, filters by the derived indexes instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("find: %w", err)
			}
			defer func() { _ = eng.Close() }()

			var entities []*models.Entity
			switch {
			case len(args) == 1 && args[0] != "":
				entities, err = eng.FindEntities(ctx, args[0])
			case entityType != "":
				et := models.EntityType(entityType)
				entities, err = eng.FindEntitiesByType(ctx, et)
			case tags != "":
				entities, err = eng.FindEntitiesByTags(ctx, splitCSV(tags), matchAll)
			default:
				return fmt.Errorf("find: provide a query, --type, or --tags")
			}
			if err != nil {
				return fmt.Errorf("find: %w", err)
			}

			if len(entities) == 0 {
				fmt.Println("No entities found.")
				return nil
			}

			for _, entity := range entities {
				fmt.Printf("%s  [%s] %s — %s\n",
					entity.ID, entity.Type, entity.Name, truncate(entity.Description, 80))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "filter by entity type")
	cmd.Flags().StringVar(&tags, "tags", "", "filter by comma-separated tags")
	cmd.Flags().BoolVar(&matchAll, "all", false, "require every tag instead of any")
	return cmd
}

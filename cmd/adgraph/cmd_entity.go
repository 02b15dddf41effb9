package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VeeDuvv/adgraph/internal/models"
)

func entityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage graph entities",
	}

	cmd.AddCommand(
		entityAddCmd(),
		entityGetCmd(),
		entityUpdateCmd(),
		entityDeleteCmd(),
		entityListCmd(),
	)

	return cmd
}

func entityAddCmd() *cobra.Command {
	var (
		entityType  string
		description string
		details     string
		tags        string
		source      string
	)

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add an entity to the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			et := models.EntityType(entityType)
			if !et.IsValid() {
				return fmt.Errorf("entity add: invalid --type %q: must be one of %s",
					entityType, strings.Join(entityTypeNames(), ", "))
			}

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("entity add: %w", err)
			}
			defer func() { _ = eng.Close() }()

			entity := &models.Entity{
				Name:        args[0],
				Type:        et,
				Description: description,
				Details:     details,
				Tags:        splitCSV(tags),
			}
			if source != "" {
				entity.AddReference(source, "")
			}

			id, err := eng.AddEntity(ctx, entity)
			if err != nil {
				return fmt.Errorf("entity add: %w", err)
			}

			fmt.Printf("Added entity %s [%s] %s\n", id, et, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "concept", "entity type ("+strings.Join(entityTypeNames(), "|")+")")
	cmd.Flags().StringVar(&description, "description", "", "one-sentence description (required)")
	cmd.Flags().StringVar(&details, "details", "", "longer free-form details")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&source, "source", "", "where this fact came from")
	return cmd
}

func entityGetCmd() *cobra.Command {
	var (
		byName     bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "get [id-or-name]",
		Short: "Retrieve a single entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("entity get: %w", err)
			}
			defer func() { _ = eng.Close() }()

			var entity *models.Entity
			if byName {
				entity, err = eng.GetEntityByName(ctx, args[0])
			} else {
				entity, err = eng.GetEntity(ctx, args[0])
			}
			if err != nil {
				return fmt.Errorf("entity get: %w", err)
			}
			if entity == nil {
				fmt.Println("Entity not found.")
				return nil
			}

			if outputJSON {
				out, err := json.MarshalIndent(entity, "", "  ")
				if err != nil {
					return fmt.Errorf("entity get: marshaling JSON: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			printEntity(entity)
			return nil
		},
	}

	cmd.Flags().BoolVar(&byName, "name", false, "look up by exact name instead of ID")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}

func entityUpdateCmd() *cobra.Command {
	var (
		name        string
		entityType  string
		description string
		details     string
		tags        string
	)

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update fields of an existing entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("entity update: %w", err)
			}
			defer func() { _ = eng.Close() }()

			entity, err := eng.GetEntity(ctx, args[0])
			if err != nil {
				return fmt.Errorf("entity update: %w", err)
			}
			if entity == nil {
				return fmt.Errorf("entity update: no entity with ID %s", args[0])
			}

			if name != "" {
				entity.Name = name
			}
			if entityType != "" {
				et := models.EntityType(entityType)
				if !et.IsValid() {
					return fmt.Errorf("entity update: invalid --type %q", entityType)
				}
				entity.Type = et
			}
			if description != "" {
				entity.Description = description
			}
			if details != "" {
				entity.Details = details
			}
			if tags != "" {
				entity.Tags = splitCSV(tags)
			}

			existed, err := eng.UpdateEntity(ctx, entity)
			if err != nil {
				return fmt.Errorf("entity update: %w", err)
			}
			if !existed {
				return fmt.Errorf("entity update: no entity with ID %s", args[0])
			}

			fmt.Printf("Updated entity %s\n", entity.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&entityType, "type", "", "new entity type")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&details, "details", "", "new details")
	cmd.Flags().StringVar(&tags, "tags", "", "replacement comma-separated tags")
	return cmd
}

func entityDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an entity and every relationship touching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("entity delete: %w", err)
			}
			defer func() { _ = eng.Close() }()

			existed, err := eng.DeleteEntity(ctx, args[0])
			if err != nil {
				return fmt.Errorf("entity delete: %w", err)
			}
			if !existed {
				fmt.Println("Entity not found.")
				return nil
			}

			fmt.Printf("Deleted entity %s\n", args[0])
			return nil
		},
	}
}

func entityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all entity IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("entity list: %w", err)
			}
			defer func() { _ = eng.Close() }()

			ids, err := eng.ListEntityIDs(ctx)
			if err != nil {
				return fmt.Errorf("entity list: %w", err)
			}
			if len(ids) == 0 {
				fmt.Println("No entities found.")
				return nil
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func printEntity(entity *models.Entity) {
	fmt.Printf("ID:          %s\n", entity.ID)
	fmt.Printf("Name:        %s\n", entity.Name)
	fmt.Printf("Type:        %s\n", entity.Type)
	fmt.Printf("Description: %s\n", entity.Description)
	if entity.Details != "" {
		fmt.Printf("Details:     %s\n", truncate(entity.Details, 200))
	}
	if len(entity.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(entity.Tags, ", "))
	}
	fmt.Printf("Created:     %s\n", entity.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:     %s\n", entity.UpdatedAt.Format("2006-01-02 15:04:05"))
	for _, ref := range entity.References {
		fmt.Printf("Reference:   %s\n", ref.Source)
	}
}

func entityTypeNames() []string {
	names := make([]string, 0, len(models.ValidEntityTypes))
	for _, et := range models.ValidEntityTypes {
		names = append(names, string(et))
	}
	return names
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VeeDuvv/adgraph/internal/models"
)

func relCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rel",
		Short: "Manage typed relationships between entities",
	}

	cmd.AddCommand(
		relAddCmd(),
		relGetCmd(),
		relDeleteCmd(),
		relListCmd(),
	)

	return cmd
}

func relAddCmd() *cobra.Command {
	var (
		relType       string
		description   string
		weight        float64
		bidirectional bool
	)

	cmd := &cobra.Command{
		Use:   "add [source-id] [target-id]",
		Short: "Add a relationship between two entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			rt := models.RelationType(relType)
			if !rt.IsValid() {
				return fmt.Errorf("rel add: invalid --type %q: must be one of %s",
					relType, strings.Join(relationTypeNames(), ", "))
			}

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("rel add: %w", err)
			}
			defer func() { _ = eng.Close() }()

			id, err := eng.AddRelationship(ctx, &models.Relationship{
				SourceID:      args[0],
				TargetID:      args[1],
				Type:          rt,
				Description:   description,
				Weight:        weight,
				Bidirectional: bidirectional,
			})
			if err != nil {
				return fmt.Errorf("rel add: %w", err)
			}

			fmt.Printf("Added relationship %s: %s -[%s]-> %s\n", id, args[0], rt, args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&relType, "type", "related_to", "relation type")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	cmd.Flags().Float64Var(&weight, "weight", 1.0, "relationship strength, clamped to [0,1]")
	cmd.Flags().BoolVar(&bidirectional, "bidirectional", false, "also expose the inverse edge in graph queries")
	return cmd
}

func relGetCmd() *cobra.Command {
	var reverse bool

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Retrieve a relationship by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("rel get: %w", err)
			}
			defer func() { _ = eng.Close() }()

			rel, err := eng.GetRelationship(ctx, models.EdgeKey{PrimaryID: args[0], Reverse: reverse})
			if err != nil {
				return fmt.Errorf("rel get: %w", err)
			}
			if rel == nil {
				fmt.Println("Relationship not found.")
				return nil
			}

			out, err := json.MarshalIndent(rel, "", "  ")
			if err != nil {
				return fmt.Errorf("rel get: marshaling JSON: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reverse, "reverse", false, "view the derived reverse edge of a bidirectional relationship")
	return cmd
}

func relDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a relationship by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("rel delete: %w", err)
			}
			defer func() { _ = eng.Close() }()

			existed, err := eng.DeleteRelationship(ctx, models.EdgeKey{PrimaryID: args[0]})
			if err != nil {
				return fmt.Errorf("rel delete: %w", err)
			}
			if !existed {
				fmt.Println("Relationship not found.")
				return nil
			}

			fmt.Printf("Deleted relationship %s\n", args[0])
			return nil
		},
	}
}

func relListCmd() *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "list [entity-id]",
		Short: "List relationships touching an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			dir := models.Direction(direction)
			if !dir.IsValid() {
				return fmt.Errorf("rel list: invalid --direction %q: must be outgoing, incoming, or both", direction)
			}

			eng, err := openEngine(ctx, logger)
			if err != nil {
				return fmt.Errorf("rel list: %w", err)
			}
			defer func() { _ = eng.Close() }()

			rels, err := eng.ListRelationships(ctx, args[0], dir)
			if err != nil {
				return fmt.Errorf("rel list: %w", err)
			}
			if len(rels) == 0 {
				fmt.Println("No relationships found.")
				return nil
			}

			for _, rel := range rels {
				marker := "->"
				if rel.Bidirectional {
					marker = "<->"
				}
				fmt.Printf("%s  %s -[%s %.2f]%s %s\n",
					rel.ID, rel.SourceID, rel.Type, rel.Weight, marker, rel.TargetID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "both", "filter by direction (outgoing|incoming|both)")
	return cmd
}

func relationTypeNames() []string {
	types := models.ValidRelationTypes()
	names := make([]string, 0, len(types))
	for _, rt := range types {
		names = append(names, string(rt))
	}
	return names
}

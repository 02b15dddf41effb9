package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/VeeDuvv/adgraph/internal/config"
	"github.com/VeeDuvv/adgraph/internal/knowledge"
	"github.com/VeeDuvv/adgraph/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "adgraph",
		Short: "adgraph — knowledge graph engine for advertising intelligence",
		Long:  "adgraph stores advertising entities (campaigns, brands, audiences, channels) and their typed relationships in an embedded graph, and answers neighborhood, path, and statistics queries over it.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		entityCmd(),
		relCmd(),
		findCmd(),
		relatedCmd(),
		pathsCmd(),
		statsCmd(),
		captureCmd(),
		rebuildIndexCmd(),
		mirrorCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openEngine opens the embedded store and builds the in-memory graph index.
// The caller owns the returned engine and must Close it.
func openEngine(ctx context.Context, logger *slog.Logger) (*knowledge.Engine, error) {
	st, err := store.Open(store.Config{
		Dir:        cfg.Storage.Dir,
		SyncWrites: cfg.Storage.SyncWrites,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	eng, err := knowledge.Open(ctx, st, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("building graph index: %w", err)
	}

	g := eng.Graph()
	if cfg.Graph.MaxPathDepth > 0 {
		g.MaxPathDepth = cfg.Graph.MaxPathDepth
	}
	if cfg.Graph.MaxPaths > 0 {
		g.MaxPaths = cfg.Graph.MaxPaths
	}
	if cfg.Graph.TopConnected > 0 {
		g.TopConnected = cfg.Graph.TopConnected
	}

	return eng, nil
}

// splitCSV turns a comma-separated flag value into trimmed parts.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}

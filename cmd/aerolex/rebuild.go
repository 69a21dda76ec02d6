package aerolex

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aerolex/aerolex"
	"github.com/aerolex/aerolex/pkg/config"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from the chunk store",
	Long: `Rebuild the approximate vector index from the durable chunk store.

Deleted chunks accumulate as tombstones in the index; a rebuild compacts
them away. The engine stays usable during the rebuild and swaps to the
fresh index atomically when it finishes.`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, err := aerolex.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize Aerolex: %w", err)
	}
	defer engine.Close(context.Background())

	stats := engine.Stats()
	fmt.Printf("Rebuilding index over %d chunks across %d regulations...\n", stats.Chunks, stats.Regulations)

	start := time.Now()
	if err := engine.RebuildIndex(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	fmt.Printf("Index rebuilt in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

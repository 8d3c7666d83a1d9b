// Package cli wires the ingestion, query, repair and inspect commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kushwanth-masupalli/QueryVault/adapters"
	"github.com/kushwanth-masupalli/QueryVault/config"
	"github.com/kushwanth-masupalli/QueryVault/pipeline"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "queryvault",
	Short: "Ingest documents into a vector index and query them back",
	Long: `QueryVault extracts atomic propositions from documents, embeds them
and stores them in a hosted Pinecone index with their text as metadata.

Example usage:
  queryvault ingest docs/**/*.txt      # Extract, embed and upsert documents
  queryvault query -q "boiling point"  # Retrieve the closest propositions
  queryvault repair                    # Restore metadata lost to bare upserts
  queryvault inspect --ids prop_0      # Show stored metadata for specific ids`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command with a signal-cancelled context
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./queryvault.yaml)")
}

// newPipeline builds the embedder, index connection and orchestrator from the
// loaded configuration. Configuration failures surface here, before any
// network call.
func newPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	embedder, err := adapters.NewEmbeddingClient(cfg)
	if err != nil {
		return nil, err
	}

	// The local embedding server loads its model lazily; warm it up once
	// under the init budget so per-request calls stay on the short timeout.
	if initializer, ok := embedder.(interface {
		EnsureInitialized(context.Context) error
	}); ok {
		if err := initializer.EnsureInitialized(ctx); err != nil {
			return nil, fmt.Errorf("embedding model failed to initialize: %w", err)
		}
	}

	index, err := adapters.NewPineconeIndexAdapter(cfg)
	if err != nil {
		return nil, err
	}

	return pipeline.NewPipeline(pipeline.Config{
		Embedder: embedder,
		Index:    index,
		Display:  pipeline.DisplayPolicy{Keys: cfg.Display.Keys},
	})
}

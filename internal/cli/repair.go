package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kushwanth-masupalli/QueryVault/internal/ledger"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Restore metadata lost to bare vector overwrites",
	Long: `Read the intended (id, content) pairs recorded by previous ingest
runs and re-upsert each record with its content metadata attached. Existing
vector values are reused, so nothing is re-embedded unnecessarily. Safe to
run repeatedly.`,
	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer l.Close()

	pairs, err := l.Pairs(cfg.Namespace)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(pairs) == 0 {
		fmt.Println("Ledger has no recorded pairs; nothing to repair")
		return nil
	}

	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Repairing %d record(s)...\n", len(pairs))
	written, err := p.Repair(ctx, pairs)
	if err != nil {
		if written > 0 {
			fmt.Printf("Partial repair: %d of %d records written\n", written, len(pairs))
		}
		return err
	}

	fmt.Printf("Repaired %d record(s)\n", written)
	return nil
}

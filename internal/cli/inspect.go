package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kushwanth-masupalli/QueryVault/adapters"
)

var inspectIDs []string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show stored metadata and values for specific ids",
	Long: `Fetch records directly from the index and print whether each one
carries metadata, what that metadata is, and how many vector values it
stores. Useful for verifying the index state after an ingest or repair.

Examples:
  queryvault inspect --ids prop_0,prop_1,prop_2`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringSliceVar(&inspectIDs, "ids", nil, "comma-separated record ids (required)")
	inspectCmd.MarkFlagRequired("ids")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	index, err := adapters.NewPineconeIndexAdapter(cfg)
	if err != nil {
		return err
	}

	found, err := index.Fetch(ctx, inspectIDs)
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}

	ids := append([]string(nil), inspectIDs...)
	sort.Strings(ids)

	for _, id := range ids {
		record, ok := found[id]
		if !ok {
			fmt.Printf("%s: not found\n", id)
			continue
		}

		fmt.Printf("%s:\n", id)
		fmt.Printf("  has_metadata: %t\n", len(record.Metadata) > 0)
		if len(record.Metadata) > 0 {
			data, err := json.Marshal(record.Metadata)
			if err != nil {
				data = []byte(fmt.Sprintf("%v", record.Metadata))
			}
			fmt.Printf("  metadata: %s\n", data)
		}
		fmt.Printf("  values: %d\n", len(record.Values))
	}

	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pack contents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"pack":       st.Path(),
					"documents":  stats.Documents,
					"chunks":     stats.Chunks,
					"embeddings": stats.Embeddings,
				})
			}

			fmt.Fprintf(out, "pack:       %s\n", st.Path())
			fmt.Fprintf(out, "documents:  %d\n", stats.Documents)
			fmt.Fprintf(out, "chunks:     %d\n", stats.Chunks)
			fmt.Fprintf(out, "embeddings: %d\n", stats.Embeddings)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")
	return cmd
}

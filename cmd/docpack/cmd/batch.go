package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluorite-labs/docpack/internal/index"
)

// newBatchCmd creates the batch command: discover and index a whole
// directory tree.
func newBatchCmd() *cobra.Command {
	var docset string
	var reset bool

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Index every supported file under a directory",
		Long: `Walks the directory, indexes every supported file, and reports a
summary. Per-file failures are reported but do not abort the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			root := args[0]
			cfg.Root = root

			if reset {
				if err := os.Remove(cfg.PackPath()); err != nil && !os.IsNotExist(err) {
					return err
				}
			}

			files, err := index.Discover(root, nil, 0)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no indexable files under %s", root)
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return err
			}
			if embedder != nil {
				defer func() { _ = embedder.Close() }()
			}

			var extractor index.Extractor
			if c := newExtractor(cfg); c != nil {
				extractor = c
			}

			ix := index.New(st, extractor, embedder, index.Options{
				Root:            cfg.Root,
				SourceBase:      cfg.SourceBase,
				Docset:          docset,
				TargetTokens:    cfg.Chunk.TargetTokens,
				OverlapTokens:   cfg.Chunk.OverlapTokens,
				HeadingMinDepth: cfg.Chunk.HeadingMinDepth,
				HeadingMaxDepth: cfg.Chunk.HeadingMaxDepth,
			})

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			result, err := ix.IndexAll(ctx, files)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pack: %s\n", st.Path())
			fmt.Fprintf(out, "indexed %d/%d files, %d chunks in %s\n",
				result.Indexed, len(files), result.TotalChunks, result.Duration.Round(time.Millisecond))
			for _, f := range result.Failed {
				fmt.Fprintf(out, "  failed: %s: %v\n", f.Path, f.Err)
			}
			if result.Indexed == 0 {
				return fmt.Errorf("all %d files failed", len(result.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&docset, "docset", "", "Docset label for all documents")
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete the pack before indexing")
	return cmd
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluorite-labs/docpack/internal/index"
	"github.com/fluorite-labs/docpack/internal/watch"
)

// newWatchCmd creates the watch command: keep the pack in sync with a
// directory as files change.
func newWatchCmd() *cobra.Command {
	var docset string
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-index files as they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			root := args[0]
			cfg.Root = root

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

			w, err := watch.New(root, debounce, index.IsIndexable)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "watching %s -> %s (ctrl-c to stop)\n", root, st.Path())

			err = w.Run(ctx, func(ctx context.Context, path string) {
				result, err := ix.IndexFile(ctx, path)
				if err != nil {
					fmt.Fprintf(out, "  failed: %s: %v\n", path, err)
					return
				}
				fmt.Fprintf(out, "  indexed %s (%d chunks)\n", result.RepoPath, result.Chunks)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&docset, "docset", "", "Docset label for re-indexed documents")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounceWindow, "Event debounce window")
	return cmd
}

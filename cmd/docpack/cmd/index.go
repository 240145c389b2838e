package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluorite-labs/docpack/internal/config"
	"github.com/fluorite-labs/docpack/internal/index"
)

// newIndexCmd creates the single-file index command.
func newIndexCmd() *cobra.Command {
	var docset string

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Index a single file into the pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runIndex(cmd, cfg, args[0], docset)
		},
	}

	cmd.Flags().StringVar(&docset, "docset", "", "Docset label for the document")
	return cmd
}

func runIndex(cmd *cobra.Command, cfg *config.Config, filePath, docset string) error {
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

	result, err := ix.IndexFile(ctx, filePath)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %s: %d chunks -> %s\n",
		result.RepoPath, result.Chunks, st.Path())
	return nil
}

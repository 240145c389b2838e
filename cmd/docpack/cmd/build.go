package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fluorite-labs/docpack/internal/ingest"
)

// newBuildCmd creates the docset build command: ingest a Markdown tree
// and write a manifest next to the pack.
func newBuildCmd() *cobra.Command {
	var docset string
	var manifestPath string
	var noManifest bool

	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Build a docset pack from a Markdown tree",
		Long: `Ingests every Markdown file under the directory. Frontmatter
metadata, heading anchors, and git commit detection feed the document
rows; a build manifest is written next to the pack.

The source_base config may contain {commit} and {ref} placeholders,
filled from the git checkout being ingested.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			root := args[0]

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

			if manifestPath == "" && !noManifest {
				manifestPath = strings.TrimSuffix(st.Path(), filepath.Ext(st.Path())) + ".manifest.json"
			}
			if noManifest {
				manifestPath = ""
			}

			b := ingest.NewBuilder(st, embedder, ingest.Options{
				Root:            root,
				SourceBase:      cfg.SourceBase,
				Docset:          docset,
				ManifestPath:    manifestPath,
				HeadingMinDepth: cfg.Chunk.HeadingMinDepth,
				HeadingMaxDepth: cfg.Chunk.HeadingMaxDepth,
			})

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			m, err := b.Build(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pack: %s\n", st.Path())
			fmt.Fprintf(out, "built %d files, %d chunks, %d embeddings\n",
				len(m.Files), m.Stats.Chunks, m.Stats.Embeddings)
			if m.Commit != "" {
				fmt.Fprintf(out, "commit: %s\n", m.Commit)
			}
			if manifestPath != "" {
				fmt.Fprintf(out, "manifest: %s\n", manifestPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&docset, "docset", "", "Docset label for the build")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Manifest output path")
	cmd.Flags().BoolVar(&noManifest, "no-manifest", false, "Skip writing the manifest")
	return cmd
}

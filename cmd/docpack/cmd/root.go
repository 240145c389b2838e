// Package cmd provides the CLI commands for docpack.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fluorite-labs/docpack/internal/config"
	"github.com/fluorite-labs/docpack/internal/embed"
	"github.com/fluorite-labs/docpack/internal/extract"
	"github.com/fluorite-labs/docpack/internal/logging"
	"github.com/fluorite-labs/docpack/internal/store"
	"github.com/fluorite-labs/docpack/pkg/version"
)

var (
	configPath string
	packPath   string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the docpack CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docpack",
		Short: "Build searchable document packs",
		Long: `docpack turns trees of documentation into single-file SQLite packs
with chunked text, a full-text index, and optional embedding vectors.

Point it at a file or a directory and ship the resulting pack.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("docpack version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to docpack.yaml")
	cmd.PersistentFlags().StringVar(&packPath, "pack", "", "Pack file to write (overrides config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRun = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}
	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
	}
}

// loadConfig reads the layered configuration and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if packPath != "" {
		cfg.Pack.Path = packPath
	}
	return cfg, nil
}

// openStore opens the pack named by the configuration.
func openStore(cfg *config.Config) (*store.PackStore, error) {
	return store.Open(cfg.PackPath())
}

/// newEmbedder builds the configured embedder: remote when an endpoint
// is set, zero-vector placeholder otherwise, nothing when skipped.
func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	if cfg.Embed.Skip {
		return nil, nil
	}
	if cfg.Embed.Endpoint == "" {
		return embed.NewPlaceholderEmbedder(cfg.Embed.Dimension), nil
	}
	remote, err := embed.NewRemoteEmbedder(embed.RemoteConfig{
		Endpoint:  cfg.Embed.Endpoint,
		Model:     cfg.Embed.Model,
		APIKey:    cfg.Embed.APIKey,
		Dimension: cfg.Embed.Dimension,
		BatchSize: cfg.Embed.BatchSize,
		Timeout:   cfg.Embed.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return embed.NewCachedEmbedder(remote, 0)
}

// newExtractor returns the extraction client, or nil when no server is
// configured.
func newExtractor(cfg *config.Config) *extract.Client {
	if cfg.Extractor.URL == "" {
		return nil
	}
	return extract.NewClient(cfg.Extractor.URL, cfg.Extractor.Timeout)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

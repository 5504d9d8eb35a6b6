// Package cmd provides the CLI commands for localrag.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/localrag-mcp/internal/app"
	"github.com/dshills/localrag-mcp/internal/config"
	"github.com/dshills/localrag-mcp/internal/logging"
)

// Build information, set with -ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	docsDir    string
	dataDir    string
	backend    string
	provider   string
	logLevel   string
	logFile    string
	verbose    bool
}

// NewRootCmd creates the root command for the localrag CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "localrag",
		Short: "Local document search over MCP",
		Long: `localrag indexes a directory of Markdown and text documents into a
local vector store and answers semantic search queries over it.

It serves the index to MCP clients over stdio and, optionally, over a
small HTTP API. Only changed files are re-embedded on each update.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("localrag version {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.docsDir, "docs-dir", "d", "", "Documents directory (env "+config.EnvDocsDir+")")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Index data directory (default <docs-dir>/"+config.DefaultDataDirName+")")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default <docs-dir>/config.yaml or ./config.yaml)")
	flags.StringVar(&opts.backend, "backend", "", "Vector store backend: chromem, hnsw, sqlite")
	flags.StringVar(&opts.provider, "provider", "", "Embedding provider: gemini, ollama, local")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command, cancelling its context on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig resolves configuration in order: config file, .env and
// environment, command-line flags.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	config.LoadDotEnv()

	docsDir := o.docsDir
	if docsDir == "" {
		docsDir = os.Getenv(config.EnvDocsDir)
	}

	cfg, err := config.Resolve(o.configPath, docsDir)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if o.docsDir != "" {
		cfg.DocsDir = o.docsDir
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.backend != "" {
		cfg.VectorStore.Backend = o.backend
	}
	if o.provider != "" {
		cfg.Embedding.Provider = o.provider
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Logging.File = o.logFile
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads configuration, sets up logging and opens the application.
// The returned cleanup closes the app and the log file.
func (o *globalOptions) openApp(ctx context.Context) (*app.App, zerolog.Logger, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	logger, closeLog, err := logging.Setup(logging.Config{Level: cfg.Logging.Level, File: cfg.Logging.File})
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger.Debug().
		Str("docs_dir", cfg.DocsDir).
		Str("data_dir", cfg.DataDir).
		Str("config", cfg.Source).
		Str("backend", cfg.VectorStore.Backend).
		Str("provider", cfg.Embedding.Provider).
		Msg("configuration loaded")

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		closeLog()
		return nil, logger, nil, fmt.Errorf("failed to initialize: %w", err)
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close index")
		}
		closeLog()
	}
	return a, logger, cleanup, nil
}

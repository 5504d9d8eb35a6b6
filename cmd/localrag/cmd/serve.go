package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/localrag-mcp/internal/api"
	"github.com/dshills/localrag-mcp/internal/mcp"
	"github.com/dshills/localrag-mcp/internal/watcher"
)

type serveOptions struct {
	httpAddr string
	watch    bool
	noMCP    bool
}

func newServeCmd(g *globalOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server on stdio.

Stdout is reserved for the MCP protocol; logs go to stderr.

Examples:
  localrag serve -d ./docs
  localrag serve -d ./docs --http :8000 --watch
  localrag serve -d ./docs --http 127.0.0.1:8000 --no-mcp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.httpAddr, "http", "", "Also serve the HTTP API on this address")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Update the index when documents change")
	cmd.Flags().BoolVar(&opts.noMCP, "no-mcp", false, "Do not serve MCP on stdio")

	return cmd
}

func runServe(cmd *cobra.Command, g *globalOptions, opts serveOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, logger, cleanup, err := g.openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := a.Config()
	httpAddr := opts.httpAddr
	if httpAddr == "" {
		httpAddr = cfg.Server.HTTPAddr
	}
	watch := opts.watch || cfg.Server.Watch

	if opts.noMCP && httpAddr == "" && !watch {
		return errors.New("nothing to serve: --no-mcp requires --http or --watch")
	}

	logger.Info().
		Str("version", version).
		Str("docs_dir", cfg.DocsDir).
		Str("backend", cfg.VectorStore.Backend).
		Bool("mcp", !opts.noMCP).
		Str("http", httpAddr).
		Bool("watch", watch).
		Msg("localrag starting")

	grp, gctx := errgroup.WithContext(ctx)

	if !opts.noMCP {
		srv := mcp.NewServer(a, version, logger)
		grp.Go(func() error {
			// The client closing stdin ends the session and the process.
			defer cancel()
			if err := srv.Serve(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		})
	}

	if httpAddr != "" {
		srv := api.NewServer(a, cfg.Server.RequestTimeout.Std(), logger)
		grp.Go(func() error {
			return srv.ListenAndServe(gctx, httpAddr)
		})
	}

	if watch {
		w := watcher.New(a.Scanner(), cfg.Server.WatchDebounce.Std(), func(ctx context.Context) error {
			_, err := a.Reindex(ctx)
			return err
		}, logger)
		grp.Go(func() error {
			if _, err := a.Reindex(gctx); err != nil && gctx.Err() == nil {
				logger.Error().Err(err).Msg("initial update failed")
			}
			return w.Run(gctx)
		})
	}

	err = grp.Wait()
	logger.Info().Msg("localrag stopped")
	return err
}

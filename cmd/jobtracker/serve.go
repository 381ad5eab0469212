package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/job-tracker/internal/server"
	"github.com/jonathan/job-tracker/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the job tracker REST endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	provider, err := newIdentityProvider(ctx, cfg, store)
	if err != nil {
		_ = store.Close(ctx)
		return err
	}

	limiter, err := ratelimit.New(ratelimit.LoadConfig())
	if err != nil {
		_ = store.Close(ctx)
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	srv, err := server.New(server.Config{
		Port:               cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Docs: server.DocsConfig{
			Title:       cfg.Docs.Title,
			Version:     cfg.Docs.Version,
			Description: cfg.Docs.Description,
			ServerURL:   cfg.DocsServerURL(),
		},
	}, server.Deps{Store: store, Identity: provider, RateLimiter: limiter})
	if err != nil {
		limiter.Stop()
		_ = store.Close(ctx)
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Printf("Using %s store and %s identity provider", cfg.Store.Driver, cfg.Auth.Provider)
	return srv.Start()
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/server"
	"github.com/blockcanvas/indy/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve entries and the assistant over HTTP.

Routes:
  GET    /healthcheck
  GET    /entries/:site                list entries of a site
  GET    /entries/:site/:entry         load an entry's blocks
  PUT    /entries/:site/:entry         save an entry's blocks
  DELETE /entries/:site/:entry
  GET    /api/indy/blocks              registered block types
  POST   /api/indy/generate            generate block data
  POST   /api/indy/chat                one assistant turn against an entry
  POST   /api/indy/action              one direct edit against an entry

Entries are kept in SQLite by default, or PostgreSQL when storage.type is postgres.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	resolveOpenAIKey()
	if err := cfg.RequireValid(config.ValidationContextServe); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	a, err := newAssistant(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.llm.IsEnabled() {
		logger.Warn("No LLM provider configured; chat and generate will fail until one is set. Run: indy configure")
	}

	srv := server.New(cfg.Server, cfg.Indy.RequestTimeout, server.Deps{
		Store:      store,
		Registry:   a.registry,
		Dispatcher: a.dispatcher(store),
		Generator:  a.generator(),
		Runner:     a.runner(),
		Tokens:     a.tokens,
		Logger:     logger,
	})

	logger.WithFields(logrus.Fields{
		"addr":     cfg.Server.Addr,
		"storage":  cfg.Storage.Type,
		"provider": a.llm.GetProvider(),
	}).Info("Starting indy server")

	return srv.Run(ctx)
}

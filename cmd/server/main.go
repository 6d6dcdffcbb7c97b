package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fieldsync/internal/buildinfo"
	"github.com/dmitrijs2005/fieldsync/internal/server"
	"github.com/dmitrijs2005/fieldsync/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.IssueTokenFor != "" {
		if err := server.IssueToken(cfg, cfg.IssueTokenFor, os.Stdout); err != nil {
			log.Fatalf("issue token: %v", err)
		}
		return
	}

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

// Command server runs the WhyNot Innovations portal.
//
// main only loads configuration, sets up logging and makes sure the
// database directory exists; internal/server does the wiring.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/whynot-innovations/portal/internal/config"
	"github.com/whynot-innovations/portal/internal/logger"
	"github.com/whynot-innovations/portal/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.SetupDefault(os.Stdout, cfg.IsDevelopment())

	if missing := cfg.Public.Missing(); len(missing) > 0 && cfg.AuthProvider == config.ProviderGoogle {
		log.Warn("public provider config incomplete; /api/config/public will fail",
			slog.Any("missing", missing),
		)
	}

	// 0755: owner rwx, others rx.
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

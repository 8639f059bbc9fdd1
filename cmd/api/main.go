package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kipe/iot-hub-measurements/internal/config"
	"github.com/kipe/iot-hub-measurements/internal/httpserver"
	"github.com/kipe/iot-hub-measurements/internal/store"
)

// main boots the service: config → storage backend → schema/indexes → HTTP.
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		fatal("config", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		fatal("storage", err)
	}
	defer st.Close()

	router := httpserver.NewRouter(st)

	slog.Info("server started", "addr", cfg.HTTPAddr, "backend", cfg.Backend)
	if err := router.Run(cfg.HTTPAddr); err != nil {
		fatal("http server", err)
	}
}

// openStore builds the configured backend and bootstraps its schema or
// indexes so a bare database is enough to start against.
func openStore(cfg config.Config) (store.Store, error) {
	ctx := context.Background()

	switch cfg.Backend {
	case config.BackendPostgres:
		st, err := store.NewPostgresStore(cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	default:
		st, err := store.NewMongoStore(cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	}
}

func fatal(what string, err error) {
	slog.Error(what, "error", err)
	os.Exit(1)
}

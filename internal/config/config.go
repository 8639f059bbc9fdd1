package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kipe/iot-hub-measurements/internal/store"
)

// Backend selects the storage implementation.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config contains runtime configuration required by the service. It is
// built once at startup and passed into the storage constructors explicitly;
// nothing else reads the environment.
type Config struct {
	HTTPAddr string
	Backend  string

	Mongo       store.MongoConfig
	PostgresURL string
}

// Load reads required values from environment variables.
//
//	HTTP_ADDR      listen address, default ":8080"
//	STORE_BACKEND  mongo | postgres | memory, default mongo
//	MONGO_HOST, MONGO_PORT, MONGO_USER, MONGO_PASSWORD, MONGO_DATABASE,
//	MONGO_CA_CERT  document store connection; CA cert is PEM material
//	POSTGRES_URL   connection string for the postgres backend
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Backend:  getEnv("STORE_BACKEND", BackendMongo),
	}

	switch cfg.Backend {
	case BackendMongo:
		port, err := getEnvInt("MONGO_PORT", 27017)
		if err != nil {
			return Config{}, err
		}
		cfg.Mongo = store.MongoConfig{
			Host:     getEnv("MONGO_HOST", "localhost"),
			Port:     port,
			User:     os.Getenv("MONGO_USER"),
			Password: os.Getenv("MONGO_PASSWORD"),
			Database: getEnv("MONGO_DATABASE", "measurements"),
			CACert:   os.Getenv("MONGO_CA_CERT"),
		}
	case BackendPostgres:
		cfg.PostgresURL = strings.TrimSpace(os.Getenv("POSTGRES_URL"))
		if cfg.PostgresURL == "" {
			return Config{}, errors.New("POSTGRES_URL required for the postgres backend")
		}
	case BackendMemory:
		// Nothing to configure; volatile store for local runs.
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Backend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the first environment file found among envFilePath, walking up
// from the working directory for each name, then processes the environment.
// Variables already set in the process win over the file.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	if len(envFilePath) == 0 {
		envFilePath = []string{defaultEnvFile}
	}

	for _, name := range envFilePath {
		path, searched, err := findEnvFile(name)
		if err != nil {
			logger.Debug("Environment file not found", "file", name, "searched", searched, "error", err)
			continue
		}
		if err := godotenv.Load(path); err != nil {
			logger.Error("Failed to load environment file", "path", path, "error", err)
			continue
		}
		logger.Info("Environment loaded from file", "path", path)
		return loadFromEnv()
	}

	logger.Info("No environment file found, using process environment", "files", envFilePath)
	return loadFromEnv()
}

const defaultEnvFile = ".env"

// findEnvFile looks for name in the working directory and each of its parents,
// so commands started from a package directory (go test) still find the repo's
// .env. An absolute name is checked as is. searched lists every directory
// tried, nearest first.
func findEnvFile(name string) (path string, searched []string, err error) {
	if name == "" {
		name = defaultEnvFile
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", []string{filepath.Dir(name)}, err
		}
		return name, []string{filepath.Dir(name)}, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("resolve working directory: %w", err)
	}
	for {
		searched = append(searched, dir)
		candidate := filepath.Join(dir, name)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, searched, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", searched, fmt.Errorf("%s: %w", name, os.ErrNotExist)
		}
		dir = parent
	}
}

func loadFromEnv() (*App, error) {
	var cfg App
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	// Set default values if not set
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "sqlite" {
		return nil, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", cfg.DB.Driver)
	}
	if err := cfg.Ledger.validate(); err != nil {
		return nil, err
	}

	logger := slog.Default()
	logger.Info("App config loaded",
		"env", cfg.Env,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
		"db_driver", cfg.DB.Driver,
		"db", maskValue(cfg.DB.Url),
		"auth_jwt_expiry", cfg.Auth.Jwt.Expiry,
		"auth_jwt_secret", maskValue(cfg.Auth.Jwt.Secret),
		"redis", maskValue(cfg.Redis.URL),
		"ledger_lock_mode", cfg.Ledger.LockMode,
		"ledger_retry_max", cfg.Ledger.RetryMax,
	)
	return &cfg, nil
}

func maskValue(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}

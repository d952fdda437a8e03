package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "localhost:3000", cfg.Server.Addr())
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 24*time.Hour, cfg.Auth.Jwt.Expiry)
	assert.Equal(t, "mileage", cfg.Auth.Jwt.Issuer)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, "mileage.transactions", cfg.Redis.Stream)
	assert.Equal(t, LockModeOptimistic, cfg.Ledger.LockMode)
	assert.False(t, cfg.Ledger.Pessimistic())
	assert.Equal(t, 5, cfg.Ledger.RetryMax)
	assert.Equal(t, 50, cfg.Ledger.DefaultPageSize)
	assert.Equal(t, 500, cfg.Ledger.MaxPageSize)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:mileage.db")
	t.Setenv("DATABASE_AUTO_MIGRATE", "true")
	t.Setenv("LEDGER_LOCK_MODE", "pessimistic")
	t.Setenv("LEDGER_RETRY_DELAY", "5ms")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.True(t, cfg.Ledger.Pessimistic())
	assert.Equal(t, 5*time.Millisecond, cfg.Ledger.RetryDelay)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing jwt secret", env: map[string]string{"AUTH_JWT_SECRET": ""}},
		{name: "unknown lock mode", env: map[string]string{"LEDGER_LOCK_MODE": "yolo"}},
		{name: "unknown driver", env: map[string]string{"DATABASE_DRIVER": "mysql"}},
		{name: "page sizes", env: map[string]string{"LEDGER_DEFAULT_PAGE_SIZE": "100", "LEDGER_MAX_PAGE_SIZE": "10"}},
		{name: "negative retries", env: map[string]string{"LEDGER_RETRY_MAX": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", "test-secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
				if v == "" {
					require.NoError(t, os.Unsetenv(k))
				}
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "", maskValue(""))
	assert.Equal(t, "****", maskValue("short"))
	assert.Equal(t, "po****able", maskValue("postgres://u:p@h/db?sslmode=disable"))
}

func TestFindEnvFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "pkg", "service")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	envPath := filepath.Join(root, "mileage.env")
	require.NoError(t, os.WriteFile(envPath, []byte("APP_ENV=staging\n"), 0o600))
	// a directory with the same name is skipped
	require.NoError(t, os.Mkdir(filepath.Join(root, "pkg", "mileage.env"), 0o755))

	t.Chdir(nested)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name         string
		file         string
		wantPath     string
		wantSearched int
		wantErr      error
	}{
		{name: "found in grandparent", file: "mileage.env", wantPath: envPath, wantSearched: 3},
		{name: "absolute path", file: envPath, wantPath: envPath, wantSearched: 1},
		{name: "missing", file: "absent.env", wantErr: os.ErrNotExist},
		{name: "missing absolute", file: filepath.Join(root, "absent.env"), wantErr: os.ErrNotExist, wantSearched: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, searched, err := findEnvFile(tt.file)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, path)
			} else {
				require.NoError(t, err)
				assert.Equal(t, filepathEval(t, tt.wantPath), filepathEval(t, path))
			}
			if tt.wantSearched > 0 {
				assert.Len(t, searched, tt.wantSearched)
			}
			require.NotEmpty(t, searched)
		})
	}

	t.Run("missing lists every directory up to the root", func(t *testing.T) {
		_, searched, err := findEnvFile("absent.env")
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, cwd, searched[0])
		assert.Equal(t, filepath.Dir(searched[len(searched)-1]), searched[len(searched)-1])
		assert.Contains(t, searched, filepath.Dir(filepath.Dir(cwd)))
	})
}

func TestLoad_FromParentEnvFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "cmd")
	require.NoError(t, os.Mkdir(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ledger.env"),
		[]byte("AUTH_JWT_SECRET=from-file\nLEDGER_RETRY_MAX=9\n"), 0o600))
	t.Chdir(nested)
	// registered so t.Setenv restores the unset state afterwards
	t.Setenv("AUTH_JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("AUTH_JWT_SECRET"))
	t.Setenv("LEDGER_RETRY_MAX", "")
	require.NoError(t, os.Unsetenv("LEDGER_RETRY_MAX"))

	cfg, err := Load("absent.env", "ledger.env")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.Jwt.Secret)
	assert.Equal(t, 9, cfg.Ledger.RetryMax)
}

func filepathEval(t *testing.T, p string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return resolved
}

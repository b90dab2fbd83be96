package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "LedgerFlow", cfg.AppName)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 10*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, "transaction_update", cfg.NotifyChannel)
	assert.Equal(t, 16, cfg.PublishWorkers)
	assert.Equal(t, 10*time.Second, cfg.PersistTimeout)
	assert.Equal(t, 10*time.Second, cfg.CompensateTimeout)
	assert.Equal(t, 8, cfg.ReconcileAttempts)
}

func TestLoadSecondsOverrideDuration(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("SHUTDOWN_TIMEOUT", "1m")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("COMPENSATION_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 90*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, 3*time.Second, cfg.CompensateTimeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad seconds":   {"SHUTDOWN_TIMEOUT_SECONDS", "soon"},
		"bad duration":  {"PUBLISH_TIMEOUT", "fast"},
		"bad persist":   {"PERSIST_TIMEOUT", "later"},
		"bad int":       {"PUBLISH_WORKERS", "many"},
		"bad driver":    {"STORE_DRIVER", "sqlite"},
		"zero attempts": {"RECONCILE_MAX_ATTEMPTS", "0"},
		"negative pool": {"DB_MAX_CONNS", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadRequiresDriverURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	require.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err = Load()
	require.ErrorContains(t, err, "MONGO_URI")
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledgerflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: \"9090\"\nNOTIFY_CHANNEL: ledger_events\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, "ledger_events", cfg.NotifyChannel)
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("NOTIFY_CHANNEL=ledger_events\nPORT=7000\n"), 0o600))

	t.Setenv("ENV_FILE", path)
	t.Setenv("PORT", "9090")
	t.Setenv("NOTIFY_CHANNEL", "")
	require.NoError(t, os.Unsetenv("NOTIFY_CHANNEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ledger_events", cfg.NotifyChannel)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadRequiresNamedDotEnv(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	_, err := Load()
	require.Error(t, err)
}

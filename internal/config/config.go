package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/congo-pay/ledgerflow/internal/notification"
)

const (
	defaultAppName           = "LedgerFlow"
	defaultAppEnv            = "development"
	defaultPort              = "8080"
	defaultLogLevel          = "info"
	defaultStoreDriver       = StoreMemory
	defaultMongoDatabase     = "ledgerflow"
	defaultNotifyChannel     = "transaction_update"
	defaultShutdownDelay     = 10 * time.Second
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultPublishWorkers    = notification.DefaultMaxInFlight
	defaultPublishTimeout    = 5 * time.Second
	defaultPersistTimeout    = 10 * time.Second
	defaultCompensateTimeout = 10 * time.Second
	defaultReconcileInterval = 5 * time.Second
	defaultReconcileAttempts = 8
	defaultReconcileBackoff  = time.Second
	defaultSubmitRateLimit   = 60
	configFileEnvVar         = "CONFIG_FILE"
	envFileEnvVar            = "ENV_FILE"
	defaultEnvFile           = ".env"
	idemTTLSecondsEnvVar     = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar         = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar    = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar   = "SHUTDOWN_TIMEOUT"
)

// Supported values for STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config captures application runtime configuration loaded from environment
// variables and, optionally, a config file named by CONFIG_FILE.
type Config struct {
	AppName           string
	AppEnv            string
	Port              string
	LogLevel          string
	StoreDriver       string
	DatabaseURL       string
	DBMaxConns        int32
	MongoURI          string
	MongoDatabase     string
	RedisURL          string
	NotifyChannel     string
	ShutdownPeriod    time.Duration
	IdempotencyTTL    time.Duration
	PublishWorkers    int
	PublishTimeout    time.Duration
	PersistTimeout    time.Duration
	CompensateTimeout time.Duration
	ReconcileInterval time.Duration
	ReconcileAttempts int
	ReconcileBackoff  time.Duration
	SubmitRateLimit   int
}

// Load reads configuration values and populates a Config instance. Variables
// from a dotenv file fill in anything the process environment leaves unset.
func Load() (Config, error) {
	if err := loadDotEnv(os.Getenv(envFileEnvVar)); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("STORE_DRIVER", defaultStoreDriver)
	v.SetDefault("MONGO_DATABASE", defaultMongoDatabase)
	v.SetDefault("NOTIFY_CHANNEL", defaultNotifyChannel)

	if file := v.GetString(configFileEnvVar); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", file, err)
		}
	}

	cfg := Config{
		AppName:       v.GetString("APP_NAME"),
		AppEnv:        v.GetString("APP_ENV"),
		Port:          v.GetString("PORT"),
		LogLevel:      strings.ToLower(v.GetString("LOG_LEVEL")),
		StoreDriver:   strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),
		RedisURL:      v.GetString("REDIS_URL"),
		NotifyChannel: v.GetString("NOTIFY_CHANNEL"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationSetting(v, shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationSetting(v, idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.PublishTimeout, err = durationSetting(v, "", "PUBLISH_TIMEOUT", defaultPublishTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PersistTimeout, err = durationSetting(v, "", "PERSIST_TIMEOUT", defaultPersistTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CompensateTimeout, err = durationSetting(v, "", "COMPENSATION_TIMEOUT", defaultCompensateTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ReconcileInterval, err = durationSetting(v, "", "RECONCILE_INTERVAL", defaultReconcileInterval); err != nil {
		return Config{}, err
	}
	if cfg.ReconcileBackoff, err = durationSetting(v, "", "RECONCILE_BASE_BACKOFF", defaultReconcileBackoff); err != nil {
		return Config{}, err
	}
	if cfg.PublishWorkers, err = intSetting(v, "PUBLISH_WORKERS", defaultPublishWorkers); err != nil {
		return Config{}, err
	}
	if cfg.ReconcileAttempts, err = intSetting(v, "RECONCILE_MAX_ATTEMPTS", defaultReconcileAttempts); err != nil {
		return Config{}, err
	}
	if cfg.SubmitRateLimit, err = intSetting(v, "SUBMIT_RATE_LIMIT", defaultSubmitRateLimit); err != nil {
		return Config{}, err
	}
	maxConns, err := intSetting(v, "DB_MAX_CONNS", 0)
	if err != nil {
		return Config{}, err
	}
	if maxConns < 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must not be negative")
	}
	cfg.DBMaxConns = int32(maxConns)

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when STORE_DRIVER=%s", StorePostgres)
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI must be set when STORE_DRIVER=%s", StoreMongo)
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER %q: must be one of %s, %s, %s", cfg.StoreDriver, StoreMemory, StorePostgres, StoreMongo)
	}

	if cfg.ReconcileAttempts < 1 {
		return Config{}, fmt.Errorf("RECONCILE_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the application runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// loadDotEnv applies path, or ./.env when path is empty. Only an explicitly
// named file must exist.
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// durationSetting prefers an integer seconds key over a Go duration key.
func durationSetting(v *viper.Viper, secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if raw := v.GetString(secondsKey); raw != "" {
			seconds, err := strconv.Atoi(raw)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if raw := v.GetString(durationKey); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intSetting(v *viper.Viper, key string, fallback int) (int, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

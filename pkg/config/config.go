package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "GIFTLEDGER"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "GIFTLEDGER_APP_ENV"
	EnvPort     = "GIFTLEDGER_APP_PORT"
	EnvDBDSN    = "GIFTLEDGER_DB_DSN"
	EnvDBHost   = "GIFTLEDGER_DB_HOST"
	EnvDBUser   = "GIFTLEDGER_DB_USER"
	EnvDBName   = "GIFTLEDGER_DB_NAME"
	EnvRedisURL = "GIFTLEDGER_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App            AppConfig
	Service        ServiceConfig
	DB             DBConfig
	Redis          RedisConfig
	APIKey         APIKeyConfig
	FeatureFlags   FeatureFlagsConfig
	Reconciliation ReconciliationConfig
	Batch          BatchConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIFTLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIFTLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIFTLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GIFTLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIFTLEDGER_DB_DSN"`
	Driver string `envconfig:"GIFTLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIFTLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"GIFTLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIFTLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"GIFTLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIFTLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIFTLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIFTLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// APIKeyConfig tunes Argon2id hashing of merchant API keys.
type APIKeyConfig struct {
	ArgonMemoryKB    int `envconfig:"GIFTLEDGER_APIKEY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GIFTLEDGER_APIKEY_ARGON_TIME" default:"1"`
	ArgonParallelism int `envconfig:"GIFTLEDGER_APIKEY_ARGON_PARALLELISM" default:"4"`
	ArgonSaltLen     int `envconfig:"GIFTLEDGER_APIKEY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GIFTLEDGER_APIKEY_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GIFTLEDGER_AUTO_MIGRATE" default:"false"`
}

// ReconciliationConfig bounds the self-healing cleansing pass.
type ReconciliationConfig struct {
	BatchLimit int           `envconfig:"GIFTLEDGER_RECONCILIATION_BATCH_LIMIT" default:"250"`
	Interval   time.Duration `envconfig:"GIFTLEDGER_RECONCILIATION_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"GIFTLEDGER_RECONCILIATION_LOCK_TTL" default:"50m"`
}

// BatchConfig bounds bulk instrument issuance.
type BatchConfig struct {
	MaxCount     int `envconfig:"GIFTLEDGER_BATCH_MAX_COUNT" default:"10000"`
	SerialLength int `envconfig:"GIFTLEDGER_BATCH_SERIAL_LENGTH" default:"16"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SENDBOX"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SENDBOX_DB_DSN"
	EnvDBHost = "SENDBOX_DB_HOST"
	EnvDBUser = "SENDBOX_DB_USER"
	EnvDBName = "SENDBOX_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	FedaPay      FedaPayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Settlement   SettlementConfig
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
	Env          string `envconfig:"SENDBOX_APP_ENV" required:"true"`
	Port         string `envconfig:"SENDBOX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SENDBOX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SENDBOX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SENDBOX_DB_DSN"`
	Driver string `envconfig:"SENDBOX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SENDBOX_DB_HOST"`
	LegacyPort     int    `envconfig:"SENDBOX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SENDBOX_DB_USER"`
	LegacyPassword string `envconfig:"SENDBOX_DB_PASSWORD"`
	LegacyName     string `envconfig:"SENDBOX_DB_NAME"`
	LegacySSLMode  string `envconfig:"SENDBOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SENDBOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SENDBOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SENDBOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SENDBOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SENDBOX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SENDBOX_REDIS_ADDR"`
	Password     string        `envconfig:"SENDBOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"SENDBOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SENDBOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SENDBOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SENDBOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SENDBOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SENDBOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SENDBOX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SENDBOX_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SENDBOX_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SENDBOX_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SENDBOX_STRIPE_API_KEY"`
	Env    string `envconfig:"SENDBOX_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type FedaPayConfig struct {
	APIKey  string        `envconfig:"SENDBOX_FEDAPAY_API_KEY"`
	Env     string        `envconfig:"SENDBOX_FEDAPAY_ENV" default:"sandbox"`
	Timeout time.Duration `envconfig:"SENDBOX_FEDAPAY_TIMEOUT" default:"30s"`
}

// Environment returns the normalized FedaPay environment (sandbox/live).
func (f FedaPayConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(f.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"SENDBOX_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"SENDBOX_PUBSUB_NOTIFICATION_TOPIC" default:"sb-notification-events"`
}

type SettlementConfig struct {
	// AutoReleaseDelay is how long after delivery confirmation the worker
	// waits before releasing bank-rail funds on its own.
	AutoReleaseDelay time.Duration `envconfig:"SENDBOX_SETTLEMENT_AUTO_RELEASE_DELAY" default:"72h"`
	WorkerInterval   time.Duration `envconfig:"SENDBOX_SETTLEMENT_WORKER_INTERVAL" default:"1h"`
	WorkerBatchSize  int           `envconfig:"SENDBOX_SETTLEMENT_WORKER_BATCH_SIZE" default:"100"`
	LockTTL          time.Duration `envconfig:"SENDBOX_SETTLEMENT_LOCK_TTL" default:"55m"`
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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Checkout CheckoutConfig
	Sweep    SweepConfig
	Admin    AdminConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
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
	Env          string `envconfig:"SHOWLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOWLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOWLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOWLINE_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"SHOWLINE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"SHOWLINE_DB_DSN"`

	LegacyHost     string `envconfig:"SHOWLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOWLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOWLINE_DB_USER"`
	LegacyPassword string `envconfig:"SHOWLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOWLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOWLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOWLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOWLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOWLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOWLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOWLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOWLINE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOWLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOWLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOWLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOWLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOWLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOWLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOWLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOWLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOWLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOWLINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SHOWLINE_STRIPE_API_KEY"`
	Secret string `envconfig:"SHOWLINE_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"SHOWLINE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// CheckoutConfig tunes the intent/lock TTLs and platform fee policy.
type CheckoutConfig struct {
	IntentTTL         time.Duration `envconfig:"SHOWLINE_CHECKOUT_INTENT_TTL" default:"10m"`
	LockTTL           time.Duration `envconfig:"SHOWLINE_CHECKOUT_LOCK_TTL" default:"4m"`
	FeePercent        int           `envconfig:"SHOWLINE_CHECKOUT_FEE_PERCENT" default:"10"`
	MinimumChargeUnit int64         `envconfig:"SHOWLINE_CHECKOUT_MIN_CHARGE" default:"50"`
	Currency          string        `envconfig:"SHOWLINE_CHECKOUT_CURRENCY" default:"usd"`
}

// SweepConfig controls the order staleness sweep.
type SweepConfig struct {
	GraceDays int           `envconfig:"SHOWLINE_SWEEP_GRACE_DAYS" default:"5"`
	Interval  time.Duration `envconfig:"SHOWLINE_SWEEP_INTERVAL" default:"24h"`
	LockTTL   time.Duration `envconfig:"SHOWLINE_SWEEP_LOCK_TTL" default:"25h"`
}

// AdminConfig guards the operator-only routes.
type AdminConfig struct {
	Token string `envconfig:"SHOWLINE_ADMIN_TOKEN"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SHOWLINE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"SHOWLINE_PUBSUB_NOTIFICATION_TOPIC" default:"sl-notification-events"`
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

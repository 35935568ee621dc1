package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Settlement   SettlementConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Metrics      MetricsConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPLEDGER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SHOPLEDGER_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPLEDGER_DB_DSN"`
	Driver string `envconfig:"SHOPLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"SHOPLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPLEDGER_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"SHOPLEDGER_SQLITE_PATH" default:"shopledger.db"`

	MaxOpenConns    int           `envconfig:"SHOPLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPLEDGER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPLEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPLEDGER_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPLEDGER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPLEDGER_AUTO_MIGRATE" default:"false"`
}

// SettlementConfig holds the platform-wide money rules.
type SettlementConfig struct {
	CommissionPercent   decimal.Decimal `envconfig:"SHOPLEDGER_COMMISSION_PERCENT" default:"10"`
	HoldPeriodDays      int             `envconfig:"SHOPLEDGER_HOLD_PERIOD_DAYS" default:"7"`
	MinSettlementAmount decimal.Decimal `envconfig:"SHOPLEDGER_MIN_SETTLEMENT_AMOUNT" default:"50000"`
	MaxRetries          int             `envconfig:"SHOPLEDGER_SETTLEMENT_MAX_RETRIES" default:"3"`
	RetryBaseDelay      time.Duration   `envconfig:"SHOPLEDGER_SETTLEMENT_RETRY_BASE_DELAY" default:"25ms"`
}

// HoldPeriod returns the configured hold as a duration.
func (s SettlementConfig) HoldPeriod() time.Duration {
	if s.HoldPeriodDays <= 0 {
		return 0
	}
	return time.Duration(s.HoldPeriodDays) * 24 * time.Hour
}

func (s SettlementConfig) Validate() error {
	hundred := decimal.NewFromInt(100)
	if s.CommissionPercent.IsNegative() || s.CommissionPercent.GreaterThan(hundred) {
		return fmt.Errorf("%s must be between 0 and 100, got %s", EnvCommissionPercent, s.CommissionPercent)
	}
	if s.HoldPeriodDays < 0 {
		return fmt.Errorf("%s must be non-negative, got %d", EnvHoldPeriodDays, s.HoldPeriodDays)
	}
	if !s.MinSettlementAmount.IsPositive() {
		return fmt.Errorf("%s must be positive, got %s", EnvMinSettlementAmount, s.MinSettlementAmount)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("%s must be non-negative, got %d", EnvSettlementMaxRetries, s.MaxRetries)
	}
	return nil
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SHOPLEDGER_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHOPLEDGER_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SHOPLEDGER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHOPLEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersSubscription string `envconfig:"SHOPLEDGER_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	SettlementTopic    string `envconfig:"SHOPLEDGER_PUBSUB_SETTLEMENT_TOPIC" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SHOPLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SHOPLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SHOPLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"SHOPLEDGER_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"SHOPLEDGER_CRON_INTERVAL" default:"15m"`
	LockKey              string        `envconfig:"SHOPLEDGER_CRON_LOCK_KEY" default:"sl:cron:lock"`
	LockTTL              time.Duration `envconfig:"SHOPLEDGER_CRON_LOCK_TTL" default:"10m"`
	HoldReleaseBatchSize int           `envconfig:"SHOPLEDGER_HOLD_RELEASE_BATCH_SIZE" default:"200"`
}

// HTTPConfig tunes the public API surface.
type HTTPConfig struct {
	CORSOrigins             []string      `envconfig:"SHOPLEDGER_CORS_ORIGINS" default:"http://localhost:3000"`
	SettlementRequestLimit  int           `envconfig:"SHOPLEDGER_SETTLEMENT_REQUEST_RATE_LIMIT" default:"10"`
	SettlementRequestWindow time.Duration `envconfig:"SHOPLEDGER_SETTLEMENT_REQUEST_RATE_WINDOW" default:"1h"`
}

type MetricsConfig struct {
	Addr string `envconfig:"SHOPLEDGER_METRICS_ADDR" default:":9102"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		return nil
	}
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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Dispatch     DispatchConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	Env          string `envconfig:"LOKAPASAR_APP_ENV" required:"true"`
	Port         string `envconfig:"LOKAPASAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LOKAPASAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOKAPASAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LOKAPASAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LOKAPASAR_DB_DSN"`
	Driver string `envconfig:"LOKAPASAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LOKAPASAR_DB_HOST"`
	LegacyPort     int    `envconfig:"LOKAPASAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOKAPASAR_DB_USER"`
	LegacyPassword string `envconfig:"LOKAPASAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOKAPASAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOKAPASAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOKAPASAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOKAPASAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOKAPASAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOKAPASAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOKAPASAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LOKAPASAR_REDIS_ADDR"`
	Password     string        `envconfig:"LOKAPASAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOKAPASAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOKAPASAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOKAPASAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOKAPASAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOKAPASAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOKAPASAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LOKAPASAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LOKAPASAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LOKAPASAR_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LOKAPASAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LOKAPASAR_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig tunes order intake behavior. CashbackPercents is the pool
// one percentage is drawn from per checkout; PickupWindow bounds how long a
// self-pickup order may wait before the expiry sweep flags it.
type CheckoutConfig struct {
	CashbackPercents []int         `envconfig:"LOKAPASAR_CHECKOUT_CASHBACK_PERCENTS" default:"3,4,5"`
	PickupWindow     time.Duration `envconfig:"LOKAPASAR_CHECKOUT_PICKUP_WINDOW" default:"24h"`
	PickupCodeLength int           `envconfig:"LOKAPASAR_CHECKOUT_PICKUP_CODE_LENGTH" default:"6"`
}

type DispatchConfig struct {
	RadarPageSize    int           `envconfig:"LOKAPASAR_DISPATCH_RADAR_PAGE_SIZE" default:"20"`
	HeartbeatTTL     time.Duration `envconfig:"LOKAPASAR_DISPATCH_HEARTBEAT_TTL" default:"90s"`
	ClaimRateLimit   int           `envconfig:"LOKAPASAR_DISPATCH_CLAIM_RATE_LIMIT" default:"30"`
	ClaimRateWindow  time.Duration `envconfig:"LOKAPASAR_DISPATCH_CLAIM_RATE_WINDOW" default:"1m"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"LOKAPASAR_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LOKAPASAR_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LOKAPASAR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LOKAPASAR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"LOKAPASAR_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"LOKAPASAR_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	WalletTopic              string `envconfig:"LOKAPASAR_PUBSUB_WALLET_TOPIC" required:"true"`
	WalletSubscription       string `envconfig:"LOKAPASAR_PUBSUB_WALLET_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"LOKAPASAR_PUBSUB_NOTIFICATION_TOPIC" default:"lp-notification-events"`
	NotificationSubscription string `envconfig:"LOKAPASAR_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LOKAPASAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LOKAPASAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LOKAPASAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	WalletRepairInterval time.Duration `envconfig:"LOKAPASAR_CRON_WALLET_REPAIR_INTERVAL" default:"1h"`
	PickupSweepInterval  time.Duration `envconfig:"LOKAPASAR_CRON_PICKUP_SWEEP_INTERVAL" default:"10m"`
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

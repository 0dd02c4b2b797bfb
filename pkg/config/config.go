package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const minProdSecretLen = 32

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	GiftRateLimit GiftRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Sendgrid      SendgridConfig
	Wallet        WalletConfig
	Gift          GiftConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks the relations between settings that struct tags can't
// express. Every violation is reported.
func (c *Config) validate() error {
	var errs error
	fail := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.JWT.ExpirationMinutes <= 0 {
		fail("%s must be positive", EnvJWTExpMins)
	}
	if c.JWT.RefreshTokenTTL() < c.JWT.AccessTokenTTL() {
		fail("%s must not be shorter than the access token lifetime", EnvRefreshTokenTTLMinutes)
	}
	if u, err := url.Parse(c.Gift.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		fail("%s must be an absolute url, got %q", EnvGiftPublicBaseURL, c.Gift.PublicBaseURL)
	}
	for env, d := range map[string]time.Duration{
		EnvGiftLinkTTL:           c.Gift.LinkTTL,
		EnvCronReminderInterval:  c.Cron.ReminderInterval,
		EnvCronRetentionInterval: c.Cron.RetentionInterval,
	} {
		if d <= 0 {
			fail("%s must be positive, got %s", env, d)
		}
	}

	if c.App.IsProd() {
		if len(c.JWT.Secret) < minProdSecretLen {
			fail("%s must be at least %d bytes in %s", EnvJWTSecret, minProdSecretLen, c.App.Env)
		}
		if c.FeatureFlags.EmailsEnabled && c.Sendgrid.APIKey == "" {
			fail("%s is required when emails are enabled in %s", EnvSendgridAPIKey, c.App.Env)
		}
		if c.FeatureFlags.AutoMigrate {
			fail("%s is not allowed in %s; run cmd/migrate", EnvAutoMigrate, c.App.Env)
		}
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"GIFTDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIFTDESK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"GIFTDESK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"GIFTDESK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"GIFTDESK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"GIFTDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIFTDESK_DB_DSN"`
	Driver string `envconfig:"GIFTDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIFTDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"GIFTDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIFTDESK_DB_USER"`
	LegacyPassword string `envconfig:"GIFTDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIFTDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIFTDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"GIFTDESK_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTDESK_REDIS_URL"`
	Address      string        `envconfig:"GIFTDESK_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GIFTDESK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GIFTDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GIFTDESK_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"GIFTDESK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GIFTDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GIFTDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GIFTDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GIFTDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GIFTDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GIFTDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GIFTDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GIFTDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GIFTDESK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GIFTDESK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GIFTDESK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// GiftRateLimitConfig throttles the public gift-link endpoints per client IP.
type GiftRateLimitConfig struct {
	Window  time.Duration `envconfig:"GIFTDESK_GIFT_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"GIFTDESK_GIFT_RATE_LIMIT_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"GIFTDESK_AUTO_MIGRATE" default:"false"`
	EmailsEnabled bool `envconfig:"GIFTDESK_FEATURE_EMAILS_ENABLED" default:"true"`
	ExposeMetrics bool `envconfig:"GIFTDESK_FEATURE_EXPOSE_METRICS" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"GIFTDESK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GIFTDESK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GIFTDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GIFTDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"GIFTDESK_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"GIFTDESK_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	MaxLogoBytes  int64  `envconfig:"GIFTDESK_GCS_MAX_LOGO_BYTES" default:"2097152"`
}

type PubSubConfig struct {
	GiftingTopic             string `envconfig:"GIFTDESK_PUBSUB_GIFTING_TOPIC" default:"gd-gifting-events"`
	NotificationTopic        string `envconfig:"GIFTDESK_PUBSUB_NOTIFICATION_TOPIC" default:"gd-notification-events"`
	NotificationSubscription string `envconfig:"GIFTDESK_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"gd-notification-events-sub"`
	GiftingSubscription      string `envconfig:"GIFTDESK_PUBSUB_GIFTING_SUBSCRIPTION" default:"gd-gifting-events-notify-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GIFTDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GIFTDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GIFTDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"GIFTDESK_OUTBOX_RETENTION_DAYS" default:"30"`
}

type SendgridConfig struct {
	APIKey      string        `envconfig:"GIFTDESK_SENDGRID_API_KEY"`
	BaseURL     string        `envconfig:"GIFTDESK_SENDGRID_BASE_URL" default:"https://api.sendgrid.com"`
	DefaultFrom string        `envconfig:"GIFTDESK_SENDGRID_FROM_EMAIL" default:"gifts@giftdesk.app"`
	FromName    string        `envconfig:"GIFTDESK_SENDGRID_FROM_NAME" default:"GiftDesk"`
	Timeout     time.Duration `envconfig:"GIFTDESK_SENDGRID_TIMEOUT" default:"10s"`
}

type WalletConfig struct {
	DefaultCurrency string `envconfig:"GIFTDESK_WALLET_DEFAULT_CURRENCY" default:"INR"`
}

type GiftConfig struct {
	LinkTTL        time.Duration `envconfig:"GIFTDESK_GIFT_LINK_TTL" default:"720h"`
	PublicBaseURL  string        `envconfig:"GIFTDESK_GIFT_PUBLIC_BASE_URL" default:"https://gifts.giftdesk.app"`
	ReminderWindow time.Duration `envconfig:"GIFTDESK_GIFT_REMINDER_WINDOW" default:"48h"`
}

// CronConfig schedules the cron worker. Each job holds its own lock named
// <LockPrefix>:<env>:<job> for at most one interval.
type CronConfig struct {
	LockPrefix        string        `envconfig:"GIFTDESK_CRON_LOCK_PREFIX" default:"cron"`
	Jitter            time.Duration `envconfig:"GIFTDESK_CRON_JITTER" default:"30s"`
	ReminderInterval  time.Duration `envconfig:"GIFTDESK_CRON_REMINDER_INTERVAL" default:"1h"`
	RetentionInterval time.Duration `envconfig:"GIFTDESK_CRON_RETENTION_INTERVAL" default:"24h"`
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

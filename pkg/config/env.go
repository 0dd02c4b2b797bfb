package config

const EnvPrefix = "GIFTDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "GIFTDESK_APP_ENV"
	EnvPort     = "GIFTDESK_APP_PORT"
	EnvDBDSN    = "GIFTDESK_DB_DSN"
	EnvDBHost   = "GIFTDESK_DB_HOST"
	EnvDBUser   = "GIFTDESK_DB_USER"
	EnvDBName   = "GIFTDESK_DB_NAME"
	EnvDBPass   = "GIFTDESK_DB_PASSWORD"
	EnvDBPort   = "GIFTDESK_DB_PORT"
	EnvRedisURL = "GIFTDESK_REDIS_URL"

	EnvJWTSecret              = "GIFTDESK_JWT_SECRET"
	EnvJWTIssuer              = "GIFTDESK_JWT_ISSUER"
	EnvJWTExpMins             = "GIFTDESK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GIFTDESK_REFRESH_TOKEN_TTL_MINUTES"

	EnvWalletDefaultCurrency = "GIFTDESK_WALLET_DEFAULT_CURRENCY"
	EnvGiftLinkTTL           = "GIFTDESK_GIFT_LINK_TTL"
	EnvGiftPublicBaseURL     = "GIFTDESK_GIFT_PUBLIC_BASE_URL"
	EnvGCSBucket             = "GIFTDESK_GCS_BUCKET_NAME"
	EnvSendgridAPIKey        = "GIFTDESK_SENDGRID_API_KEY"
	EnvAutoMigrate           = "GIFTDESK_AUTO_MIGRATE"
	EnvEmailsEnabled         = "GIFTDESK_FEATURE_EMAILS_ENABLED"

	EnvCronReminderInterval  = "GIFTDESK_CRON_REMINDER_INTERVAL"
	EnvCronRetentionInterval = "GIFTDESK_CRON_RETENTION_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

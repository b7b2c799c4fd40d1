package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "LOKAPASAR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside envconfig tags (tests,
// tooling, error messages).
const (
	EnvAppEnv                 = "LOKAPASAR_APP_ENV"
	EnvPort                   = "LOKAPASAR_APP_PORT"
	EnvDBDSN                  = "LOKAPASAR_DB_DSN"
	EnvDBHost                 = "LOKAPASAR_DB_HOST"
	EnvDBUser                 = "LOKAPASAR_DB_USER"
	EnvDBName                 = "LOKAPASAR_DB_NAME"
	EnvRedisURL               = "LOKAPASAR_REDIS_URL"
	EnvJWTSecret              = "LOKAPASAR_JWT_SECRET"
	EnvJWTIssuer              = "LOKAPASAR_JWT_ISSUER"
	EnvJWTExpMins             = "LOKAPASAR_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID           = "LOKAPASAR_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic      = "LOKAPASAR_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub        = "LOKAPASAR_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubWalletTopic      = "LOKAPASAR_PUBSUB_WALLET_TOPIC"
	EnvPubSubWalletSub        = "LOKAPASAR_PUBSUB_WALLET_SUBSCRIPTION"
	EnvPubSubNotificationSub  = "LOKAPASAR_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

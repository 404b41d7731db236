package config

// EnvPrefix is handed to envconfig; every field carries an explicit key so it only scopes errors.
const EnvPrefix = "MARKETPLACE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "MARKETPLACE_APP_ENV"
	EnvPort     = "MARKETPLACE_APP_PORT"
	EnvLogLevel = "MARKETPLACE_LOG_LEVEL"

	EnvDBDSN  = "MARKETPLACE_DB_DSN"
	EnvDBHost = "MARKETPLACE_DB_HOST"
	EnvDBPort = "MARKETPLACE_DB_PORT"
	EnvDBUser = "MARKETPLACE_DB_USER"
	EnvDBPass = "MARKETPLACE_DB_PASSWORD"
	EnvDBName = "MARKETPLACE_DB_NAME"

	EnvRedisURL = "MARKETPLACE_REDIS_URL"

	EnvJWTSecret  = "MARKETPLACE_JWT_SECRET"
	EnvJWTIssuer  = "MARKETPLACE_JWT_ISSUER"
	EnvJWTExpMins = "MARKETPLACE_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "MARKETPLACE_GCP_PROJECT_ID"

	EnvPubSubNotificationTopic = "MARKETPLACE_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "MARKETPLACE_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvImportMaxUploadMB = "MARKETPLACE_IMPORT_MAX_UPLOAD_MB"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

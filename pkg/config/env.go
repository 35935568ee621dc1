package config

const EnvPrefix = "SHOPLEDGER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "SHOPLEDGER_APP_ENV"
	EnvPort     = "SHOPLEDGER_APP_PORT"
	EnvLogLevel = "SHOPLEDGER_LOG_LEVEL"

	EnvDBDSN  = "SHOPLEDGER_DB_DSN"
	EnvDBHost = "SHOPLEDGER_DB_HOST"
	EnvDBUser = "SHOPLEDGER_DB_USER"
	EnvDBName = "SHOPLEDGER_DB_NAME"

	EnvUseSQLite = "SHOPLEDGER_USE_SQLITE"

	EnvRedisURL = "SHOPLEDGER_REDIS_URL"

	EnvJWTSecret  = "SHOPLEDGER_JWT_SECRET"
	EnvJWTIssuer  = "SHOPLEDGER_JWT_ISSUER"
	EnvJWTExpMins = "SHOPLEDGER_JWT_EXPIRATION_MINUTES"

	EnvCommissionPercent    = "SHOPLEDGER_COMMISSION_PERCENT"
	EnvHoldPeriodDays       = "SHOPLEDGER_HOLD_PERIOD_DAYS"
	EnvMinSettlementAmount  = "SHOPLEDGER_MIN_SETTLEMENT_AMOUNT"
	EnvSettlementMaxRetries = "SHOPLEDGER_SETTLEMENT_MAX_RETRIES"

	EnvGCPProjectID = "SHOPLEDGER_GCP_PROJECT_ID"

	EnvPubSubOrdersSub       = "SHOPLEDGER_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubSettlementTopic = "SHOPLEDGER_PUBSUB_SETTLEMENT_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

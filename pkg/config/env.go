package config

const EnvPrefix = "ODDSPOOL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "ODDSPOOL_APP_ENV"
	EnvPort     = "ODDSPOOL_APP_PORT"
	EnvLogLevel = "ODDSPOOL_LOG_LEVEL"

	EnvDBDSN  = "ODDSPOOL_DB_DSN"
	EnvDBHost = "ODDSPOOL_DB_HOST"
	EnvDBUser = "ODDSPOOL_DB_USER"
	EnvDBName = "ODDSPOOL_DB_NAME"

	EnvRedisURL  = "ODDSPOOL_REDIS_URL"
	EnvUseSQLite = "ODDSPOOL_USE_SQLITE"

	EnvPricingBaseLiquidity = "ODDSPOOL_PRICING_BASE_LIQUIDITY"
	EnvPricingPoolFloor     = "ODDSPOOL_PRICING_POOL_FLOOR"
	EnvPricingHouseEdge     = "ODDSPOOL_PRICING_HOUSE_EDGE"

	EnvStakesMinAmount = "ODDSPOOL_STAKES_MIN_AMOUNT"
	EnvStakesMaxAmount = "ODDSPOOL_STAKES_MAX_AMOUNT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

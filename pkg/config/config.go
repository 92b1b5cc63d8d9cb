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
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	Stakes       StakesConfig
	Outbox       OutboxConfig
	Settlement   SettlementConfig
	Cache        CacheConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Pricing.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Stakes.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ODDSPOOL_APP_ENV" required:"true"`
	Port         string `envconfig:"ODDSPOOL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ODDSPOOL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ODDSPOOL_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"ODDSPOOL_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ODDSPOOL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"ODDSPOOL_DB_DSN"`
	Driver     string `envconfig:"ODDSPOOL_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"ODDSPOOL_SQLITE_PATH" default:"file:oddspool.db?_busy_timeout=5000"`

	LegacyHost     string `envconfig:"ODDSPOOL_DB_HOST"`
	LegacyPort     int    `envconfig:"ODDSPOOL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ODDSPOOL_DB_USER"`
	LegacyPassword string `envconfig:"ODDSPOOL_DB_PASSWORD"`
	LegacyName     string `envconfig:"ODDSPOOL_DB_NAME"`
	LegacySSLMode  string `envconfig:"ODDSPOOL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ODDSPOOL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ODDSPOOL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ODDSPOOL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ODDSPOOL_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"ODDSPOOL_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ODDSPOOL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ODDSPOOL_REDIS_ADDR"`
	Password     string        `envconfig:"ODDSPOOL_REDIS_PASSWORD"`
	DB           int           `envconfig:"ODDSPOOL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ODDSPOOL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ODDSPOOL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ODDSPOOL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ODDSPOOL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ODDSPOOL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ODDSPOOL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ODDSPOOL_AUTO_MIGRATE" default:"false"`
	QuoteCache  bool `envconfig:"ODDSPOOL_FEATURE_QUOTE_CACHE" default:"true"`
}

// PricingConfig holds the AMM parameters. Monetary values are minor units.
type PricingConfig struct {
	BaseLiquidity  int64   `envconfig:"ODDSPOOL_PRICING_BASE_LIQUIDITY" default:"5000000"`
	PoolFloor      int64   `envconfig:"ODDSPOOL_PRICING_POOL_FLOOR" default:"100000"`
	HouseEdge      float64 `envconfig:"ODDSPOOL_PRICING_HOUSE_EDGE" default:"0.97"`
	MinProbability float64 `envconfig:"ODDSPOOL_PRICING_MIN_PROBABILITY" default:"0.05"`
	MaxProbability float64 `envconfig:"ODDSPOOL_PRICING_MAX_PROBABILITY" default:"0.95"`
	MinOdds        float64 `envconfig:"ODDSPOOL_PRICING_MIN_ODDS" default:"1.05"`
	MaxOdds        float64 `envconfig:"ODDSPOOL_PRICING_MAX_ODDS" default:"19.0"`
}

func (p PricingConfig) Validate() error {
	switch {
	case p.BaseLiquidity < 0:
		return fmt.Errorf("%s must be >= 0", EnvPricingBaseLiquidity)
	case p.PoolFloor <= 0:
		return fmt.Errorf("%s must be > 0", EnvPricingPoolFloor)
	case p.HouseEdge <= 0 || p.HouseEdge > 1:
		return fmt.Errorf("%s must be in (0, 1]", EnvPricingHouseEdge)
	case p.MinProbability <= 0 || p.MaxProbability >= 1 || p.MinProbability > p.MaxProbability:
		return fmt.Errorf("pricing probability bounds must satisfy 0 < min <= max < 1")
	case p.MinOdds < 1 || p.MinOdds > p.MaxOdds:
		return fmt.Errorf("pricing odds bounds must satisfy 1 <= min <= max")
	}
	return nil
}

// StakesConfig bounds a single stake, in minor units.
type StakesConfig struct {
	MinStake int64 `envconfig:"ODDSPOOL_STAKES_MIN_AMOUNT" default:"100"`
	MaxStake int64 `envconfig:"ODDSPOOL_STAKES_MAX_AMOUNT" default:"100000000"`
}

func (s StakesConfig) Validate() error {
	if s.MinStake <= 0 || s.MaxStake < s.MinStake {
		return fmt.Errorf("%s and %s must satisfy 0 < min <= max", EnvStakesMinAmount, EnvStakesMaxAmount)
	}
	return nil
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"ODDSPOOL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"ODDSPOOL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"ODDSPOOL_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Channel        string `envconfig:"ODDSPOOL_OUTBOX_CHANNEL" default:"market-events"`

	Retention      time.Duration `envconfig:"ODDSPOOL_OUTBOX_RETENTION" default:"168h"`
	PurgeBatchSize int           `envconfig:"ODDSPOOL_OUTBOX_PURGE_BATCH_SIZE" default:"500"`
}

type SettlementConfig struct {
	Interval  time.Duration `envconfig:"ODDSPOOL_SETTLEMENT_INTERVAL" default:"1m"`
	BatchSize int           `envconfig:"ODDSPOOL_SETTLEMENT_BATCH_SIZE" default:"25"`
}

type CacheConfig struct {
	QuoteTTL time.Duration `envconfig:"ODDSPOOL_CACHE_QUOTE_TTL" default:"5s"`
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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "pactum"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PACTUM_DB_DSN"
	EnvDBHost = "PACTUM_DB_HOST"
	EnvDBUser = "PACTUM_DB_USER"
	EnvDBName = "PACTUM_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Chain         ChainConfig
	Market        MarketConfig
	GoogleMaps    GoogleMapsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Chain.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PACTUM_APP_ENV" required:"true"`
	Port         string `envconfig:"PACTUM_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"PACTUM_PUBLIC_URL"`
	LogLevel     string `envconfig:"PACTUM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PACTUM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PACTUM_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PACTUM_DB_DSN"`
	Driver string `envconfig:"PACTUM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PACTUM_DB_HOST"`
	LegacyPort     int    `envconfig:"PACTUM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PACTUM_DB_USER"`
	LegacyPassword string `envconfig:"PACTUM_DB_PASSWORD"`
	LegacyName     string `envconfig:"PACTUM_DB_NAME"`
	LegacySSLMode  string `envconfig:"PACTUM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PACTUM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PACTUM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PACTUM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PACTUM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PACTUM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PACTUM_REDIS_ADDR"`
	Password     string        `envconfig:"PACTUM_REDIS_PASSWORD"`
	DB           int           `envconfig:"PACTUM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PACTUM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PACTUM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PACTUM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PACTUM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PACTUM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PACTUM_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PACTUM_JWT_ISSUER" default:"pactum-gateway"`
	ExpirationMinutes int    `envconfig:"PACTUM_JWT_EXPIRATION_MINUTES" default:"10080"`

	ChallengeTTL time.Duration `envconfig:"PACTUM_AUTH_CHALLENGE_TTL" default:"5m"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type AuthRateLimitConfig struct {
	ChallengeWindow      time.Duration `envconfig:"PACTUM_AUTH_RATE_LIMIT_CHALLENGE_WINDOW" default:"1m"`
	ChallengeWalletLimit int           `envconfig:"PACTUM_AUTH_RATE_LIMIT_CHALLENGE_WALLET_LIMIT" default:"10"`
	ChallengeIPLimit     int           `envconfig:"PACTUM_AUTH_RATE_LIMIT_CHALLENGE_IP_LIMIT" default:"30"`
	RegisterWindow       time.Duration `envconfig:"PACTUM_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterWalletLimit  int           `envconfig:"PACTUM_AUTH_RATE_LIMIT_REGISTER_WALLET_LIMIT" default:"3"`
	RegisterIPLimit      int           `envconfig:"PACTUM_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PACTUM_AUTO_MIGRATE" default:"false"`
}

// ChainConfig describes how the gateway reaches the settlement chain.
type ChainConfig struct {
	// Mode selects the chain backend: "rpc" talks JSON-RPC to a real node,
	// "embedded" runs the in-process ledger (dev and tests).
	Mode              string        `envconfig:"PACTUM_CHAIN_MODE" default:"rpc"`
	RPCURL            string        `envconfig:"PACTUM_CHAIN_RPC_URL"`
	EscrowContract    string        `envconfig:"PACTUM_ESCROW_CONTRACT"`
	TokenContract     string        `envconfig:"PACTUM_USDC_CONTRACT"`
	RegistryContract  string        `envconfig:"PACTUM_AGENT_CONTRACT"`
	PaymasterURL      string        `envconfig:"PACTUM_PAYMASTER_URL"`
	Network           string        `envconfig:"PACTUM_CHAIN_NETWORK" default:"testnet"`
	PollInterval      time.Duration `envconfig:"PACTUM_CHAIN_POLL_INTERVAL" default:"5s"`
	ConfirmationDepth uint64        `envconfig:"PACTUM_CHAIN_CONFIRMATION_DEPTH" default:"3"`
	MaxBlockSpan      uint64        `envconfig:"PACTUM_CHAIN_MAX_BLOCK_SPAN" default:"2000"`
	RequestTimeout    time.Duration `envconfig:"PACTUM_CHAIN_REQUEST_TIMEOUT" default:"10s"`
}

// IsEmbedded reports whether the in-process chain backend is selected.
func (c ChainConfig) IsEmbedded() bool {
	return strings.EqualFold(c.Mode, "embedded")
}

func (c ChainConfig) validate() error {
	if c.IsEmbedded() {
		return nil
	}
	if strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("PACTUM_CHAIN_RPC_URL is required in rpc mode")
	}
	if strings.TrimSpace(c.EscrowContract) == "" {
		return fmt.Errorf("PACTUM_ESCROW_CONTRACT is required in rpc mode")
	}
	return nil
}

// MarketConfig tunes the order orchestrator.
type MarketConfig struct {
	DeliveryTimeout    time.Duration `envconfig:"PACTUM_DELIVERY_TIMEOUT" default:"30s"`
	ConfirmationWindow time.Duration `envconfig:"PACTUM_CONFIRMATION_WINDOW" default:"24h"`
	PaymentExpiry      time.Duration `envconfig:"PACTUM_PAYMENT_EXPIRY" default:"5m"`
	StaleOrderTTL      time.Duration `envconfig:"PACTUM_STALE_ORDER_TTL" default:"24h"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"PACTUM_GOOGLE_MAPS_API_KEY"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PACTUM_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PACTUM_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PACTUM_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	MarketTopic        string `envconfig:"PACTUM_PUBSUB_MARKET_TOPIC" default:"pactum-market-events"`
	MarketSubscription string `envconfig:"PACTUM_PUBSUB_MARKET_SUBSCRIPTION"`
	NotifyTopic        string `envconfig:"PACTUM_PUBSUB_NOTIFY_TOPIC" default:"pactum-notify-events"`
	NotifySubscription string `envconfig:"PACTUM_PUBSUB_NOTIFY_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PACTUM_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"PACTUM_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts    int           `envconfig:"PACTUM_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int           `envconfig:"PACTUM_OUTBOX_RETENTION_DAYS" default:"14"`
	PublishTimeout time.Duration `envconfig:"PACTUM_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
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

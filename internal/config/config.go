package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Realtime RealtimeConfig `mapstructure:"realtime" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int             `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string          `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string          `mapstructure:"log_format" validate:"required,oneof=json text"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" validate:"gt=0"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds the number of API requests a single client IP may
// make per window. A zero Requests value disables limiting.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"gte=0"`
	Window   time.Duration `mapstructure:"window" validate:"required_with=Requests"`
}

// DatabaseConfig selects and configures the repository backend.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=postgres mongo"`
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// MongoDatabase names the database used when Driver is "mongo".
	MongoDatabase string `mapstructure:"mongo_database" validate:"required_if=Driver mongo"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost           int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// RealtimeConfig tunes the websocket gateway.
type RealtimeConfig struct {
	ReadLimit        int64         `mapstructure:"read_limit" validate:"gt=0"`
	WriteWait        time.Duration `mapstructure:"write_wait" validate:"gt=0"`
	PongWait         time.Duration `mapstructure:"pong_wait" validate:"gt=0"`
	PingPeriod       time.Duration `mapstructure:"ping_period" validate:"gt=0,ltfield=PongWait"`
	SendBuffer       int           `mapstructure:"send_buffer" validate:"gt=0"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" validate:"gt=0"`
	// GateTaskJoins applies task visibility rules to join:task requests.
	GateTaskJoins  bool     `mapstructure:"gate_task_joins"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedisConfig configures the optional shared presence store.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db" validate:"gte=0"`
	PresenceTTL time.Duration `mapstructure:"presence_ttl"`
}

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all server configuration, read once at startup.
// Priority: environment variables > .env file > defaults.
type Config struct {
	// HTTP front
	HTTPPort            int    `env:"HTTP_PORT" envDefault:"5001"`
	HTTPAddress         string `env:"HTTP_ADDRESS" envDefault:"0.0.0.0"`
	HTTPThreadCount     int    `env:"HTTP_THREAD_COUNT" envDefault:"16"`
	HTTPUsingCloudflare bool   `env:"HTTP_USING_CLOUDFLARE" envDefault:"false"`

	// Database
	MySQLHost     string `env:"MYSQL_HOST" envDefault:"127.0.0.1"`
	MySQLPort     int    `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLUser     string `env:"MYSQL_USER" envDefault:"bancho"`
	MySQLPassword string `env:"MYSQL_PASSWORD" envDefault:""`
	MySQLDatabase string `env:"MYSQL_DATABASE" envDefault:"bancho"`
	MySQLPoolSize int    `env:"MYSQL_POOL_SIZE" envDefault:"8"`

	// Cache / bus
	RedisHost     string `env:"REDIS_HOST" envDefault:"127.0.0.1"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Branding and bot identity
	ServerName  string `env:"PS_NAME" envDefault:"Rosu"`
	Domain      string `env:"PS_DOMAIN" envDefault:"rosu.pw"`
	BotUsername string `env:"PS_BOT_USERNAME" envDefault:"RealistikBot"`
	BotUserID   int32  `env:"PS_BOT_USER_ID" envDefault:"999"`

	// Client gating
	MinimumClientYear int `env:"PS_MINIMUM_CLIENT_YEAR" envDefault:"2018"`

	// Bot debug eval gate
	EnablePyCommand    bool    `env:"PS_ENABLE_PY_COMMAND" envDefault:"false"`
	PyCommandWhitelist []int32 `env:"PS_PY_COMMAND_WHITELIST" envDefault:"" envSeparator:","`

	// Chat spam limits
	SilenceThreshold  int           `env:"PS_SILENCE_THRESHOLD" envDefault:"10"`
	SpamResetInterval time.Duration `env:"PS_SPAM_RESET_INTERVAL" envDefault:"10s"`
	SilencePenalty    time.Duration `env:"PS_SILENCE_PENALTY" envDefault:"10m"`

	// Collaborators
	IP2LocationAPIKey         string        `env:"IP2LOCATION_API_KEY" envDefault:""`
	PerformanceServiceURL     string        `env:"PERFORMANCE_SERVICE_URL" envDefault:"http://127.0.0.1:7727"`
	PerformanceServiceTimeout time.Duration `env:"PERFORMANCE_SERVICE_TIMEOUT" envDefault:"1s"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the optional .env file and the process
// environment. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// MySQLDSN returns the go-sql-driver connection string.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.MySQLUser, c.MySQLPassword, c.MySQLHost, c.MySQLPort, c.MySQLDatabase,
	)
}

// RedisAddr returns the host:port pair for the redis client.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// BindAddr returns the HTTP listen address.
func (c Config) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPAddress, c.HTTPPort)
}

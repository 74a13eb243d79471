package config

import (
	"fmt"
	"strings"
	"time"
)

// This file defines the configuration structures used by viper_config.go
// The actual loading is handled by viper in viper_config.go

// ServerConfig represents the server configuration
type ServerConfig struct {
	Server   ServerSettings   `yaml:"server"`
	Game     GameSettings     `yaml:"game"`
	Database DatabaseSettings `yaml:"database"`
	Auth     AuthSettings     `yaml:"auth"`
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Port      string `yaml:"port"`
	Host      string `yaml:"host"`
	PublicURL string `yaml:"publicURL"` // Base URL embedded in invite QR codes

	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"` // 0 for websocket/SSE support
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"` // Timeout for regular HTTP requests (middleware)

	// Rate limiting (using golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit"`      // requests per second
	RateLimitBurst int     `yaml:"rateLimitBurst"` // burst size

	MaxRequestSize int64 `yaml:"maxRequestSize"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

// GameSettings contains room and match settings
type GameSettings struct {
	DefaultMaxPlayers int           `yaml:"defaultMaxPlayers"`
	RoomCodeLength    int           `yaml:"roomCodeLength"`
	ReapInterval      time.Duration `yaml:"reapInterval"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	AutoPlayDelay     time.Duration `yaml:"autoPlayDelay"` // 0 disables automatic turns
	SubscriberBuffer  int           `yaml:"subscriberBuffer"`
	BcryptCost        int           `yaml:"bcryptCost"`
}

// DatabaseSettings configures the statistics database
type DatabaseSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Driver      string `yaml:"driver"` // sqlite or postgres
	DSN         string `yaml:"dsn"`
	EventBuffer int    `yaml:"eventBuffer"`
}

// AuthSettings configures session tokens
type AuthSettings struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Port:            "8000",
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,

			RateLimit:      10,
			RateLimitBurst: 20,

			MaxRequestSize: 1048576, // 1MB

			LogLevel:  "info",
			LogFormat: "text",
		},
		Game: GameSettings{
			DefaultMaxPlayers: 5,
			RoomCodeLength:    6,
			ReapInterval:      60 * time.Second,
			IdleTimeout:       2 * time.Hour,
			AutoPlayDelay:     time.Second,
			SubscriberBuffer:  16,
			BcryptCost:        10,
		},
		Database: DatabaseSettings{
			Enabled:     true,
			Driver:      "sqlite",
			DSN:         "ultimatecode.db",
			EventBuffer: 256,
		},
		Auth: AuthSettings{
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Validate checks if the configuration is valid
func (c *ServerConfig) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must be set")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("rateLimit must be positive")
	}
	if c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("rateLimitBurst must be at least 1")
	}
	if c.Server.MaxRequestSize < 1 {
		return fmt.Errorf("maxRequestSize must be at least 1")
	}

	if c.Game.DefaultMaxPlayers < 2 || c.Game.DefaultMaxPlayers > 10 {
		return fmt.Errorf("defaultMaxPlayers must be between 2 and 10")
	}
	if c.Game.RoomCodeLength < 4 {
		return fmt.Errorf("roomCodeLength must be at least 4")
	}
	if c.Game.ReapInterval <= 0 {
		return fmt.Errorf("reapInterval must be positive")
	}
	if c.Game.IdleTimeout <= 0 {
		return fmt.Errorf("idleTimeout must be positive")
	}
	if c.Game.AutoPlayDelay < 0 {
		return fmt.Errorf("autoPlayDelay cannot be negative")
	}
	if c.Game.SubscriberBuffer < 1 {
		return fmt.Errorf("subscriberBuffer must be at least 1")
	}
	if c.Game.BcryptCost < 4 || c.Game.BcryptCost > 31 {
		return fmt.Errorf("bcryptCost must be between 4 and 31")
	}

	if c.Database.Enabled {
		switch c.Database.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
		}
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn must be set when the database is enabled")
		}
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("tokenTTL must be positive")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("jwtSecret must be at least 16 characters")
	}

	return nil
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c *ServerConfig) Redacted() *ServerConfig {
	out := *c
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = "********"
	}
	out.Database.DSN = redactDSN(out.Database.DSN)
	return &out
}

// redactDSN masks password=... pairs and URL userinfo passwords.
func redactDSN(dsn string) string {
	if at := strings.LastIndex(dsn, "@"); at > 0 {
		if scheme := strings.Index(dsn, "://"); scheme >= 0 && scheme < at {
			userinfo := dsn[scheme+3 : at]
			if colon := strings.Index(userinfo, ":"); colon >= 0 {
				return dsn[:scheme+3+colon+1] + "********" + dsn[at:]
			}
		}
	}

	fields := strings.Fields(dsn)
	masked := false
	for i, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), "password=") {
			fields[i] = "password=********"
			masked = true
		}
	}
	if !masked {
		return dsn
	}
	return strings.Join(fields, " ")
}

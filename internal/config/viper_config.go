package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. ULTIMATECODE_SERVER_PORT.
const EnvPrefix = "ULTIMATECODE"

// flagKeys maps command line flag names to config keys
var flagKeys = map[string]string{
	"host":            "server.host",
	"port":            "server.port",
	"public-url":      "server.publicurl",
	"log-level":       "server.loglevel",
	"log-format":      "server.logformat",
	"stats":           "database.enabled",
	"database-driver": "database.driver",
	"database-dsn":    "database.dsn",
	"auto-play-delay": "game.autoplaydelay",
	"idle-timeout":    "game.idletimeout",
}

// envAliases are accepted next to the prefixed variable for each key
var envAliases = map[string]string{
	"server.port":      "PORT",
	"server.host":      "HOST",
	"server.loglevel":  "LOG_LEVEL",
	"server.logformat": "LOG_FORMAT",
	"database.dsn":     "DATABASE_DSN",
	"auth.jwtsecret":   "JWT_SECRET",
}

// LoadConfig loads configuration using Viper
// Priority order: Environment variables > Config file > Defaults
func LoadConfig(configPath string) (*ServerConfig, error) {
	return LoadConfigWithFlags(configPath, nil)
}

// LoadConfigWithFlags is LoadConfig with explicitly set flags taking
// precedence over every other source.
func LoadConfigWithFlags(configPath string, flags *pflag.FlagSet) (*ServerConfig, error) {
	v := viper.New()

	// Set config file details
	v.SetConfigName("server")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ultimatecode")
	}

	// Enable environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Short aliases next to ULTIMATECODE_SERVER_PORT and friends
	for key, alias := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	setDefaults(v)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	// The config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.publicurl", d.Server.PublicURL)
	v.SetDefault("server.readtimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writetimeout", d.Server.WriteTimeout)
	v.SetDefault("server.idletimeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdowntimeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.requesttimeout", d.Server.RequestTimeout)
	v.SetDefault("server.ratelimit", d.Server.RateLimit)
	v.SetDefault("server.ratelimitburst", d.Server.RateLimitBurst)
	v.SetDefault("server.maxrequestsize", d.Server.MaxRequestSize)
	v.SetDefault("server.loglevel", d.Server.LogLevel)
	v.SetDefault("server.logformat", d.Server.LogFormat)

	v.SetDefault("game.defaultmaxplayers", d.Game.DefaultMaxPlayers)
	v.SetDefault("game.roomcodelength", d.Game.RoomCodeLength)
	v.SetDefault("game.reapinterval", d.Game.ReapInterval)
	v.SetDefault("game.idletimeout", d.Game.IdleTimeout)
	v.SetDefault("game.autoplaydelay", d.Game.AutoPlayDelay)
	v.SetDefault("game.subscriberbuffer", d.Game.SubscriberBuffer)
	v.SetDefault("game.bcryptcost", d.Game.BcryptCost)

	v.SetDefault("database.enabled", d.Database.Enabled)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.eventbuffer", d.Database.EventBuffer)

	v.SetDefault("auth.jwtsecret", d.Auth.JWTSecret)
	v.SetDefault("auth.tokenttl", d.Auth.TokenTTL)
}

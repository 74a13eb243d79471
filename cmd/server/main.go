package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ultimatecode/internal/config"
	"ultimatecode/internal/logging"
)

const releaseVersion = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "ultimatecode",
		Short:         "Multiplayer server for the ultimate code number guessing game.",
		Args:          cobra.NoArgs,
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default: ./config/server.yaml)")

	serve := newServeCommand(&configPath)
	cmd.AddCommand(serve, newConfigCommand(&configPath))

	// Running without a subcommand serves
	cmd.Flags().AddFlagSet(serve.Flags())
	cmd.RunE = serve.RunE

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("ultimatecode v{{.Version}}\n")

	return cmd
}

func newServeCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfigWithFlags(*configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func addServeFlags(fs *pflag.FlagSet) {
	defaults := config.DefaultConfig()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.String("host", defaults.Server.Host, "address to bind to (env: HOST)")
	fs.StringP("port", "p", defaults.Server.Port, "port to listen on (env: PORT)")
	fs.String("public-url", "", "base URL used in invite links and QR codes")
	fs.String("log-level", defaults.Server.LogLevel, "debug, info, warn or error (env: LOG_LEVEL)")
	fs.String("log-format", defaults.Server.LogFormat, "text or json (env: LOG_FORMAT)")
	fs.Bool("stats", defaults.Database.Enabled, "record match statistics in the database")
	fs.String("database-driver", defaults.Database.Driver, "sqlite or postgres")
	fs.String("database-dsn", defaults.Database.DSN, "database connection string (env: DATABASE_DSN)")
	fs.Duration("auto-play-delay", defaults.Game.AutoPlayDelay, "pause before an automated player acts")
	fs.Duration("idle-timeout", defaults.Game.IdleTimeout, "time before idle rooms are reaped")
}

func newConfigCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfigWithFlags(*configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func printConfig(w io.Writer, cfg *config.ServerConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func serve(ctx context.Context, cfg *config.ServerConfig) error {
	logger, err := logging.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("loaded configuration",
		zap.String("addr", cfg.Server.Host+":"+cfg.Server.Port),
		zap.Int("defaultMaxPlayers", cfg.Game.DefaultMaxPlayers),
		zap.Bool("stats", cfg.Database.Enabled),
		zap.String("databaseDriver", cfg.Database.Driver))

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

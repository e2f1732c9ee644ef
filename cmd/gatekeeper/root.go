package main

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/layer-3/gatekeeper/adapters/logging"
	"github.com/layer-3/gatekeeper/config"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var BuildVersion = "dev"

var rootCmd = &cobra.Command{
	Use:          "gatekeeper",
	Short:        "Gatekeeper authentication service",
	Long:         "Account, token and password-reset service backed by Redis.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of Gatekeeper",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	})
}

func Execute() error {
	return rootCmd.Execute()
}

// bootstrap loads the configuration and builds the process logger.
func bootstrap() (*config.Config, logr.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, logr.Discard(), err
	}
	logger := logging.New(cfg.LogLevel).WithValues("version", BuildVersion)
	return cfg, logger, nil
}

func connectRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

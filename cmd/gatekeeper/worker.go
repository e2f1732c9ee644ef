package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/layer-3/gatekeeper/adapters/logging"
	"github.com/layer-3/gatekeeper/adapters/mailer"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "worker",
		Short: "Deliver queued emails over SMTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			redisClient, err := connectRedis(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			subscriber, err := redisstream.NewSubscriber(
				redisstream.SubscriberConfig{
					Client:        redisClient,
					ConsumerGroup: cfg.ConsumerGroup,
				},
				logging.NewWatermillAdapter(logger),
			)
			if err != nil {
				return fmt.Errorf("failed to create redis subscriber: %w", err)
			}
			defer subscriber.Close()

			worker, err := mailer.NewWorker(subscriber, mailer.NewSMTPSender(cfg.Mailer()), mailer.WorkerConfig{
				Topic:       cfg.EmailTopic,
				SendTimeout: cfg.MailTimeout,
				Logger:      logger.WithName("mailer"),
			})
			if err != nil {
				return err
			}
			return worker.Run(ctx)
		},
	})
}

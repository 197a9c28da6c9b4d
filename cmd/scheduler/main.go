package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/campaign-agent/internal/agent/campaign"
	"github.com/campaign-agent/internal/app"
	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/pkg/logger"
)

// jobTimeout bounds one scheduled run
const jobTimeout = 30 * time.Minute

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "campaign-scheduler",
		Short: "Background scheduler for the campaign agent",
		Long: `Runs scheduled campaigns and, optionally, publishing of approved content.
Also serves the HTTP API, whose /health endpoint doubles as a liveness check.`,
		RunE:         runScheduler,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting campaign scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	for _, p := range svc.Registry.ListAll() {
		log.Info().
			Str("provider", p.Name).
			Bool("configured", p.Configured).
			Strs("missing", p.MissingKeys).
			Msg("Publishing provider status")
	}

	cl := cronLogger{log: log.WithComponent("cron")}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	_, err = c.AddFunc(cfg.Scheduler.CampaignCron, func() {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		log.Info().Msg("Running scheduled campaign")

		result, err := svc.Campaigns.Run(jobCtx, campaign.Request{Mode: campaign.ModeAuto})
		if err != nil {
			log.Error().Err(err).Msg("Scheduled campaign failed")
			return
		}

		event := log.Info().
			Int("trends_found", result.TrendsFound).
			Bool("content_generated", result.ContentGenerated).
			Int("content_created", len(result.ContentIDs))
		if result.Processed != nil {
			event = event.Str("topic", *result.Processed)
		}
		event.Msg("Scheduled campaign completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule campaign job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.CampaignCron).Msg("Campaign job scheduled")

	if cfg.Scheduler.PublishCron != "" {
		_, err = c.AddFunc(cfg.Scheduler.PublishCron, func() {
			jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()

			log.Info().Msg("Running scheduled publish")

			result, err := svc.Publisher.PublishApproved(jobCtx)
			if err != nil {
				log.Error().Err(err).Msg("Scheduled publish failed")
				return
			}
			for _, e := range result.Errors {
				log.Error().Err(e).Msg("Publish error")
			}

			log.Info().
				Int("attempted", result.Attempted).
				Int("published", result.Published).
				Int("errors", len(result.Errors)).
				Msg("Scheduled publish completed")
		})
		if err != nil {
			return fmt.Errorf("failed to schedule publish job: %w", err)
		}
		log.Info().Str("cron", cfg.Scheduler.PublishCron).Msg("Publish job scheduled")
	}

	c.Start()
	log.Info().Msg("Scheduler started")

	addr := cfg.Server.Addr
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- svc.Server().Start(ctx, addr)
	}()

	select {
	case <-ctx.Done():
		err = <-serverErr
	case err = <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	log.Info().Msg("Shutting down scheduler")
	stop()
	<-c.Stop().Done()

	return err
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

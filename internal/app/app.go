// Package app wires configuration into the running services shared by the
// CLI, the API server and the scheduler.
package app

import (
	"context"
	"fmt"

	"github.com/campaign-agent/internal/agent/campaign"
	"github.com/campaign-agent/internal/agent/discovery"
	"github.com/campaign-agent/internal/agent/publisher"
	"github.com/campaign-agent/internal/ai"
	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/httpserver"
	"github.com/campaign-agent/internal/media/unsplash"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/provider"
	"github.com/campaign-agent/internal/publish"
	"github.com/campaign-agent/internal/publish/googledocs"
	"github.com/campaign-agent/internal/publish/wechat"
	"github.com/campaign-agent/internal/publish/xhs"
	"github.com/campaign-agent/internal/source"
	"github.com/campaign-agent/internal/source/rss"
	"github.com/campaign-agent/internal/source/trends"
	"github.com/campaign-agent/internal/storage/sqlite"
	"github.com/campaign-agent/internal/tracker"
	"github.com/campaign-agent/pkg/logger"
	"github.com/campaign-agent/pkg/ratelimit"
)

// App holds the wired services
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Repo      *sqlite.Repository
	Sources   *source.Manager
	Registry  *provider.Registry
	Discovery *discovery.Agent
	Campaigns *campaign.Agent
	Publisher *publisher.Agent
	Tracker   *tracker.SheetsTracker
}

// New opens storage and builds every service from cfg
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	platforms, err := parsePlatforms(cfg.Campaign.Platforms)
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.New(cfg.Database.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repo.Migrate(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	limiter := ratelimit.NewLimiter(ratelimit.Limits{
		AnthropicPerMinute: cfg.RateLimit.AnthropicRequestsPerMinute,
		GooglePerMinute:    cfg.RateLimit.GoogleRequestsPerMinute,
		RSSPerSecond:       cfg.RateLimit.RSSRequestsPerSecond,
	})

	sources := source.NewManager()
	if cfg.Sources.RSS.Enabled {
		for _, src := range rss.NewMultiple(cfg.Sources.RSS, limiter, log) {
			sources.Register(src)
		}
	}
	if cfg.Sources.Trends.Enabled {
		sources.Register(trends.New(cfg.Sources.Trends, limiter, log))
	}

	providerConfig := provider.StaticConfig(cfg.Providers)
	docs := googledocs.New(providerConfig, log, googledocs.WithLimiter(limiter))

	registry := provider.NewRegistry(providerConfig, log,
		provider.WithTTL(cfg.Registry.CacheTTL),
		provider.WithTester(models.PlatformGoogleDocs, docs),
	)

	dispatcher := publish.NewDispatcher(cfg.Campaign.PublishTimeout, log,
		docs,
		wechat.New(providerConfig, log),
		xhs.New(providerConfig, log),
	)

	generator := ai.NewGenerator(ai.NewClient(cfg.Anthropic, limiter, log), cfg.Campaign.BrandVoice, cfg.Campaign.GenerateTimeout, log)
	if cfg.Media.Enabled && cfg.Media.UnsplashAPIKey != "" {
		generator.SetImageFinder(unsplash.NewClient(cfg.Media.UnsplashAPIKey, limiter, log))
	}

	discoveryAgent := discovery.NewAgent(sources, repo, cfg.Campaign.DiscoverTimeout, log)

	campaigns := campaign.NewAgent(registry, discoveryAgent, repo, generator, repo, platforms, log)
	campaigns.SetPendingLimit(cfg.Campaign.PendingLimit)

	publisherAgent := publisher.NewAgent(repo, dispatcher, log)

	a := &App{
		Config:    cfg,
		Log:       log,
		Repo:      repo,
		Sources:   sources,
		Registry:  registry,
		Discovery: discoveryAgent,
		Campaigns: campaigns,
		Publisher: publisherAgent,
	}

	if cfg.Tracker.Enabled {
		t, err := tracker.NewSheetsTracker(ctx, cfg.Tracker, cfg.Providers.GoogleDocs, limiter, log)
		if err != nil {
			// the audit log is optional; publishing works without it
			log.Warn().Err(err).Msg("Sheets tracker unavailable, continuing without it")
		} else {
			a.Tracker = t
			publisherAgent.SetTracker(t)
		}
	}

	return a, nil
}

// Server builds the HTTP API over the app's services
func (a *App) Server() *httpserver.Server {
	return httpserver.New(httpserver.Deps{
		Campaigns: a.Campaigns,
		Reviewer:  a.Publisher,
		Trends:    a.Repo,
		Content:   a.Repo,
		Providers: a.Registry,
	}, a.Log)
}

// Close releases storage
func (a *App) Close() error {
	return a.Repo.Close()
}

func parsePlatforms(names []string) ([]models.Platform, error) {
	out := make([]models.Platform, 0, len(names))
	for _, name := range names {
		p, err := models.ParsePlatform(name)
		if err != nil {
			return nil, fmt.Errorf("campaign.platforms: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

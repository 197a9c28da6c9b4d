// Package trends reads Google Trends' daily trending searches feed.
package trends

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/source"
	"github.com/campaign-agent/pkg/logger"
	"github.com/campaign-agent/pkg/ratelimit"
)

const trendingRSSURL = "https://trends.google.com/trending/rss"

// Source implements TrendSource for Google Trends
type Source struct {
	url     string
	limit   int
	parser  *gofeed.Parser
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// New creates a Google Trends source for the configured region
func New(cfg config.TrendsConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	feedURL := cfg.URL
	if feedURL == "" {
		geo := cfg.Geo
		if geo == "" {
			geo = "US"
		}
		feedURL = trendingRSSURL + "?geo=" + url.QueryEscape(geo)
	}

	return &Source{
		url:     feedURL,
		limit:   cfg.Limit,
		parser:  gofeed.NewParser(),
		limiter: limiter,
		log:     log.WithSource("trends", models.SourceGoogleTrends),
	}
}

// Name returns the source label stored on topics
func (s *Source) Name() string {
	return models.SourceGoogleTrends
}

// Type returns "trends"
func (s *Source) Type() string {
	return "trends"
}

// Fetch returns today's trending searches. The link of the first related news
// article is preferred over the trends explore link when present.
func (s *Source) Fetch(ctx context.Context) ([]models.DiscoveredItem, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, ratelimit.LimiterGoogle); err != nil {
			return nil, fmt.Errorf("rate limit error: %w", err)
		}
	}

	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google trends: %w", err)
	}

	items := make([]models.DiscoveredItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		link := item.Link
		if newsURL := extensionValue(item.Extensions, "ht", "news_item_url"); newsURL != "" {
			link = newsURL
		}

		items = append(items, models.DiscoveredItem{
			Title:       title,
			Source:      models.SourceGoogleTrends,
			SourceURL:   link,
			PublishedAt: item.PublishedParsed,
		})

		if s.limit > 0 && len(items) >= s.limit {
			break
		}
	}

	s.log.Info().Int("count", len(items)).Msg("Fetched trending searches")
	return items, nil
}

// extensionValue finds the first value of prefix:name anywhere in the item's
// extensions, including children nested under ht:news_item.
func extensionValue(exts ext.Extensions, prefix, name string) string {
	ns, ok := exts[prefix]
	if !ok {
		return ""
	}
	if vals := ns[name]; len(vals) > 0 && vals[0].Value != "" {
		return strings.TrimSpace(vals[0].Value)
	}
	for _, list := range ns {
		for _, e := range list {
			if children := e.Children[name]; len(children) > 0 {
				return strings.TrimSpace(children[0].Value)
			}
		}
	}
	return ""
}

// Ensure Source implements source.TrendSource
var _ source.TrendSource = (*Source)(nil)

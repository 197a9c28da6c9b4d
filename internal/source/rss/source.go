package rss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/source"
	"github.com/campaign-agent/pkg/logger"
	"github.com/campaign-agent/pkg/ratelimit"
)

const defaultMaxAge = 7 * 24 * time.Hour

// Source implements TrendSource for a single RSS feed
type Source struct {
	name    string
	url     string
	maxAge  time.Duration
	parser  *gofeed.Parser
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
	now     func() time.Time
}

// New creates a new RSS source for a single feed
func New(feed config.RSSFeed, maxAge time.Duration, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	return &Source{
		name:    feed.Name,
		url:     feed.URL,
		maxAge:  maxAge,
		parser:  gofeed.NewParser(),
		limiter: limiter,
		log:     log.WithSource("rss", feed.Name),
		now:     time.Now,
	}
}

// NewMultiple creates one source per configured feed
func NewMultiple(cfg config.RSSConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) []*Source {
	maxAge, err := time.ParseDuration(cfg.MaxAge)
	if err != nil {
		maxAge = defaultMaxAge
	}
	sources := make([]*Source, 0, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		sources = append(sources, New(feed, maxAge, limiter, log))
	}
	return sources
}

// Name returns the feed name
func (s *Source) Name() string {
	return s.name
}

// Type returns "rss"
func (s *Source) Type() string {
	return "rss"
}

// Fetch retrieves recent items from the feed
func (s *Source) Fetch(ctx context.Context) ([]models.DiscoveredItem, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
			return nil, fmt.Errorf("rate limit error: %w", err)
		}
	}

	s.log.Debug().Str("url", s.url).Msg("Fetching RSS feed")

	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed %s: %w", s.name, err)
	}

	items := make([]models.DiscoveredItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := cleanText(item.Title)
		if title == "" {
			continue
		}

		var publishedAt *time.Time
		if item.PublishedParsed != nil {
			if s.now().Sub(*item.PublishedParsed) > s.maxAge {
				continue
			}
			p := *item.PublishedParsed
			publishedAt = &p
		}

		items = append(items, models.DiscoveredItem{
			Title:       title,
			Source:      s.name,
			SourceURL:   item.Link,
			PublishedAt: publishedAt,
		})
	}

	s.log.Info().
		Int("count", len(items)).
		Msg("Fetched RSS items")

	return items, nil
}

// cleanText reduces an HTML fragment to its text with whitespace collapsed
func cleanText(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.Join(strings.Fields(text), " ")
	}
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p, div, li").AppendHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Ensure Source implements source.TrendSource
var _ source.TrendSource = (*Source)(nil)

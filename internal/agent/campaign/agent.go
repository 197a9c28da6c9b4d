// Package campaign runs one campaign: pick a topic, draft posts for it and
// queue them for approval.
package campaign

import (
	"context"
	"fmt"
	"strings"

	"github.com/campaign-agent/internal/agent/discovery"
	"github.com/campaign-agent/internal/ai"
	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/storage"
	"github.com/campaign-agent/pkg/logger"
)

// Mode selects where the campaign topic comes from
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeCustom Mode = "custom"
)

// DefaultPendingLimit is how many pending trends an auto run reads
const DefaultPendingLimit = 5

// ParseMode converts a string into a Mode. An empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeCustom:
		return ModeCustom, nil
	default:
		return "", apperr.InvalidInput("unknown campaign mode %q", s)
	}
}

// Request describes one campaign run
type Request struct {
	Mode      Mode              `json:"mode"`
	Topic     string            `json:"topic,omitempty"`
	Platforms []models.Platform `json:"platforms,omitempty"`
}

// Result is the outcome of a run. Processed is nil when no topic was found.
type Result struct {
	TrendsFound      int     `json:"trendsFound"`
	Processed        *string `json:"processed"`
	ContentGenerated bool    `json:"contentGenerated"`
	ContentIDs       []uint  `json:"contentIds"`
}

// ProviderGate fails when no publishing destination is usable
type ProviderGate interface {
	AssertAvailable() error
}

// Discoverer refreshes the trend store
type Discoverer interface {
	Run(ctx context.Context) (*discovery.Result, error)
}

// Generator drafts posts per platform
type Generator interface {
	Generate(ctx context.Context, req ai.GenerateRequest) ([]ai.GeneratedPost, []ai.PlatformError)
}

// Agent orchestrates campaign runs
type Agent struct {
	gate      ProviderGate
	discovery Discoverer
	trends    storage.TrendStore
	generator Generator
	content   storage.ContentStore
	platforms []models.Platform
	pending   int
	log       *logger.Logger
}

// NewAgent creates a campaign agent. platforms is the target list for auto
// runs and for custom runs that name none; empty means models.DefaultCampaignPlatforms.
func NewAgent(
	gate ProviderGate,
	disc Discoverer,
	trends storage.TrendStore,
	generator Generator,
	content storage.ContentStore,
	platforms []models.Platform,
	log *logger.Logger,
) *Agent {
	if len(platforms) == 0 {
		platforms = models.DefaultCampaignPlatforms
	}
	return &Agent{
		gate:      gate,
		discovery: disc,
		trends:    trends,
		generator: generator,
		content:   content,
		platforms: platforms,
		pending:   DefaultPendingLimit,
		log:       log.WithComponent("campaign"),
	}
}

// SetPendingLimit changes how many pending trends an auto run reads
func (a *Agent) SetPendingLimit(n int) {
	if n > 0 {
		a.pending = n
	}
}

// selected is the topic a run generates for
type selected struct {
	topic       *models.Topic
	trendsFound int
	persisted   bool
}

// Run executes one campaign. Errors before persistence are returned as is;
// draft insert failures are logged and skipped.
func (a *Agent) Run(ctx context.Context, req Request) (*Result, error) {
	if err := a.gate.AssertAvailable(); err != nil {
		a.log.Warn().Err(err).Msg("Campaign refused: no publishing provider configured")
		return nil, err
	}

	platforms, err := a.targetPlatforms(req)
	if err != nil {
		return nil, err
	}

	sel, err := a.selectTopic(ctx, req)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		a.log.Info().Msg("No pending trends, nothing to generate")
		return &Result{TrendsFound: 0, Processed: nil, ContentIDs: []uint{}}, nil
	}

	topic := sel.topic
	log := a.log.WithTopic(topic.ID, topic.Title)
	log.Info().
		Str("mode", string(req.Mode)).
		Int("trends_found", sel.trendsFound).
		Strs("platforms", platformStrings(platforms)).
		Msg("Generating campaign content")

	posts, failures := a.generator.Generate(ctx, ai.GenerateRequest{Topic: topic.Title, Platforms: platforms})
	// a cancelled run is a failure of the whole generation step
	if ctxErr := ctx.Err(); ctxErr != nil && len(posts) == 0 {
		return nil, ctxErr
	}
	for _, f := range failures {
		log.Warn().Err(f.Err).Str("platform", string(f.Platform)).Msg("Platform generation failed")
	}

	ids := a.persist(ctx, topic, sel.persisted, posts)

	if sel.persisted {
		if err := a.trends.MarkProcessed(ctx, topic.ID); err != nil {
			log.Error().Err(err).Msg("Failed to mark topic processed")
		}
	}

	title := topic.Title
	result := &Result{
		TrendsFound:      sel.trendsFound,
		Processed:        &title,
		ContentGenerated: len(ids) > 0,
		ContentIDs:       ids,
	}

	log.Info().
		Int("content_created", len(ids)).
		Int("platform_failures", len(failures)).
		Msg("Campaign completed")

	return result, nil
}

func (a *Agent) selectTopic(ctx context.Context, req Request) (*selected, error) {
	switch req.Mode {
	case ModeCustom:
		title := strings.TrimSpace(req.Topic)
		if title == "" {
			return nil, apperr.InvalidInput("custom campaign requires a topic")
		}
		return &selected{
			topic: &models.Topic{
				Title:  title,
				Source: models.SourceCustomTopic,
				Status: models.TopicStatusPending,
			},
			trendsFound: 1,
		}, nil

	case ModeAuto, "":
		if _, err := a.discovery.Run(ctx); err != nil {
			return nil, fmt.Errorf("trend discovery failed: %w", err)
		}
		pending, err := a.trends.Pending(ctx, a.pending)
		if err != nil {
			return nil, fmt.Errorf("failed to read pending trends: %w", err)
		}
		if len(pending) == 0 {
			return nil, nil
		}
		return &selected{topic: pending[0], trendsFound: len(pending), persisted: true}, nil

	default:
		return nil, apperr.InvalidInput("unknown campaign mode %q", req.Mode)
	}
}

// targetPlatforms applies the platform defaults and validates custom choices
func (a *Agent) targetPlatforms(req Request) ([]models.Platform, error) {
	if req.Mode != ModeCustom || len(req.Platforms) == 0 {
		return a.platforms, nil
	}

	seen := make(map[models.Platform]bool, len(req.Platforms))
	out := make([]models.Platform, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		parsed, err := models.ParsePlatform(string(p))
		if err != nil {
			return nil, apperr.InvalidInput("%v", err)
		}
		if seen[parsed] {
			continue
		}
		seen[parsed] = true
		out = append(out, parsed)
	}
	return out, nil
}

func (a *Agent) persist(ctx context.Context, topic *models.Topic, linked bool, posts []ai.GeneratedPost) []uint {
	ids := make([]uint, 0, len(posts))
	for _, post := range posts {
		draft := models.Draft{
			Platform: post.Platform,
			Title:    post.Title,
			Body:     post.Body,
			Hashtags: post.Hashtags,
			ImageURL: post.ImageURL,
		}
		if linked {
			topicID := topic.ID
			draft.TopicID = &topicID
		}

		id, err := a.content.CreateDraft(ctx, topic.Title, draft)
		if err != nil {
			a.log.Error().
				Err(err).
				Str("platform", string(post.Platform)).
				Str("topic", topic.Title).
				Msg("Failed to save draft, skipping")
			continue
		}
		a.log.WithContentID(id).Info().
			Str("platform", string(post.Platform)).
			Str("title", post.Title).
			Msg("Draft queued for approval")
		ids = append(ids, id)
	}
	return ids
}

func platformStrings(platforms []models.Platform) []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = string(p)
	}
	return out
}

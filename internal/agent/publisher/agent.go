package publisher

import (
	"context"
	"fmt"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/publish"
	"github.com/campaign-agent/internal/storage"
	"github.com/campaign-agent/pkg/logger"
)

// Dispatcher delivers content to its platform
type Dispatcher interface {
	Dispatch(ctx context.Context, content *models.Content) (*publish.Result, error)
}

// Recorder keeps an external log of published content
type Recorder interface {
	RecordPublished(ctx context.Context, content *models.Content) error
}

// Agent handles review actions and publishing of generated content
type Agent struct {
	store      storage.ContentStore
	dispatcher Dispatcher
	tracker    Recorder
	log        *logger.Logger
}

// NewAgent creates a new publisher agent
func NewAgent(store storage.ContentStore, dispatcher Dispatcher, log *logger.Logger) *Agent {
	return &Agent{
		store:      store,
		dispatcher: dispatcher,
		log:        log.WithComponent("publisher"),
	}
}

// SetTracker enables the audit log written after each publish
func (a *Agent) SetTracker(r Recorder) {
	a.tracker = r
}

// Approve approves content and returns its current state. Approving content
// that is no longer awaiting review is a no-op.
func (a *Agent) Approve(ctx context.Context, id uint) (*models.Content, error) {
	if err := a.store.Approve(ctx, id); err != nil {
		return nil, err
	}
	a.log.WithContentID(id).Info().Msg("Content approved")
	return a.store.GetContent(ctx, id)
}

// Reject rejects content and returns its current state
func (a *Agent) Reject(ctx context.Context, id uint) (*models.Content, error) {
	if err := a.store.Reject(ctx, id); err != nil {
		return nil, err
	}
	a.log.WithContentID(id).Info().Msg("Content rejected")
	return a.store.GetContent(ctx, id)
}

// Publish delivers approved content. A failed delivery is recorded on the
// content and leaves it approved so it can be retried.
func (a *Agent) Publish(ctx context.Context, id uint) (*models.Content, error) {
	log := a.log.WithContentID(id)

	content, err := a.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if content.Status != models.ContentStatusApproved {
		return nil, apperr.InvalidState("content %d is %s, only approved content can be published", id, content.Status)
	}

	log.Info().
		Str("platform", string(content.Platform)).
		Str("title", content.Title).
		Msg("Publishing content")

	result, err := a.dispatcher.Dispatch(ctx, content)
	if err != nil {
		if recErr := a.store.RecordPublishFailure(ctx, id, err.Error()); recErr != nil {
			log.Error().Err(recErr).Msg("Failed to record publish failure")
		}
		log.Error().Err(err).Msg("Failed to publish content")
		return nil, err
	}

	if err := a.store.Publish(ctx, id, result.URL); err != nil {
		return nil, err
	}

	published, err := a.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.tracker != nil {
		if err := a.tracker.RecordPublished(ctx, published); err != nil {
			log.Warn().Err(err).Msg("Failed to record publish in tracker")
		}
	}

	log.Info().
		Str("platform", string(published.Platform)).
		Str("url", published.PublishedURL).
		Msg("Content published successfully")

	return published, nil
}

// BatchResult summarizes a PublishApproved run
type BatchResult struct {
	Attempted int
	Published int
	Errors    []error
}

// PublishApproved publishes every approved item, collecting per-item errors
func (a *Agent) PublishApproved(ctx context.Context) (*BatchResult, error) {
	approved, err := a.store.ListByStatus(ctx, models.ContentStatusApproved, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved content: %w", err)
	}

	result := &BatchResult{Attempted: len(approved)}
	for _, content := range approved {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			break
		}
		if _, err := a.Publish(ctx, content.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("content %d: %w", content.ID, err))
			continue
		}
		result.Published++
	}

	a.log.Info().
		Int("attempted", result.Attempted).
		Int("published", result.Published).
		Int("failed", len(result.Errors)).
		Msg("Approved content publish run finished")

	return result, nil
}

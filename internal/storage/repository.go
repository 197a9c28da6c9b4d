package storage

import (
	"context"

	"github.com/campaign-agent/internal/models"
)

// TrendStore is a deduplicated queue of discovered topics
type TrendStore interface {
	// UpsertDiscovered inserts items whose normalized title has no pending row yet.
	// Existing rows are never updated; per-item failures are logged and skipped.
	UpsertDiscovered(ctx context.Context, items []models.DiscoveredItem) (int, error)
	Pending(ctx context.Context, limit int) ([]*models.Topic, error)
	MarkProcessed(ctx context.Context, id uint) error
	GetTopic(ctx context.Context, id uint) (*models.Topic, error)
	ListTopics(ctx context.Context, filter TopicFilter) ([]*models.Topic, error)
}

// ContentStore records generated posts and enforces their status transitions
type ContentStore interface {
	CreateDraft(ctx context.Context, topicTitle string, draft models.Draft) (uint, error)
	GetContent(ctx context.Context, id uint) (*models.Content, error)
	Approve(ctx context.Context, id uint) error
	Reject(ctx context.Context, id uint) error
	Publish(ctx context.Context, id uint, publishedURL string) error
	RecordPublishFailure(ctx context.Context, id uint, message string) error
	ListByStatus(ctx context.Context, status models.ContentStatus, limit int) ([]*models.Content, error)
}

// Repository is the full persistence surface
type Repository interface {
	TrendStore
	ContentStore

	Close() error
	Migrate() error
}

// TopicFilter defines filtering options for topics
type TopicFilter struct {
	Status *models.TopicStatus
	Source *string
	Limit  int
	Offset int
}

// DefaultTopicFilter returns a filter with sensible defaults
func DefaultTopicFilter() TopicFilter {
	return TopicFilter{
		Limit: 50,
	}
}

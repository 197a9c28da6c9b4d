package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/storage"
	"github.com/campaign-agent/pkg/logger"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

// Option configures a Repository
type Option func(*Repository)

// WithClock overrides the time source used for status timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New creates a new SQLite repository
func New(dsn string, log *logger.Logger, opts ...Option) (*Repository, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r := &Repository{
		db:  db,
		log: log.WithComponent("sqlite"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Topic{},
		&models.Content{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Topic operations

func (r *Repository) UpsertDiscovered(ctx context.Context, items []models.DiscoveredItem) (int, error) {
	inserted := 0
	for _, item := range items {
		ok, err := r.insertIfAbsent(ctx, item)
		if err != nil {
			r.log.Warn().
				Err(err).
				Str("title", item.Title).
				Str("source", item.Source).
				Msg("Failed to upsert discovered topic, skipping")
			continue
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// insertIfAbsent reports whether a new row was written. Only pending rows
// block an insert, so a processed topic that trends again is queued anew.
func (r *Repository) insertIfAbsent(ctx context.Context, item models.DiscoveredItem) (bool, error) {
	normalized := models.NormalizeTitle(item.Title)
	if normalized == "" {
		return false, errors.New("empty title")
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Topic{}).
		Where("normalized_title = ? AND status = ?", normalized, models.TopicStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	topic := &models.Topic{
		Title:           strings.TrimSpace(item.Title),
		NormalizedTitle: normalized,
		Source:          item.Source,
		SourceURL:       item.SourceURL,
		Status:          models.TopicStatusPending,
		DiscoveredAt:    r.now(),
	}
	if err := r.db.WithContext(ctx).Create(topic).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) Pending(ctx context.Context, limit int) ([]*models.Topic, error) {
	var topics []*models.Topic
	query := r.db.WithContext(ctx).
		Where("status = ?", models.TopicStatusPending).
		Order("discovered_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *Repository) MarkProcessed(ctx context.Context, id uint) error {
	topic, err := r.GetTopic(ctx, id)
	if err != nil {
		return err
	}
	if !topic.IsPending() {
		return nil
	}

	return r.db.WithContext(ctx).
		Model(&models.Topic{}).
		Where("id = ? AND status = ?", id, models.TopicStatusPending).
		Updates(map[string]interface{}{
			"status":       models.TopicStatusProcessed,
			"processed_at": r.now(),
		}).Error
}

func (r *Repository) GetTopic(ctx context.Context, id uint) (*models.Topic, error) {
	var topic models.Topic
	if err := r.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("topic %d not found", id)
		}
		return nil, err
	}
	return &topic, nil
}

func (r *Repository) ListTopics(ctx context.Context, filter storage.TopicFilter) ([]*models.Topic, error) {
	var topics []*models.Topic
	query := r.db.WithContext(ctx).Model(&models.Topic{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}

	query = query.Order("discovered_at DESC").Order("id DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// Content operations

func (r *Repository) CreateDraft(ctx context.Context, topicTitle string, draft models.Draft) (uint, error) {
	if _, err := models.ParsePlatform(string(draft.Platform)); err != nil {
		return 0, apperr.InvalidInput("%v", err)
	}
	if strings.TrimSpace(draft.Body) == "" {
		return 0, apperr.InvalidInput("content body is empty")
	}

	content := &models.Content{
		TopicID:    draft.TopicID,
		TopicTitle: topicTitle,
		Platform:   draft.Platform,
		Title:      draft.Title,
		Body:       draft.Body,
		Hashtags:   draft.Hashtags,
		ImageURL:   draft.ImageURL,
		Status:     models.ContentStatusPendingApproval,
		CreatedAt:  r.now(),
	}
	if err := r.db.WithContext(ctx).Create(content).Error; err != nil {
		return 0, err
	}
	return content.ID, nil
}

func (r *Repository) GetContent(ctx context.Context, id uint) (*models.Content, error) {
	var content models.Content
	if err := r.db.WithContext(ctx).First(&content, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("content %d not found", id)
		}
		return nil, err
	}
	return &content, nil
}

// Approve moves pending content to approved. Content already past review is left
// untouched and reported as success, so a retried approval is harmless.
func (r *Repository) Approve(ctx context.Context, id uint) error {
	return r.review(ctx, id, models.ContentStatusApproved, "approved_at")
}

// Reject is the terminal counterpart of Approve with the same idempotency rule.
func (r *Repository) Reject(ctx context.Context, id uint) error {
	return r.review(ctx, id, models.ContentStatusRejected, "rejected_at")
}

func (r *Repository) review(ctx context.Context, id uint, to models.ContentStatus, stampColumn string) error {
	content, err := r.GetContent(ctx, id)
	if err != nil {
		return err
	}
	if !content.CanApprove() {
		r.log.Debug().
			Uint("content_id", id).
			Str("status", string(content.Status)).
			Str("requested", string(to)).
			Msg("Content already reviewed, ignoring")
		return nil
	}

	return r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ? AND status IN ?", id, []models.ContentStatus{
			models.ContentStatusPendingApproval,
			models.ContentStatusDraft,
		}).
		Updates(map[string]interface{}{
			"status":    to,
			stampColumn: r.now(),
		}).Error
}

// Publish marks approved content as published. Any other current status is an
// InvalidState error and the row is not modified.
func (r *Repository) Publish(ctx context.Context, id uint, publishedURL string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ? AND status = ?", id, models.ContentStatusApproved).
		Updates(map[string]interface{}{
			"status":             models.ContentStatusPublished,
			"published_at":       r.now(),
			"published_url":      publishedURL,
			"last_publish_error": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	content, err := r.GetContent(ctx, id)
	if err != nil {
		return err
	}
	return apperr.InvalidState("content %d is %s, only approved content can be published", id, content.Status)
}

func (r *Repository) RecordPublishFailure(ctx context.Context, id uint, message string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ?", id).
		Update("last_publish_error", message)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("content %d not found", id)
	}
	return nil
}

// ListByStatus returns content newest-first by the timestamp of the transition
// that put it in status.
func (r *Repository) ListByStatus(ctx context.Context, status models.ContentStatus, limit int) ([]*models.Content, error) {
	orderCol := "created_at"
	switch status {
	case models.ContentStatusApproved:
		orderCol = "approved_at"
	case models.ContentStatusPublished:
		orderCol = "published_at"
	case models.ContentStatusRejected:
		orderCol = "rejected_at"
	}

	var contents []*models.Content
	query := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order(orderCol + " DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&contents).Error; err != nil {
		return nil, err
	}
	return contents, nil
}

// Ensure Repository implements storage.Repository
var _ storage.Repository = (*Repository)(nil)

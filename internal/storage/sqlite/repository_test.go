package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/storage"
	"github.com/campaign-agent/pkg/logger"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRepo(t *testing.T) (*Repository, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo, err := New(filepath.Join(t.TempDir(), "campaign.db"), logger.Nop(), WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })
	return repo, clock
}

func TestUpsertDiscoveredDedupsByNormalizedTitle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.UpsertDiscovered(ctx, []models.DiscoveredItem{
		{Title: "AI Regulation", Source: "Hacker News"},
		{Title: "  ai regulation ", Source: "Google Trends"},
		{Title: "Quantum Chips", Source: "Google Trends"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.UpsertDiscovered(ctx, []models.DiscoveredItem{{Title: "AI REGULATION", Source: "Other"}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pending, err := repo.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	var regulation []*models.Topic
	for _, p := range pending {
		if p.NormalizedTitle == "ai regulation" {
			regulation = append(regulation, p)
		}
	}
	require.Len(t, regulation, 1)
	assert.Equal(t, "AI Regulation", regulation[0].Title)
	assert.Equal(t, "Hacker News", regulation[0].Source)
}

func TestUpsertDiscoveredRequeuesProcessedTopic(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.UpsertDiscovered(ctx, []models.DiscoveredItem{{Title: "Solar Eclipse", Source: "feed"}})
	require.NoError(t, err)
	pending, err := repo.Pending(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessed(ctx, pending[0].ID))

	n, err := repo.UpsertDiscovered(ctx, []models.DiscoveredItem{{Title: "solar eclipse", Source: "feed"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err = repo.Pending(ctx, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.NotEqual(t, models.TopicStatusProcessed, pending[0].Status)
}

func TestUpsertDiscoveredSkipsBadItems(t *testing.T) {
	repo, _ := newTestRepo(t)

	n, err := repo.UpsertDiscovered(context.Background(), []models.DiscoveredItem{
		{Title: "   ", Source: "feed"},
		{Title: "Valid topic", Source: "feed"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPendingNewestFirstAndLimited(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		_, err := repo.UpsertDiscovered(ctx, []models.DiscoveredItem{{Title: title, Source: "feed"}})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	pending, err := repo.Pending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "third", pending[0].Title)
	assert.Equal(t, "second", pending[1].Title)
}

func TestMarkProcessedIsIdempotent(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.UpsertDiscovered(ctx, []models.DiscoveredItem{{Title: "topic", Source: "feed"}})
	require.NoError(t, err)
	pending, err := repo.Pending(ctx, 1)
	require.NoError(t, err)
	id := pending[0].ID

	require.NoError(t, repo.MarkProcessed(ctx, id))
	first, err := repo.GetTopic(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TopicStatusProcessed, first.Status)
	require.NotNil(t, first.ProcessedAt)

	clock.Advance(time.Hour)
	require.NoError(t, repo.MarkProcessed(ctx, id))
	second, err := repo.GetTopic(ctx, id)
	require.NoError(t, err)
	assert.True(t, first.ProcessedAt.Equal(*second.ProcessedAt))

	pending, err = repo.Pending(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = repo.MarkProcessed(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListTopicsFiltersByStatus(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.UpsertDiscovered(ctx, []models.DiscoveredItem{
		{Title: "one", Source: "feed"},
		{Title: "two", Source: "feed"},
	})
	require.NoError(t, err)
	pending, err := repo.Pending(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessed(ctx, pending[0].ID))

	status := models.TopicStatusProcessed
	filter := storage.DefaultTopicFilter()
	filter.Status = &status
	topics, err := repo.ListTopics(ctx, filter)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, pending[0].ID, topics[0].ID)
}

func createDraft(t *testing.T, repo *Repository, platform models.Platform) uint {
	t.Helper()
	id, err := repo.CreateDraft(context.Background(), "AI Regulation", models.Draft{
		Platform: platform,
		Title:    "What the new AI rules mean",
		Body:     "Body text",
		Hashtags: []string{"#AI", "#Policy"},
	})
	require.NoError(t, err)
	return id
}

func TestCreateDraftStartsPendingApproval(t *testing.T) {
	repo, _ := newTestRepo(t)

	id := createDraft(t, repo, models.PlatformWeChat)
	content, err := repo.GetContent(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, models.ContentStatusPendingApproval, content.Status)
	assert.Equal(t, "AI Regulation", content.TopicTitle)
	assert.Equal(t, models.StringSlice{"#AI", "#Policy"}, content.Hashtags)
	assert.Nil(t, content.ApprovedAt)
	assert.Nil(t, content.PublishedAt)
}

func TestCreateDraftRejectsUnknownPlatform(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.CreateDraft(context.Background(), "t", models.Draft{Platform: "myspace", Body: "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestApproveTwiceKeepsApprovedAt(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()
	id := createDraft(t, repo, models.PlatformWeChat)

	require.NoError(t, repo.Approve(ctx, id))
	first, err := repo.GetContent(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, first.ApprovedAt)
	assert.Equal(t, models.ContentStatusApproved, first.Status)

	clock.Advance(time.Hour)
	require.NoError(t, repo.Approve(ctx, id))
	second, err := repo.GetContent(ctx, id)
	require.NoError(t, err)
	assert.True(t, first.ApprovedAt.Equal(*second.ApprovedAt))
}

func TestApproveUnknownIsNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	assert.ErrorIs(t, repo.Approve(context.Background(), 42), apperr.ErrNotFound)
	assert.ErrorIs(t, repo.Reject(context.Background(), 42), apperr.ErrNotFound)
}

func TestRejectIsTerminal(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	id := createDraft(t, repo, models.PlatformXHS)

	require.NoError(t, repo.Reject(ctx, id))
	// approving a rejected item is a no-op success
	require.NoError(t, repo.Approve(ctx, id))

	content, err := repo.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusRejected, content.Status)
	assert.Nil(t, content.ApprovedAt)
	assert.NotNil(t, content.RejectedAt)
}

func TestPublishRequiresApproved(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	pendingID := createDraft(t, repo, models.PlatformWeChat)
	err := repo.Publish(ctx, pendingID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	content, err := repo.GetContent(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusPendingApproval, content.Status)

	rejectedID := createDraft(t, repo, models.PlatformWeChat)
	require.NoError(t, repo.Reject(ctx, rejectedID))
	assert.ErrorIs(t, repo.Publish(ctx, rejectedID, ""), apperr.ErrInvalidState)

	assert.ErrorIs(t, repo.Publish(ctx, 999, ""), apperr.ErrNotFound)
}

func TestPublishFullLifecycle(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()
	id := createDraft(t, repo, models.PlatformGoogleDocs)

	require.NoError(t, repo.Approve(ctx, id))
	require.NoError(t, repo.RecordPublishFailure(ctx, id, "timeout"))
	clock.Advance(time.Minute)
	require.NoError(t, repo.Publish(ctx, id, "https://docs.google.com/document/d/abc/edit"))

	content, err := repo.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusPublished, content.Status)
	assert.Equal(t, "https://docs.google.com/document/d/abc/edit", content.PublishedURL)
	assert.Empty(t, content.LastPublishError)
	require.NotNil(t, content.ApprovedAt)
	require.NotNil(t, content.PublishedAt)
	assert.True(t, content.PublishedAt.After(*content.ApprovedAt))

	// published is terminal
	assert.ErrorIs(t, repo.Publish(ctx, id, ""), apperr.ErrInvalidState)
}

func TestListByStatusOrdersByTransitionTime(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	older := createDraft(t, repo, models.PlatformWeChat)
	clock.Advance(time.Minute)
	newer := createDraft(t, repo, models.PlatformXHS)

	pending, err := repo.ListByStatus(ctx, models.ContentStatusPendingApproval, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, newer, pending[0].ID)

	// approve the older draft last so it sorts first among approved
	clock.Advance(time.Minute)
	require.NoError(t, repo.Approve(ctx, newer))
	clock.Advance(time.Minute)
	require.NoError(t, repo.Approve(ctx, older))

	approved, err := repo.ListByStatus(ctx, models.ContentStatusApproved, 10)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	assert.Equal(t, older, approved[0].ID)
	assert.Equal(t, newer, approved[1].ID)
}

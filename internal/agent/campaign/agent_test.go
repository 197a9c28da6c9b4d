package campaign

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaign-agent/internal/agent/discovery"
	"github.com/campaign-agent/internal/ai"
	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/storage"
	"github.com/campaign-agent/internal/storage/sqlite"
	"github.com/campaign-agent/pkg/logger"
)

type gateFunc func() error

func (f gateFunc) AssertAvailable() error { return f() }

func openGate() ProviderGate { return gateFunc(func() error { return nil }) }

type fakeDiscovery struct {
	store storage.TrendStore
	items []models.DiscoveredItem
	err   error
	runs  int
}

func (d *fakeDiscovery) Run(ctx context.Context) (*discovery.Result, error) {
	d.runs++
	if d.err != nil {
		return nil, d.err
	}
	n, err := d.store.UpsertDiscovered(ctx, d.items)
	if err != nil {
		return nil, err
	}
	return &discovery.Result{ItemsFound: len(d.items), Inserted: n}, nil
}

type fakeGenerator struct {
	fail     map[models.Platform]error
	requests []ai.GenerateRequest
}

func (g *fakeGenerator) Generate(ctx context.Context, req ai.GenerateRequest) ([]ai.GeneratedPost, []ai.PlatformError) {
	g.requests = append(g.requests, req)
	var posts []ai.GeneratedPost
	var failures []ai.PlatformError
	for _, p := range req.Platforms {
		if err := g.fail[p]; err != nil {
			failures = append(failures, ai.PlatformError{Platform: p, Err: err})
			continue
		}
		posts = append(posts, ai.GeneratedPost{
			Platform: p,
			Title:    "Why " + req.Topic + " matters",
			Body:     "body for " + string(p),
			Hashtags: []string{"#trend"},
		})
	}
	return posts, failures
}

type fixture struct {
	store     *sqlite.Repository
	discovery *fakeDiscovery
	generator *fakeGenerator
	agent     *Agent
}

func newFixture(t *testing.T, gate ProviderGate) *fixture {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "campaign.db"), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:     store,
		discovery: &fakeDiscovery{store: store},
		generator: &fakeGenerator{fail: map[models.Platform]error{}},
	}
	f.agent = NewAgent(gate, f.discovery, store, f.generator, store, nil, logger.Nop())
	return f
}

func (f *fixture) contentRows(t *testing.T) []*models.Content {
	t.Helper()
	rows, err := f.store.ListByStatus(context.Background(), models.ContentStatusPendingApproval, 0)
	require.NoError(t, err)
	return rows
}

func TestGateFailsBeforeAnyWork(t *testing.T) {
	gateErr := apperr.NoProviderConfigured("no publishing provider configured: Xiaohongshu (missing cookie)")
	f := newFixture(t, gateFunc(func() error { return gateErr }))

	_, err := f.agent.Run(context.Background(), Request{Mode: ModeAuto})
	assert.ErrorIs(t, err, apperr.ErrNoProviderConfigured)
	assert.Zero(t, f.discovery.runs)
	assert.Empty(t, f.generator.requests)

	_, err = f.agent.Run(context.Background(), Request{Mode: ModeCustom, Topic: "AI Regulation"})
	assert.ErrorIs(t, err, apperr.ErrNoProviderConfigured)
	assert.Empty(t, f.generator.requests)
}

func TestAutoWithNoTrends(t *testing.T) {
	f := newFixture(t, openGate())

	result, err := f.agent.Run(context.Background(), Request{Mode: ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TrendsFound)
	assert.Nil(t, result.Processed)
	assert.False(t, result.ContentGenerated)
	assert.Equal(t, 1, f.discovery.runs)
	assert.Empty(t, f.generator.requests)
	assert.Empty(t, f.contentRows(t))
}

func TestAutoUsesNewestPendingTopic(t *testing.T) {
	f := newFixture(t, openGate())
	f.discovery.items = []models.DiscoveredItem{{Title: "Quantum Chips", Source: models.SourceGoogleTrends}}

	result, err := f.agent.Run(context.Background(), Request{Mode: ModeAuto})
	require.NoError(t, err)

	require.NotNil(t, result.Processed)
	assert.Equal(t, "Quantum Chips", *result.Processed)
	assert.Equal(t, 1, result.TrendsFound)
	assert.True(t, result.ContentGenerated)
	assert.Len(t, result.ContentIDs, 2)

	require.Len(t, f.generator.requests, 1)
	assert.Equal(t, []models.Platform{models.PlatformWeChat, models.PlatformXHS}, f.generator.requests[0].Platforms)

	rows := f.contentRows(t)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.NotNil(t, row.TopicID)
		assert.Equal(t, "Quantum Chips", row.TopicTitle)
	}

	pending, err := f.store.Pending(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCustomTopic(t *testing.T) {
	f := newFixture(t, openGate())

	result, err := f.agent.Run(context.Background(), Request{Mode: ModeCustom, Topic: "  AI Regulation "})
	require.NoError(t, err)

	require.NotNil(t, result.Processed)
	assert.Equal(t, "AI Regulation", *result.Processed)
	assert.Equal(t, 1, result.TrendsFound)
	assert.True(t, result.ContentGenerated)
	assert.Zero(t, f.discovery.runs)

	rows := f.contentRows(t)
	require.NotEmpty(t, rows)
	for _, row := range rows {
		assert.Equal(t, models.ContentStatusPendingApproval, row.Status)
		assert.Equal(t, "Why AI Regulation matters", row.Title)
		assert.Nil(t, row.TopicID)
	}

	topics, err := f.store.ListTopics(context.Background(), storage.DefaultTopicFilter())
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestCustomTopicBlank(t *testing.T) {
	f := newFixture(t, openGate())

	_, err := f.agent.Run(context.Background(), Request{Mode: ModeCustom, Topic: "   "})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, f.generator.requests)
}

func TestCustomPlatforms(t *testing.T) {
	f := newFixture(t, openGate())

	_, err := f.agent.Run(context.Background(), Request{
		Mode:      ModeCustom,
		Topic:     "AI Regulation",
		Platforms: []models.Platform{"googledocs", "GoogleDocs"},
	})
	require.NoError(t, err)
	require.Len(t, f.generator.requests, 1)
	assert.Equal(t, []models.Platform{models.PlatformGoogleDocs}, f.generator.requests[0].Platforms)

	_, err = f.agent.Run(context.Background(), Request{
		Mode:      ModeCustom,
		Topic:     "AI Regulation",
		Platforms: []models.Platform{"myspace"},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestPartialGenerationFailure(t *testing.T) {
	f := newFixture(t, openGate())
	f.discovery.items = []models.DiscoveredItem{{Title: "Solar Eclipse", Source: "feed"}}
	f.generator.fail[models.PlatformXHS] = errors.New("unparseable JSON")

	result, err := f.agent.Run(context.Background(), Request{Mode: ModeAuto})
	require.NoError(t, err)
	assert.True(t, result.ContentGenerated)

	rows := f.contentRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.PlatformWeChat, rows[0].Platform)

	topics, err := f.store.ListTopics(context.Background(), storage.DefaultTopicFilter())
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, models.TopicStatusProcessed, topics[0].Status)
}

func TestAllPlatformsFailStillMarksProcessed(t *testing.T) {
	f := newFixture(t, openGate())
	f.discovery.items = []models.DiscoveredItem{{Title: "Solar Eclipse", Source: "feed"}}
	f.generator.fail[models.PlatformWeChat] = errors.New("timeout")
	f.generator.fail[models.PlatformXHS] = errors.New("timeout")

	result, err := f.agent.Run(context.Background(), Request{Mode: ModeAuto})
	require.NoError(t, err)
	assert.False(t, result.ContentGenerated)
	require.NotNil(t, result.Processed)
	assert.Empty(t, f.contentRows(t))

	pending, err := f.store.Pending(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDiscoveryFailurePropagates(t *testing.T) {
	f := newFixture(t, openGate())
	cause := errors.New("disk full")
	f.discovery.err = cause

	_, err := f.agent.Run(context.Background(), Request{Mode: ModeAuto})
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, f.generator.requests)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	m, err = ParseMode("Custom")
	require.NoError(t, err)
	assert.Equal(t, ModeCustom, m)

	_, err = ParseMode("manual")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCancelledGenerationPropagates(t *testing.T) {
	f := newFixture(t, openGate())
	f.generator.fail[models.PlatformWeChat] = context.Canceled
	f.generator.fail[models.PlatformXHS] = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.agent.Run(ctx, Request{Mode: ModeCustom, Topic: "AI Regulation"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.contentRows(t))
}

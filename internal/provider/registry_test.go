package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/pkg/logger"
)

type mutableConfig struct {
	cfg   config.ProvidersConfig
	reads int
}

func (m *mutableConfig) Source() ConfigSource {
	return func() config.ProvidersConfig {
		m.reads++
		return m.cfg
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type testerFunc func(ctx context.Context) error

func (f testerFunc) Test(ctx context.Context) error { return f(ctx) }

func find(t *testing.T, providers []models.PublishingProvider, platform models.Platform) models.PublishingProvider {
	t.Helper()
	for _, p := range providers {
		if p.Platform == platform {
			return p
		}
	}
	t.Fatalf("provider %s not listed", platform)
	return models.PublishingProvider{}
}

func TestListAllComputesMissingKeys(t *testing.T) {
	r := NewRegistry(StaticConfig(config.ProvidersConfig{
		WeChat:     config.WeChatConfig{AppID: "wx1"},
		GoogleDocs: config.GoogleDocsConfig{CredentialsFile: "/etc/sa.json", FolderID: "f1"},
	}), logger.Nop())

	all := r.ListAll()
	require.Len(t, all, 3)

	wechat := find(t, all, models.PlatformWeChat)
	assert.False(t, wechat.Configured)
	assert.Equal(t, []string{"app_id", "app_secret"}, wechat.RequiredKeys)
	assert.Equal(t, []string{"app_secret"}, wechat.MissingKeys)

	xhs := find(t, all, models.PlatformXHS)
	assert.False(t, xhs.Configured)
	assert.Equal(t, []string{"cookie"}, xhs.MissingKeys)

	docs := find(t, all, models.PlatformGoogleDocs)
	assert.True(t, docs.Configured)
	assert.Empty(t, docs.MissingKeys)

	for _, p := range all {
		assert.Equal(t, len(p.MissingKeys) == 0, p.Configured, p.Name)
	}

	available := r.Available()
	require.Len(t, available, 1)
	assert.Equal(t, models.PlatformGoogleDocs, available[0].Platform)
	assert.True(t, r.IsAvailable(models.PlatformGoogleDocs))
	assert.False(t, r.IsAvailable(models.PlatformXHS))
}

func TestWhitespaceIsMissing(t *testing.T) {
	r := NewRegistry(StaticConfig(config.ProvidersConfig{XHS: config.XHSConfig{Cookie: "   "}}), logger.Nop())
	assert.False(t, find(t, r.ListAll(), models.PlatformXHS).Configured)
}

func TestAssertAvailableFlipsWithOneField(t *testing.T) {
	cfg := &mutableConfig{}
	r := NewRegistry(cfg.Source(), logger.Nop(), WithTTL(0))

	err := r.AssertAvailable()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNoProviderConfigured)
	assert.Contains(t, err.Error(), "WeChat Official Account (missing app_id, app_secret)")
	assert.Contains(t, err.Error(), "Xiaohongshu (missing cookie)")
	assert.Contains(t, err.Error(), "Google Docs (missing credentials, folder_id)")

	cfg.cfg.XHS.Cookie = "session=abc"
	assert.NoError(t, r.AssertAvailable())
}

func TestCacheIsTimeBased(t *testing.T) {
	cfg := &mutableConfig{}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRegistry(cfg.Source(), logger.Nop(), WithClock(clock.Now), WithTTL(time.Minute))

	require.Error(t, r.AssertAvailable())

	// config fixed, but the cached result is still served within the TTL
	cfg.cfg.XHS.Cookie = "session=abc"
	clock.t = clock.t.Add(59 * time.Second)
	assert.Error(t, r.AssertAvailable())
	assert.Equal(t, 1, cfg.reads)

	clock.t = clock.t.Add(time.Second)
	assert.NoError(t, r.AssertAvailable())
	assert.Equal(t, 2, cfg.reads)
}

func TestListAllReturnsCopies(t *testing.T) {
	r := NewRegistry(StaticConfig(config.ProvidersConfig{}), logger.Nop())

	first := r.ListAll()
	first[0].MissingKeys[0] = "tampered"

	second := r.ListAll()
	assert.Equal(t, "app_id", second[0].MissingKeys[0])
}

func TestTestAll(t *testing.T) {
	docsErr := errors.New("permission denied")
	r := NewRegistry(StaticConfig(config.ProvidersConfig{
		WeChat:     config.WeChatConfig{AppID: "wx", AppSecret: "s"},
		GoogleDocs: config.GoogleDocsConfig{CredentialsJSON: "{}", FolderID: "f"},
	}), logger.Nop(), WithTester(models.PlatformGoogleDocs, testerFunc(func(ctx context.Context) error {
		return docsErr
	})))

	results := r.TestAll(context.Background())
	require.Len(t, results, 3)

	byName := map[string]models.ProviderTestResult{}
	for _, res := range results {
		byName[res.Provider] = res
	}

	wechat := byName["WeChat Official Account"]
	assert.False(t, wechat.Tested)
	assert.True(t, wechat.Working)

	xhs := byName["Xiaohongshu"]
	assert.False(t, xhs.Tested)
	assert.False(t, xhs.Working)
	assert.Contains(t, xhs.Error, "missing cookie")

	docs := byName["Google Docs"]
	assert.True(t, docs.Tested)
	assert.False(t, docs.Working)
	assert.Equal(t, "permission denied", docs.Error)
}

package wechat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/provider"
	"github.com/campaign-agent/pkg/logger"
)

func TestPublishRequiresBothCredentials(t *testing.T) {
	p := New(provider.StaticConfig(config.ProvidersConfig{
		WeChat: config.WeChatConfig{AppID: "wx1"},
	}), logger.Nop())

	assert.False(t, p.IsConfigured())
	_, err := p.Publish(context.Background(), &models.Content{ID: 1})
	assert.ErrorIs(t, err, apperr.ErrProviderNotConfigured)
}

func TestPublishAcknowledgesWithoutURL(t *testing.T) {
	p := New(provider.StaticConfig(config.ProvidersConfig{
		WeChat: config.WeChatConfig{AppID: "wx1", AppSecret: "secret"},
	}), logger.Nop())

	assert.Equal(t, models.PlatformWeChat, p.Platform())
	res, err := p.Publish(context.Background(), &models.Content{ID: 1, Title: "t"})
	require.NoError(t, err)
	assert.Empty(t, res.URL)
}

// Package wechat is the WeChat Official Account destination.
//
// Delivery is a manual handoff: once credentials are present the content is
// acknowledged as published with no URL and an operator posts it.
// TODO: replace with the draft/add + freepublish/submit API calls.
package wechat

import (
	"context"
	"strings"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/provider"
	"github.com/campaign-agent/internal/publish"
	"github.com/campaign-agent/pkg/logger"
)

// Publisher implements publish.Publisher for WeChat
type Publisher struct {
	source provider.ConfigSource
	log    *logger.Logger
}

// New creates a WeChat publisher reading credentials from source
func New(source provider.ConfigSource, log *logger.Logger) *Publisher {
	return &Publisher{
		source: source,
		log:    log.WithComponent("wechat"),
	}
}

func (p *Publisher) Platform() models.Platform {
	return models.PlatformWeChat
}

// IsConfigured requires both app id and secret
func (p *Publisher) IsConfigured() bool {
	cfg := p.source().WeChat
	return strings.TrimSpace(cfg.AppID) != "" && strings.TrimSpace(cfg.AppSecret) != ""
}

func (p *Publisher) Publish(ctx context.Context, content *models.Content) (*publish.Result, error) {
	if !p.IsConfigured() {
		return nil, apperr.ProviderNotConfigured("wechat app_id and app_secret are required")
	}

	p.log.Warn().
		Uint("content_id", content.ID).
		Str("title", content.Title).
		Msg("WeChat delivery is a manual handoff, marking as published without a URL")

	return &publish.Result{}, nil
}

var _ publish.Publisher = (*Publisher)(nil)

// Package xhs is the Xiaohongshu destination. Like wechat, delivery is a
// credential-gated manual handoff that returns no URL.
package xhs

import (
	"context"
	"strings"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/provider"
	"github.com/campaign-agent/internal/publish"
	"github.com/campaign-agent/pkg/logger"
)

// Publisher implements publish.Publisher for Xiaohongshu
type Publisher struct {
	source provider.ConfigSource
	log    *logger.Logger
}

// New creates an XHS publisher reading the session cookie from source
func New(source provider.ConfigSource, log *logger.Logger) *Publisher {
	return &Publisher{
		source: source,
		log:    log.WithComponent("xhs"),
	}
}

func (p *Publisher) Platform() models.Platform {
	return models.PlatformXHS
}

func (p *Publisher) IsConfigured() bool {
	return strings.TrimSpace(p.source().XHS.Cookie) != ""
}

func (p *Publisher) Publish(ctx context.Context, content *models.Content) (*publish.Result, error) {
	if !p.IsConfigured() {
		return nil, apperr.ProviderNotConfigured("xhs cookie is required")
	}

	p.log.Warn().
		Uint("content_id", content.ID).
		Str("title", content.Title).
		Int("hashtags", len(content.Hashtags)).
		Msg("Xiaohongshu delivery is a manual handoff, marking as published without a URL")

	return &publish.Result{}, nil
}

var _ publish.Publisher = (*Publisher)(nil)

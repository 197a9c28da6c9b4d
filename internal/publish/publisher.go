// Package publish delivers approved content to its destination platform.
package publish

import (
	"context"
	"errors"
	"time"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/pkg/logger"
)

// Result is the outcome of a successful delivery. URL is empty for
// destinations that do not return a location.
type Result struct {
	URL        string
	ExternalID string
}

// Publisher delivers content to one platform
type Publisher interface {
	Platform() models.Platform
	IsConfigured() bool
	Publish(ctx context.Context, content *models.Content) (*Result, error)
}

// Dispatcher routes content to the publisher registered for its platform
type Dispatcher struct {
	publishers map[models.Platform]Publisher
	timeout    time.Duration
	log        *logger.Logger
}

// NewDispatcher creates a dispatcher. timeout bounds each publish call; zero means no bound.
func NewDispatcher(timeout time.Duration, log *logger.Logger, publishers ...Publisher) *Dispatcher {
	d := &Dispatcher{
		publishers: make(map[models.Platform]Publisher, len(publishers)),
		timeout:    timeout,
		log:        log.WithComponent("dispatcher"),
	}
	for _, p := range publishers {
		d.Register(p)
	}
	return d
}

// Register adds or replaces the publisher for p.Platform()
func (d *Dispatcher) Register(p Publisher) {
	d.publishers[p.Platform()] = p
}

// Dispatch delivers content. It never reports success unless the publisher did.
func (d *Dispatcher) Dispatch(ctx context.Context, content *models.Content) (*Result, error) {
	p, ok := d.publishers[content.Platform]
	if !ok {
		return nil, apperr.InvalidInput("no publisher for platform %q", content.Platform)
	}
	if !p.IsConfigured() {
		return nil, apperr.ProviderNotConfigured("%s publisher is not configured", content.Platform)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	log := d.log.WithContentID(content.ID).WithPlatform(string(content.Platform))
	log.Info().Str("title", content.Title).Msg("Dispatching content")

	result, err := p.Publish(ctx, content)
	if err != nil {
		log.Error().Err(err).Msg("Publish failed")
		// configuration errors raised by the publisher itself keep their kind
		if apperr.KindOf(err) != "" {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Upstream(err, "publish to %s timed out after %s", content.Platform, d.timeout)
		}
		return nil, apperr.Upstream(err, "publish to %s", content.Platform)
	}
	if result == nil {
		result = &Result{}
	}

	log.Info().Str("url", result.URL).Msg("Content dispatched")
	return result, nil
}

// Package provider tracks which publishing destinations have credentials and
// gates campaign runs on at least one of them being usable.
package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/pkg/logger"
)

// DefaultTTL is how long a computed provider list is served from cache
const DefaultTTL = 60 * time.Second

// ConfigSource returns the current provider credentials
type ConfigSource func() config.ProvidersConfig

// StaticConfig wraps a fixed configuration as a ConfigSource
func StaticConfig(cfg config.ProvidersConfig) ConfigSource {
	return func() config.ProvidersConfig { return cfg }
}

// Tester performs a live check against a configured destination
type Tester interface {
	Test(ctx context.Context) error
}

type requiredKey struct {
	name    string
	present func(config.ProvidersConfig) bool
}

type definition struct {
	name     string
	platform models.Platform
	keys     []requiredKey
}

// definitions is the declarative list of known destinations
var definitions = []definition{
	{
		name:     "WeChat Official Account",
		platform: models.PlatformWeChat,
		keys: []requiredKey{
			{"app_id", func(c config.ProvidersConfig) bool { return nonEmpty(c.WeChat.AppID) }},
			{"app_secret", func(c config.ProvidersConfig) bool { return nonEmpty(c.WeChat.AppSecret) }},
		},
	},
	{
		name:     "Xiaohongshu",
		platform: models.PlatformXHS,
		keys: []requiredKey{
			{"cookie", func(c config.ProvidersConfig) bool { return nonEmpty(c.XHS.Cookie) }},
		},
	},
	{
		name:     "Google Docs",
		platform: models.PlatformGoogleDocs,
		keys: []requiredKey{
			{"credentials", func(c config.ProvidersConfig) bool {
				return nonEmpty(c.GoogleDocs.CredentialsJSON) || nonEmpty(c.GoogleDocs.CredentialsFile)
			}},
			{"folder_id", func(c config.ProvidersConfig) bool { return nonEmpty(c.GoogleDocs.FolderID) }},
		},
	},
}

func nonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Registry computes provider status from configuration
type Registry struct {
	source  ConfigSource
	ttl     time.Duration
	now     func() time.Time
	testers map[models.Platform]Tester
	log     *logger.Logger

	// The cache may serve a list up to ttl old; a config change is observed
	// on the first call after expiry.
	mu       sync.Mutex
	cached   []models.PublishingProvider
	cachedAt time.Time
}

// Option configures a Registry
type Option func(*Registry)

// WithTTL sets the cache interval. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithClock overrides the time source used for cache expiry
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithTester registers a live check for a platform
func WithTester(platform models.Platform, t Tester) Option {
	return func(r *Registry) { r.testers[platform] = t }
}

// NewRegistry creates a provider registry
func NewRegistry(source ConfigSource, log *logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		source:  source,
		ttl:     DefaultTTL,
		now:     time.Now,
		testers: make(map[models.Platform]Tester),
		log:     log.WithComponent("provider-registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListAll returns every known provider with its configured status
func (r *Registry) ListAll() []models.PublishingProvider {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.cached == nil || r.ttl <= 0 || now.Sub(r.cachedAt) >= r.ttl {
		r.cached = compute(r.source())
		r.cachedAt = now
	}
	return clone(r.cached)
}

// Available returns the configured providers
func (r *Registry) Available() []models.PublishingProvider {
	var out []models.PublishingProvider
	for _, p := range r.ListAll() {
		if p.Configured {
			out = append(out, p)
		}
	}
	return out
}

// IsAvailable reports whether platform's provider is configured
func (r *Registry) IsAvailable(platform models.Platform) bool {
	for _, p := range r.Available() {
		if p.Platform == platform {
			return true
		}
	}
	return false
}

// AssertAvailable fails with NoProviderConfigured when no provider is usable.
// The message lists what every provider is missing.
func (r *Registry) AssertAvailable() error {
	all := r.ListAll()
	for _, p := range all {
		if p.Configured {
			return nil
		}
	}

	parts := make([]string, 0, len(all))
	for _, p := range all {
		parts = append(parts, fmt.Sprintf("%s (missing %s)", p.Name, strings.Join(p.MissingKeys, ", ")))
	}
	return apperr.NoProviderConfigured("no publishing provider configured: %s", strings.Join(parts, "; "))
}

// TestAll runs a live check per configured provider. Providers without a
// tester are reported working without a call.
func (r *Registry) TestAll(ctx context.Context) []models.ProviderTestResult {
	all := r.ListAll()
	results := make([]models.ProviderTestResult, 0, len(all))

	for _, p := range all {
		res := models.ProviderTestResult{Provider: p.Name}

		switch tester, ok := r.testers[p.Platform]; {
		case !p.Configured:
			res.Error = "not configured: missing " + strings.Join(p.MissingKeys, ", ")
		case !ok:
			res.Working = true
		default:
			res.Tested = true
			if err := tester.Test(ctx); err != nil {
				res.Error = err.Error()
				r.log.Warn().Err(err).Str("provider", p.Name).Msg("Provider test failed")
			} else {
				res.Working = true
			}
		}

		results = append(results, res)
	}
	return results
}

func compute(cfg config.ProvidersConfig) []models.PublishingProvider {
	out := make([]models.PublishingProvider, 0, len(definitions))
	for _, def := range definitions {
		p := models.PublishingProvider{
			Name:         def.name,
			Platform:     def.platform,
			RequiredKeys: make([]string, 0, len(def.keys)),
			MissingKeys:  []string{},
		}
		for _, k := range def.keys {
			p.RequiredKeys = append(p.RequiredKeys, k.name)
			if !k.present(cfg) {
				p.MissingKeys = append(p.MissingKeys, k.name)
			}
		}
		p.Configured = len(p.MissingKeys) == 0
		out = append(out, p)
	}
	return out
}

func clone(in []models.PublishingProvider) []models.PublishingProvider {
	out := make([]models.PublishingProvider, len(in))
	for i, p := range in {
		p.RequiredKeys = append([]string(nil), p.RequiredKeys...)
		p.MissingKeys = append([]string{}, p.MissingKeys...)
		out[i] = p
	}
	return out
}

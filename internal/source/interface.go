package source

import (
	"context"
	"fmt"

	"github.com/campaign-agent/internal/models"
)

// TrendSource defines the interface for trend discovery sources
type TrendSource interface {
	// Name returns the unique name of this source
	Name() string

	// Type returns the source type (rss, trends)
	Type() string

	// Fetch retrieves topic candidates from the source
	Fetch(ctx context.Context) ([]models.DiscoveredItem, error)
}

// Manager fans a fetch out over multiple trend sources
type Manager struct {
	sources []TrendSource
}

// NewManager creates a new source manager
func NewManager() *Manager {
	return &Manager{
		sources: make([]TrendSource, 0),
	}
}

// Register adds a source to the manager
func (m *Manager) Register(source TrendSource) {
	m.sources = append(m.sources, source)
}

// GetSources returns all registered sources
func (m *Manager) GetSources() []TrendSource {
	return m.sources
}

// GetSourceByName returns a source by name
func (m *Manager) GetSourceByName(name string) TrendSource {
	for _, s := range m.sources {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// FetchAll fetches from all sources concurrently. A failing source contributes
// an error and no items; the others are unaffected.
func (m *Manager) FetchAll(ctx context.Context) ([]models.DiscoveredItem, []error) {
	type result struct {
		name  string
		items []models.DiscoveredItem
		err   error
	}

	results := make(chan result, len(m.sources))

	for _, source := range m.sources {
		go func(s TrendSource) {
			items, err := s.Fetch(ctx)
			results <- result{name: s.Name(), items: items, err: err}
		}(source)
	}

	var allItems []models.DiscoveredItem
	var errors []error

	for range m.sources {
		r := <-results
		if r.err != nil {
			errors = append(errors, fmt.Errorf("source %s: %w", r.name, r.err))
		} else {
			allItems = append(allItems, r.items...)
		}
	}

	return allItems, errors
}

package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/source"
	"github.com/campaign-agent/internal/storage"
	"github.com/campaign-agent/pkg/logger"
)

// Fetcher collects trend candidates from every registered source
type Fetcher interface {
	FetchAll(ctx context.Context) ([]models.DiscoveredItem, []error)
}

// Agent pulls trending topics from the configured sources into the trend store
type Agent struct {
	sources Fetcher
	store   storage.TrendStore
	timeout time.Duration
	log     *logger.Logger
}

// NewAgent creates a new discovery agent. timeout bounds the source fan-out; zero means no bound.
func NewAgent(sources Fetcher, store storage.TrendStore, timeout time.Duration, log *logger.Logger) *Agent {
	return &Agent{
		sources: sources,
		store:   store,
		timeout: timeout,
		log:     log.WithComponent("discovery"),
	}
}

// Result contains the results of a discovery run
type Result struct {
	ItemsFound int
	Inserted   int
	Errors     []error
	Duration   time.Duration
}

// Run fetches from all sources and stores the new topics. Source failures are
// collected in the result; only a store failure is returned as an error.
func (a *Agent) Run(ctx context.Context) (*Result, error) {
	return a.run(ctx, a.sources)
}

func (a *Agent) run(ctx context.Context, sources Fetcher) (*Result, error) {
	startTime := time.Now()
	result := &Result{}

	a.log.Info().Msg("Starting trend discovery")

	fetchCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	items, fetchErrors := sources.FetchAll(fetchCtx)
	result.Errors = append(result.Errors, fetchErrors...)
	result.ItemsFound = len(items)

	for _, err := range fetchErrors {
		a.log.Warn().Err(err).Msg("Source fetch failed")
	}

	a.log.Info().
		Int("items_found", len(items)).
		Int("fetch_errors", len(fetchErrors)).
		Msg("Fetched trends from sources")

	if len(items) == 0 {
		a.log.Warn().Msg("No trends found from any source")
		result.Duration = time.Since(startTime)
		return result, nil
	}

	inserted, err := a.store.UpsertDiscovered(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("failed to store discovered trends: %w", err)
	}
	result.Inserted = inserted
	result.Duration = time.Since(startTime)

	a.log.Info().
		Int("inserted", inserted).
		Int("duplicates", len(items)-inserted).
		Dur("duration", result.Duration).
		Msg("Discovery completed")

	return result, nil
}

// RunForSource runs discovery for a single named source
func (a *Agent) RunForSource(ctx context.Context, manager *source.Manager, sourceName string) (*Result, error) {
	src := manager.GetSourceByName(sourceName)
	if src == nil {
		return nil, fmt.Errorf("source not found: %s", sourceName)
	}

	single := source.NewManager()
	single.Register(src)

	a.log.Info().Str("source", sourceName).Msg("Running discovery for source")
	return a.run(ctx, single)
}

// Package httpserver exposes campaigns, review actions and provider status over HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campaign-agent/internal/agent/campaign"
	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/storage"
	"github.com/campaign-agent/pkg/logger"
)

const defaultListLimit = 50

// CampaignRunner runs one campaign
type CampaignRunner interface {
	Run(ctx context.Context, req campaign.Request) (*campaign.Result, error)
}

// Reviewer applies review and publish actions to content
type Reviewer interface {
	Approve(ctx context.Context, id uint) (*models.Content, error)
	Reject(ctx context.Context, id uint) (*models.Content, error)
	Publish(ctx context.Context, id uint) (*models.Content, error)
}

// Providers reports publishing provider status
type Providers interface {
	ListAll() []models.PublishingProvider
	TestAll(ctx context.Context) []models.ProviderTestResult
}

// Deps are the services the handlers call
type Deps struct {
	Campaigns CampaignRunner
	Reviewer  Reviewer
	Trends    storage.TrendStore
	Content   storage.ContentStore
	Providers Providers
}

// Server is the HTTP API server
type Server struct {
	deps   Deps
	router chi.Router
	log    *logger.Logger
}

// New creates a new server
func New(deps Deps, log *logger.Logger) *Server {
	s := &Server{
		deps: deps,
		log:  log.WithComponent("http"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/campaigns", s.handleRunCampaign)
		r.Get("/trends", s.handleListTrends)

		r.Route("/content", func(r chi.Router) {
			r.Get("/", s.handleListContent)
			r.Get("/{id}", s.handleGetContent)
			r.Post("/{id}/approve", s.handleApprove)
			r.Post("/{id}/reject", s.handleReject)
			r.Post("/{id}/publish", s.handlePublish)
		})

		r.Get("/providers", s.handleListProviders)
		r.Post("/providers/test", s.handleTestProviders)
	})

	s.router = r
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type campaignRequest struct {
	Mode      string   `json:"mode"`
	Topic     string   `json:"topic"`
	Platforms []string `json:"platforms"`
}

func (s *Server) handleRunCampaign(w http.ResponseWriter, r *http.Request) {
	var body campaignRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, apperr.InvalidInput("invalid request body: %v", err))
			return
		}
	}

	req, err := body.toRequest()
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.deps.Campaigns.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (b campaignRequest) toRequest() (campaign.Request, error) {
	// a topic without an explicit mode is a custom campaign
	if strings.TrimSpace(b.Mode) == "" && strings.TrimSpace(b.Topic) != "" {
		b.Mode = string(campaign.ModeCustom)
	}
	mode, err := campaign.ParseMode(b.Mode)
	if err != nil {
		return campaign.Request{}, err
	}

	req := campaign.Request{Mode: mode, Topic: b.Topic}
	for _, p := range b.Platforms {
		platform, err := models.ParsePlatform(p)
		if err != nil {
			return campaign.Request{}, apperr.InvalidInput("%v", err)
		}
		req.Platforms = append(req.Platforms, platform)
	}
	return req, nil
}

func (s *Server) handleListTrends(w http.ResponseWriter, r *http.Request) {
	filter := storage.DefaultTopicFilter()

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.TopicStatus(strings.ToLower(raw))
		if status != models.TopicStatusPending && status != models.TopicStatusProcessed {
			s.writeError(w, apperr.InvalidInput("unknown trend status %q", raw))
			return
		}
		filter.Status = &status
	}
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	filter.Limit = limit

	topics, err := s.deps.Trends.ListTopics(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trends": nonNil(topics)})
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	status := models.ContentStatusPendingApproval
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseContentStatus(raw)
		if err != nil {
			s.writeError(w, apperr.InvalidInput("%v", err))
			return
		}
		status = parsed
	}
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items, err := s.deps.Content.ListByStatus(r.Context(), status, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"content": nonNil(items)})
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	content, err := s.deps.Content.GetContent(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.contentAction(w, r, s.deps.Reviewer.Approve)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.contentAction(w, r, s.deps.Reviewer.Reject)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	s.contentAction(w, r, s.deps.Reviewer.Publish)
}

func (s *Server) contentAction(w http.ResponseWriter, r *http.Request, action func(context.Context, uint) (*models.Content, error)) {
	id, err := contentID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	content, err := action(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"providers": s.deps.Providers.ListAll()})
}

func (s *Server) handleTestProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": s.deps.Providers.TestAll(r.Context())})
}

// --- Helpers ---

func contentID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidInput("invalid content id %q", raw)
	}
	return uint(id), nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperr.InvalidInput("invalid limit %q", raw)
	}
	return limit, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/pkg/logger"
)

// Completer is the LLM call the generator needs. *Client implements it.
type Completer interface {
	CompleteWithJSON(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// ImageFinder resolves an image prompt to a picture URL
type ImageFinder interface {
	FindImageURL(ctx context.Context, query, orientation string) (string, error)
}

// GenerateRequest is the input to a generation run
type GenerateRequest struct {
	Topic     string
	Platforms []models.Platform
}

// GeneratedPost is one platform's generated content
type GeneratedPost struct {
	Platform    models.Platform `json:"platform"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Hashtags    []string        `json:"hashtags"`
	ImagePrompt string          `json:"image_prompt"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// PlatformError reports a failed generation for one platform
type PlatformError struct {
	Platform models.Platform
	Err      error
}

func (e PlatformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Platform, e.Err)
}

func (e PlatformError) Unwrap() error {
	return e.Err
}

// Generator drafts platform-specific posts for a topic
type Generator struct {
	completer  Completer
	brandVoice string
	timeout    time.Duration
	images     ImageFinder
	log        *logger.Logger
}

// NewGenerator creates a generator. timeout bounds each platform's LLM call.
func NewGenerator(completer Completer, brandVoice string, timeout time.Duration, log *logger.Logger) *Generator {
	return &Generator{
		completer:  completer,
		brandVoice: brandVoice,
		timeout:    timeout,
		log:        log.WithComponent("generator"),
	}
}

// SetImageFinder enables cover image lookup for generated posts
func (g *Generator) SetImageFinder(f ImageFinder) {
	g.images = f
}

// Generate produces one post per requested platform. Platforms are generated
// independently: a failure for one is reported in the error slice and the
// rest still run.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) ([]GeneratedPost, []PlatformError) {
	var posts []GeneratedPost
	var failures []PlatformError

	for _, platform := range req.Platforms {
		post, err := g.generateOne(ctx, req.Topic, platform)
		if err != nil {
			g.log.Warn().
				Err(err).
				Str("platform", string(platform)).
				Str("topic", req.Topic).
				Msg("Content generation failed for platform")
			failures = append(failures, PlatformError{Platform: platform, Err: err})
			continue
		}
		posts = append(posts, *post)
	}

	g.log.Info().
		Str("topic", req.Topic).
		Int("generated", len(posts)).
		Int("failed", len(failures)).
		Msg("Content generation finished")

	return posts, failures
}

func (g *Generator) generateOne(ctx context.Context, topic string, platform models.Platform) (*GeneratedPost, error) {
	guidelines, ok := platformGuidelines[platform]
	if !ok {
		return nil, fmt.Errorf("no generation guidelines for platform %q", platform)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	systemPrompt := fmt.Sprintf(ContentGenerationSystemPrompt, g.brandVoice)
	userPrompt := fmt.Sprintf(ContentGenerationUserPrompt, platformDisplayName[platform], topic, guidelines)

	response, err := g.completer.CompleteWithJSON(ctx, systemPrompt, userPrompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("generation timed out after %s: %w", g.timeout, err)
		}
		return nil, err
	}

	var post GeneratedPost
	if err := json.Unmarshal([]byte(stripMarkdownCodeBlock(response)), &post); err != nil {
		g.log.Error().
			Err(err).
			Str("platform", string(platform)).
			Str("response", response).
			Msg("Failed to parse content response")
		return nil, fmt.Errorf("failed to parse content response: %w", err)
	}

	post.Platform = platform
	post.Title = strings.TrimSpace(post.Title)
	post.Body = strings.TrimSpace(post.Body)
	post.Hashtags = normalizeHashtags(post.Hashtags)

	if post.Body == "" {
		return nil, errors.New("model returned an empty body")
	}
	if post.Title == "" {
		post.Title = topic
	}

	if g.images != nil && post.ImagePrompt != "" {
		imageURL, err := g.images.FindImageURL(ctx, post.ImagePrompt, coverOrientation(platform))
		if err != nil {
			g.log.Warn().Err(err).Str("query", post.ImagePrompt).Msg("Image lookup failed, continuing without image")
		} else {
			post.ImageURL = imageURL
		}
	}

	return &post, nil
}

// coverOrientation matches the cover format each platform's feed displays
func coverOrientation(platform models.Platform) string {
	if platform == models.PlatformXHS {
		return "portrait"
	}
	return "landscape"
}

// normalizeHashtags trims tags, adds the leading '#', and drops empties and duplicates
func normalizeHashtags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimLeft(tag, "#")
		if tag == "" {
			continue
		}
		tag = "#" + tag
		if seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true
		out = append(out, tag)
	}
	return out
}

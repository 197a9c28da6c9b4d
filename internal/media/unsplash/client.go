package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/campaign-agent/pkg/logger"
	"github.com/campaign-agent/pkg/ratelimit"
)

const (
	defaultBaseURL = "https://api.unsplash.com"
)

// Photo represents an Unsplash photo
type Photo struct {
	ID      string `json:"id"`
	AltDesc string `json:"alt_description"`
	URLs    URLs   `json:"urls"`
	User    User   `json:"user"`
	Links   Links  `json:"links"`
}

// URLs contains different size URLs for the photo
type URLs struct {
	Full    string `json:"full"`
	Regular string `json:"regular"` // 1080px width
	Small   string `json:"small"`
}

// User represents the photographer
type User struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Links contains API links for the photo
type Links struct {
	DownloadLocation string `json:"download_location"` // must be hit when a photo is used
}

// SearchResult represents the API response for photo search
type SearchResult struct {
	Total   int     `json:"total"`
	Results []Photo `json:"results"`
}

// Client is the Unsplash API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.MultiLimiter
	log        *logger.Logger
}

// NewClient creates a new Unsplash client
func NewClient(apiKey string, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		log:     log.WithComponent("unsplash"),
	}
}

// SearchPhotos searches for photos matching the query. An empty orientation
// searches all shapes.
func (c *Client) SearchPhotos(ctx context.Context, query, orientation string, perPage int) ([]Photo, error) {
	if perPage <= 0 {
		perPage = 5
	}
	if perPage > 30 {
		perPage = 30
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, ratelimit.LimiterUnsplash); err != nil {
			return nil, fmt.Errorf("rate limit error: %w", err)
		}
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	if orientation != "" {
		params.Set("orientation", orientation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.apiKey)
	req.Header.Set("Accept-Version", "v1")

	c.log.Debug().Str("query", query).Msg("Searching Unsplash photos")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Results, nil
}

// FindImageURL picks a random photo from the top results for query and returns
// its regular-size URL. The download endpoint is triggered as the API terms require.
func (c *Client) FindImageURL(ctx context.Context, query, orientation string) (string, error) {
	photos, err := c.SearchPhotos(ctx, query, orientation, 10)
	if err != nil {
		return "", err
	}
	if len(photos) == 0 {
		return "", fmt.Errorf("no photos found for query: %s", query)
	}

	photo := photos[rand.Intn(len(photos))]
	c.trackDownload(ctx, photo)

	imageURL := photo.URLs.Regular
	if imageURL == "" {
		imageURL = photo.URLs.Full
	}

	c.log.Debug().
		Str("photo_id", photo.ID).
		Str("photographer", photo.User.Name).
		Msg("Selected cover photo")

	return imageURL, nil
}

func (c *Client) trackDownload(ctx context.Context, photo Photo) {
	if photo.Links.DownloadLocation == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photo.Links.DownloadLocation, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Client-ID "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("Download tracking failed")
		return
	}
	resp.Body.Close()
}

package trends

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/pkg/logger"
)

const trendingFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss xmlns:ht="https://trends.google.com/trending/rss" version="2.0">
<channel>
  <title>Daily Search Trends</title>
  <item>
    <title>solar eclipse</title>
    <ht:approx_traffic>500000+</ht:approx_traffic>
    <link>https://trends.google.com/trending/rss?geo=US</link>
    <ht:news_item>
      <ht:news_item_title>Eclipse viewing guide</ht:news_item_title>
      <ht:news_item_url>https://news.example.com/eclipse</ht:news_item_url>
    </ht:news_item>
  </item>
  <item>
    <title>world cup</title>
    <link>https://trends.google.com/trending/rss?geo=US</link>
  </item>
  <item>
    <title>election results</title>
  </item>
</channel>
</rss>`

func TestFetchTrendingSearches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, trendingFeed)
	}))
	defer srv.Close()

	src := New(config.TrendsConfig{URL: srv.URL, Limit: 2}, nil, logger.Nop())
	items, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "solar eclipse", items[0].Title)
	assert.Equal(t, models.SourceGoogleTrends, items[0].Source)
	assert.Equal(t, "https://news.example.com/eclipse", items[0].SourceURL)
	assert.Equal(t, "world cup", items[1].Title)
	assert.Equal(t, "https://trends.google.com/trending/rss?geo=US", items[1].SourceURL)
}

func TestNewBuildsRegionURL(t *testing.T) {
	src := New(config.TrendsConfig{Geo: "GB"}, nil, logger.Nop())
	assert.Equal(t, "https://trends.google.com/trending/rss?geo=GB", src.url)
	assert.Equal(t, models.SourceGoogleTrends, src.Name())
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TopicStatus represents the current state of a topic
type TopicStatus string

const (
	TopicStatusPending   TopicStatus = "pending"
	TopicStatusProcessed TopicStatus = "processed"
)

// Source labels that are not feed names
const (
	SourceGoogleTrends = "Google Trends"
	SourceCustomTopic  = "Custom Topic"
)

// StringSlice is a custom type for storing string arrays in JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported StringSlice source %T", value)
	}
}

// Topic is a discovered trend candidate
type Topic struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	Title           string      `gorm:"not null" json:"title"`
	NormalizedTitle string      `gorm:"index;not null" json:"-"`
	Source          string      `gorm:"index" json:"source"` // feed name, "Google Trends" or "Custom Topic"
	SourceURL       string      `json:"source_url,omitempty"`
	Status          TopicStatus `gorm:"size:20;index;default:'pending'" json:"status"`
	DiscoveredAt    time.Time   `gorm:"index" json:"discovered_at"`
	ProcessedAt     *time.Time  `json:"processed_at,omitempty"`
}

// IsPending reports whether the topic has not been used for generation yet
func (t *Topic) IsPending() bool {
	return t.Status == TopicStatusPending
}

// NormalizeTitle is the dedup key for topics: lowercased and trimmed.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// DiscoveredItem is a topic candidate as returned by a trend source, before persistence
type DiscoveredItem struct {
	Title       string
	Source      string
	SourceURL   string
	PublishedAt *time.Time
}

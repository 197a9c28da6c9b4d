package models

import (
	"fmt"
	"strings"
	"time"
)

// Platform is a publishing destination tag
type Platform string

const (
	PlatformWeChat     Platform = "wechat"
	PlatformXHS        Platform = "xhs"
	PlatformGoogleDocs Platform = "googledocs"
)

// AllPlatforms lists every known destination in registry order
var AllPlatforms = []Platform{PlatformWeChat, PlatformXHS, PlatformGoogleDocs}

// DefaultCampaignPlatforms is the target set for auto campaigns
var DefaultCampaignPlatforms = []Platform{PlatformWeChat, PlatformXHS}

// ParsePlatform validates a platform tag
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllPlatforms {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// ContentStatus represents the lifecycle state of a generated post
type ContentStatus string

const (
	ContentStatusDraft           ContentStatus = "draft"
	ContentStatusPendingApproval ContentStatus = "pending_approval"
	ContentStatusApproved        ContentStatus = "approved"
	ContentStatusPublished       ContentStatus = "published"
	ContentStatusRejected        ContentStatus = "rejected"
)

// ParseContentStatus validates a status string
func ParseContentStatus(s string) (ContentStatus, error) {
	st := ContentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case ContentStatusDraft, ContentStatusPendingApproval, ContentStatusApproved,
		ContentStatusPublished, ContentStatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown content status %q", s)
}

// Content is one generated, platform-targeted post
type Content struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	TopicID          *uint         `gorm:"index" json:"topic_id"` // nil for custom topics
	TopicTitle       string        `json:"topic_title"`
	Platform         Platform      `gorm:"size:20;index;not null" json:"platform"`
	Title            string        `gorm:"not null" json:"title"`
	Body             string        `gorm:"type:text;not null" json:"body"`
	Hashtags         StringSlice   `gorm:"type:text" json:"hashtags,omitempty"`
	ImageURL         string        `json:"image_url,omitempty"`
	Status           ContentStatus `gorm:"size:20;index;default:'pending_approval'" json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	ApprovedAt       *time.Time    `json:"approved_at,omitempty"`
	RejectedAt       *time.Time    `json:"rejected_at,omitempty"`
	PublishedAt      *time.Time    `json:"published_at,omitempty"`
	PublishedURL     string        `json:"published_url,omitempty"`
	LastPublishError string        `json:"last_publish_error,omitempty"`
}

// IsTerminal reports whether no further transition is possible
func (c *Content) IsTerminal() bool {
	return c.Status == ContentStatusPublished || c.Status == ContentStatusRejected
}

// CanApprove reports whether Approve/Reject would change the row
func (c *Content) CanApprove() bool {
	return c.Status == ContentStatusPendingApproval || c.Status == ContentStatusDraft
}

// Draft is the payload persisted by CreateDraft
type Draft struct {
	TopicID  *uint
	Platform Platform
	Title    string
	Body     string
	Hashtags []string
	ImageURL string
}

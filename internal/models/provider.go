package models

// PublishingProvider is a destination's derived configuration status.
// It is recomputed from configuration, never persisted.
type PublishingProvider struct {
	Name         string   `json:"name"`
	Platform     Platform `json:"platform"`
	Configured   bool     `json:"configured"`
	RequiredKeys []string `json:"required_keys"`
	MissingKeys  []string `json:"missing_keys"`
}

// ProviderTestResult is the outcome of a live provider check
type ProviderTestResult struct {
	Provider string `json:"provider"`
	Tested   bool   `json:"tested"`
	Working  bool   `json:"working"`
	Error    string `json:"error,omitempty"`
}

package domain

import (
	"strings"
	"time"
)

// Minimum lengths enforced by the sync settings form.
const (
	MinSecretLength       = 6
	MinCollectionIDLength = 11
)

// SyncConfig holds the credential used to import from the external database.
type SyncConfig struct {
	Secret       string    `json:"secret"`
	CollectionID string    `json:"collection_id"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsComplete reports whether both fields pass the settings form checks:
// a secret longer than 5 characters and a collection id longer than 10.
func (c *SyncConfig) IsComplete() bool {
	return c != nil &&
		len(strings.TrimSpace(c.Secret)) >= MinSecretLength &&
		len(strings.TrimSpace(c.CollectionID)) >= MinCollectionIDLength
}

// MaskedSecret returns the secret with all but its prefix and last four
// characters hidden.
func (c *SyncConfig) MaskedSecret() string {
	if c == nil || c.Secret == "" {
		return ""
	}
	s := c.Secret
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	prefixLen := 4
	if i := strings.IndexByte(s, '_'); i > 0 && i < 8 {
		prefixLen = i + 1
	}
	return s[:prefixLen] + strings.Repeat("*", len(s)-prefixLen-4) + s[len(s)-4:]
}

// SyncResult describes a completed sync.
type SyncResult struct {
	Imported    int           `json:"imported"`
	Replaced    int           `json:"replaced"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration,format:nano"`
}

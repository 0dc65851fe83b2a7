// Package vault encodes sync credentials into a shareable token.
//
// The token is JSON, base64-encoded, then reversed. It is obfuscation only:
// anyone holding a token can recover the secret. Treat tokens like the secret
// itself.
package vault

import (
	"encoding/base64"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"

	"github.com/readingnook/readingnook-server/internal/domain"
)

// ErrInvalidToken is returned for any token that cannot be decoded.
var ErrInvalidToken = errors.New("vault: invalid token")

// payload field names match tokens produced by earlier clients.
type payload struct {
	APIKey     string `json:"apiKey"`
	DatabaseID string `json:"databaseId"`
}

// Encode produces a share token for cfg.
func Encode(cfg domain.SyncConfig) (string, error) {
	data, err := json.Marshal(payload{APIKey: cfg.Secret, DatabaseID: cfg.CollectionID})
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return reverse(base64.StdEncoding.EncodeToString(data)), nil
}

// Decode recovers the credentials from a share token.
func Decode(token string) (domain.SyncConfig, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.SyncConfig{}, ErrInvalidToken
	}

	data, err := base64.StdEncoding.DecodeString(reverse(token))
	if err != nil {
		return domain.SyncConfig{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.SyncConfig{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return domain.SyncConfig{Secret: p.APIKey, CollectionID: p.DatabaseID}, nil
}

// reverse reverses s rune by rune. Base64 output is ASCII, so this matches a
// byte reversal for every valid token.
func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

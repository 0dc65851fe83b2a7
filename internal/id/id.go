// Package id generates prefixed identifiers for locally created records.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the records this server creates. Imported books keep the
// identifier of their source page and never go through this package.
const (
	PrefixBook  = "book"
	PrefixEvent = "evt"
	PrefixSSE   = "sse"
)

// Generate creates a prefixed NanoID, e.g. "book-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// MustGenerate is like Generate but panics when the system is out of entropy.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}

// NewBookID returns an identifier for a book created through the API.
func NewBookID() (string, error) {
	return Generate(PrefixBook)
}

// HasPrefix reports whether v was generated with the given prefix.
func HasPrefix(v, prefix string) bool {
	return strings.HasPrefix(v, prefix+"-") && len(v) > len(prefix)+1
}

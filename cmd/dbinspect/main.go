// Package main prints the contents of a ReadingNook store.
//
// Usage:
//
//	go run ./cmd/dbinspect
//	go run ./cmd/dbinspect -store sqlite -data-path /srv/nook -json
//	go run ./cmd/dbinspect -source 1f2e3d4c-...
package main

import (
	"context"
	"encoding/json/v2"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/library"
	"github.com/readingnook/readingnook-server/internal/store"
	"github.com/readingnook/readingnook-server/internal/store/sqlite"
)

var (
	dataPath = flag.String("data-path", os.ExpandEnv("$HOME/ReadingNook"), "Data directory")
	backend  = flag.String("store", "badger", "Store backend: badger or sqlite")
	asJSON   = flag.Bool("json", false, "Print the books as a JSON array")
	sourceID = flag.String("source", "", "Print the book imported from this Notion page id")
)

func main() {
	flag.Parse()

	repo, err := openStore(*dataPath, *backend)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	if *sourceID != "" {
		book, err := repo.GetBookBySource(ctx, *sourceID)
		if err != nil {
			log.Fatalf("Failed to find page %s: %v", *sourceID, err)
		}
		printBook(book)
		return
	}

	books, err := repo.ListBooks(ctx)
	if err != nil {
		log.Fatalf("Failed to list books: %v", err)
	}

	if *asJSON {
		if err := json.MarshalWrite(os.Stdout, books); err != nil {
			log.Fatalf("Failed to encode books: %v", err)
		}
		fmt.Println()
		return
	}

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	stats := library.DeriveStats(books)
	fmt.Printf("Books: %d (reading %d, completed %d)\n", stats.Total, stats.Reading, stats.Completed)

	imported := 0
	for _, b := range books {
		if b.IsImported() {
			imported++
		}
	}
	fmt.Printf("Imported: %d, added by hand: %d\n", imported, len(books)-imported)
	fmt.Println()

	for i, b := range books {
		if i == 10 {
			fmt.Printf("... and %d more\n", len(books)-10)
			break
		}
		printBook(b)
	}
	fmt.Println()

	fmt.Println("=== Sync ===")
	cfg, err := repo.GetSyncConfig(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Println("Not configured")
	case err != nil:
		fmt.Printf("Error: %v\n", err)
	default:
		fmt.Printf("Secret:        %s\n", cfg.MaskedSecret())
		fmt.Printf("Collection ID: %s\n", cfg.CollectionID)
	}

	last, err := repo.GetLastSync(ctx)
	if err == nil {
		fmt.Printf("Last sync:     %s (%d imported in %s)\n",
			last.CompletedAt.Format("2006-01-02 15:04:05"), last.Imported, last.Duration)
	}
}

func printBook(b *domain.Book) {
	fmt.Printf("%s  %s / %s\n", b.ID, b.Title, b.Author)
	fmt.Printf("  Status: %s  Rating: %s\n", b.Status.Label(), strings.Repeat("⭐", b.Rating))
	if len(b.Tags) > 0 {
		fmt.Printf("  Tags: %s\n", strings.Join(b.Tags, ", "))
	}
}

func openStore(dataPath, backend string) (store.Repository, error) {
	switch backend {
	case "badger":
		return store.New(filepath.Join(dataPath, "db"), nil, store.NewNoopEmitter())
	case "sqlite":
		return sqlite.Open(filepath.Join(dataPath, "readingnook.db"), nil)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

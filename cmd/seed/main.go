// Package main seeds a ReadingNook store from a JSON export.
//
// The file may hold a plain array of books or the envelope returned by
// GET /api/v1/books. Statuses may be codes or their labels. Books without an
// id get a new one.
//
// Usage:
//
//	go run ./cmd/seed -file books.json
//	go run ./cmd/seed -file books.json -store sqlite -append
package main

import (
	"context"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/id"
	"github.com/readingnook/readingnook-server/internal/store"
	"github.com/readingnook/readingnook-server/internal/store/sqlite"
)

var (
	dataPath = flag.String("data-path", os.ExpandEnv("$HOME/ReadingNook"), "Data directory")
	backend  = flag.String("store", "badger", "Store backend: badger or sqlite")
	file     = flag.String("file", "", "JSON export to import")
	appendTo = flag.Bool("append", false, "Add to the existing collection instead of replacing it")
)

type listEnvelope struct {
	Data struct {
		Books []*domain.Book `json:"books"`
	} `json:"data"`
}

func main() {
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}

	books, err := readBooks(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}

	repo, err := openStore(*dataPath, *backend)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	if !*appendTo {
		if err := repo.ReplaceBooks(ctx, books); err != nil {
			log.Fatalf("Failed to replace books: %v", err)
		}
		fmt.Printf("Replaced collection with %d books\n", len(books))
		return
	}

	created := 0
	for _, b := range books {
		if err := repo.CreateBook(ctx, b); err != nil {
			log.Printf("Skipping %q: %v", b.Title, err)
			continue
		}
		created++
	}
	fmt.Printf("Added %d of %d books\n", created, len(books))
}

func readBooks(path string) ([]*domain.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var books []*domain.Book
	if err := json.Unmarshal(data, &books); err != nil {
		var env listEnvelope
		if envErr := json.Unmarshal(data, &env); envErr != nil {
			return nil, err
		}
		books = env.Data.Books
	}

	now := time.Now()
	for i, b := range books {
		if err := normalize(b, now); err != nil {
			return nil, fmt.Errorf("book %d: %w", i, err)
		}
	}
	return books, nil
}

func normalize(b *domain.Book, now time.Time) error {
	if b.ID == "" {
		bookID, err := id.NewBookID()
		if err != nil {
			return err
		}
		b.ID = bookID
	}

	if b.Status == "" {
		b.Status = domain.StatusPlanToRead
	}
	status, err := domain.ParseStatus(string(b.Status))
	if err != nil {
		return err
	}
	b.Status = status

	if b.Title == "" {
		b.Title = domain.UntitledPlaceholder
	}
	if b.Author == "" {
		b.Author = domain.UnknownAuthorPlaceholder
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.AddedAt == 0 {
		b.AddedAt = now.UnixMilli()
	}
	return nil
}

func openStore(dataPath, backend string) (store.Repository, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, err
	}
	switch backend {
	case "badger":
		return store.New(filepath.Join(dataPath, "db"), nil, store.NewNoopEmitter())
	case "sqlite":
		return sqlite.Open(filepath.Join(dataPath, "readingnook.db"), nil)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

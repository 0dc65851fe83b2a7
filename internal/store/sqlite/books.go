package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"

	"github.com/readingnook/readingnook-server/internal/domain"
	"github.com/readingnook/readingnook-server/internal/sse"
	"github.com/readingnook/readingnook-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, title, author, status, rating, summary, thoughts, tags,
	added_at, cover_url, cover_blurhash, source_id, updated_at`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		status    string
		tags      string
		coverURL  sql.NullString
		blurhash  sql.NullString
		sourceID  sql.NullString
		updatedAt sql.NullString
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&status,
		&b.Rating,
		&b.Summary,
		&b.Thoughts,
		&tags,
		&b.AddedAt,
		&coverURL,
		&blurhash,
		&sourceID,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = domain.ReadingStatus(status)
	b.CoverURL = coverURL.String
	b.CoverBlurhash = blurhash.String
	b.SourceID = sourceID.String

	if err := json.Unmarshal([]byte(tags), &b.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of %s: %w", b.ID, err)
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}

	b.UpdatedAt, err = parseNullableTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// bookArgs returns the insert arguments in bookColumns order.
func bookArgs(b *domain.Book) ([]any, error) {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	return []any{
		b.ID,
		b.Title,
		b.Author,
		string(b.Status),
		b.Rating,
		b.Summary,
		b.Thoughts,
		string(tagsJSON),
		b.AddedAt,
		nullString(b.CoverURL),
		nullString(b.CoverBlurhash),
		nullString(b.SourceID),
		nullTimeString(b.UpdatedAt),
	}, nil
}

const insertBookSQL = `INSERT INTO books (` + bookColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBook(ctx context.Context, ex execer, b *domain.Book) error {
	if b.ID == "" || !b.Status.Valid() {
		return store.ErrInvalidInput
	}
	args, err := bookArgs(b)
	if err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx, insertBookSQL, args...); err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ListBooks returns every stored book, newest first.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY added_at DESC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []*domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetBook returns the book with id, or store.ErrNotFound.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return b, err
}

// GetBookBySource returns the book imported from the given Notion page.
func (s *Store) GetBookBySource(ctx context.Context, sourceID string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE source_id = ?`, sourceID)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return b, err
}

// CreateBook stores a new book and broadcasts book.created.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := insertBook(ctx, s.db, book); err != nil {
		return err
	}
	s.emitter.Emit(sse.NewBookCreatedEvent(book.Clone()))
	return nil
}

// UpdateBook replaces an existing book and broadcasts book.updated.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	if book.ID == "" || !book.Status.Valid() {
		return store.ErrInvalidInput
	}
	args, err := bookArgs(book)
	if err != nil {
		return err
	}

	// args[0] is the id; move it to the WHERE clause.
	res, err := s.db.ExecContext(ctx, `UPDATE books SET
		title = ?, author = ?, status = ?, rating = ?, summary = ?, thoughts = ?,
		tags = ?, added_at = ?, cover_url = ?, cover_blurhash = ?, source_id = ?, updated_at = ?
		WHERE id = ?`, append(args[1:], args[0])...)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	s.emitter.Emit(sse.NewBookUpdatedEvent(book.Clone()))
	return nil
}

// DeleteBook removes a book. Deleting a missing book is not an error.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return err
	}
	s.emitter.Emit(sse.NewBookDeletedEvent(id))
	return nil
}

// ReplaceBooks atomically swaps the stored collection for books.
func (s *Store) ReplaceBooks(ctx context.Context, books []*domain.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}
	for _, b := range books {
		if err := insertBook(ctx, tx, b); err != nil {
			return fmt.Errorf("insert %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// CountBooks returns the number of stored books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed")
}

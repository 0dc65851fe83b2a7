package notion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Schema names the database properties the mapper reads. Keys are tried in
// order; the first key present on a page wins, even when its value is empty.
type Schema struct {
	TitleKeys   []string `yaml:"title_keys"`
	AuthorKeys  []string `yaml:"author_keys"`
	StatusKeys  []string `yaml:"status_keys"`
	RatingKeys  []string `yaml:"rating_keys"`
	SummaryKeys []string `yaml:"summary_keys"`
	TagKeys     []string `yaml:"tag_keys"`

	// Substrings of a status option name. Completed markers are checked first.
	ReadingMarkers   []string `yaml:"reading_markers"`
	CompletedMarkers []string `yaml:"completed_markers"`

	// RatingGlyph is counted in the rating text to produce the rating.
	RatingGlyph string `yaml:"rating_glyph"`
}

// DefaultSchema returns the property names used by the reading-list template.
func DefaultSchema() *Schema {
	return &Schema{
		TitleKeys:        []string{"書名"},
		AuthorKeys:       []string{"作者", "著者"},
		StatusKeys:       []string{"狀態"},
		RatingKeys:       []string{"推薦指數"},
		SummaryKeys:      []string{"書本摘要（AI生成）", "摘要"},
		TagKeys:          []string{"類別"},
		ReadingMarkers:   []string{"正在讀", "📖"},
		CompletedMarkers: []string{"閱讀完畢", "☑️"},
		RatingGlyph:      "⭐",
	}
}

// withDefaults fills every empty field from DefaultSchema.
func (s *Schema) withDefaults() *Schema {
	d := DefaultSchema()
	out := *s
	fill := func(dst *[]string, def []string) {
		if len(*dst) == 0 {
			*dst = def
		}
	}
	fill(&out.TitleKeys, d.TitleKeys)
	fill(&out.AuthorKeys, d.AuthorKeys)
	fill(&out.StatusKeys, d.StatusKeys)
	fill(&out.RatingKeys, d.RatingKeys)
	fill(&out.SummaryKeys, d.SummaryKeys)
	fill(&out.TagKeys, d.TagKeys)
	fill(&out.ReadingMarkers, d.ReadingMarkers)
	fill(&out.CompletedMarkers, d.CompletedMarkers)
	if out.RatingGlyph == "" {
		out.RatingGlyph = d.RatingGlyph
	}
	return &out
}

// ParseSchema decodes a YAML schema. Omitted fields keep their defaults.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return s.withDefaults(), nil
}

// LoadSchema reads a YAML schema file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(data)
}

// SchemaSource supplies the schema for each mapping pass.
type SchemaSource interface {
	Schema() *Schema
}

// StaticSchema is a SchemaSource that never changes.
type StaticSchema struct {
	s *Schema
}

// NewStaticSchema wraps s (nil means the default schema).
func NewStaticSchema(s *Schema) *StaticSchema {
	if s == nil {
		s = DefaultSchema()
	}
	return &StaticSchema{s: s}
}

// Schema implements SchemaSource.
func (st *StaticSchema) Schema() *Schema {
	return st.s
}

// SchemaWatcher reloads a schema file whenever it changes on disk. A reload
// that fails keeps the last good schema.
type SchemaWatcher struct {
	path    string
	current atomic.Pointer[Schema]
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// Debounce window for editors that write a file in several steps.
	debounce time.Duration
	reloaded chan struct{}
}

// NewSchemaWatcher loads path and prepares a watcher for it. Call Run to start
// watching.
func NewSchemaWatcher(path string, logger *slog.Logger) (*SchemaWatcher, error) {
	schema, err := LoadSchema(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors often replace the file rather than write it.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	sw := &SchemaWatcher{
		path:     filepath.Clean(path),
		watcher:  fw,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		reloaded: make(chan struct{}, 1),
	}
	sw.current.Store(schema)
	return sw, nil
}

// Schema implements SchemaSource.
func (sw *SchemaWatcher) Schema() *Schema {
	return sw.current.Load()
}

// Reloaded signals after each successful reload.
func (sw *SchemaWatcher) Reloaded() <-chan struct{} {
	return sw.reloaded
}

// Run processes file events until ctx is done.
func (sw *SchemaWatcher) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(sw.debounce)
			} else {
				timer.Reset(sw.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			sw.reload()

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("schema watcher error", "error", err)
		}
	}
}

func (sw *SchemaWatcher) reload() {
	schema, err := LoadSchema(sw.path)
	if err != nil {
		sw.logger.Warn("schema reload failed, keeping previous schema",
			"path", sw.path,
			"error", err,
		)
		return
	}
	sw.current.Store(schema)
	sw.logger.Info("notion schema reloaded", "path", sw.path)

	select {
	case sw.reloaded <- struct{}{}:
	default:
	}
}

// Close stops watching.
func (sw *SchemaWatcher) Close() error {
	return sw.watcher.Close()
}

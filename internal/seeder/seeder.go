// package seeder reconciles PocketBase collections with JSON fixture files.
package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julianstephens/church-latin/internal/models"
	"github.com/julianstephens/church-latin/internal/shared"
)

const resetPageSize = 200

// Seeder is anything that can reconcile a backend collection with its fixture.
type Seeder interface {
	Name() string       // Name is the short name used on the command line ("modules")
	Collection() string // Collection is the target PocketBase collection
	Seed(ctx context.Context, opts Options) (*Result, error)
}

// Backend is the subset of the PocketBase records API a seeder needs.
//
// FindByResourceID wraps [shared.ErrRecordNotFound] when no record matches.
type Backend interface {
	FindByResourceID(ctx context.Context, collection, resourceID string) (models.Record, error)
	Create(ctx context.Context, collection string, data map[string]any) (models.Record, error)
	Update(ctx context.Context, collection, id string, data map[string]any) (models.Record, error)
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string, page, perPage int) (*models.ListResult, error)
	Count(ctx context.Context, collection string) (int, error)
}

// Options controls a seeding run.
type Options struct {
	Reset   bool // Reset clears the collection before seeding
	DryRun  bool // DryRun performs every read but no writes
	Verbose bool // Verbose logs one line per record at info level
}

// RecordError is a failure tied to one fixture record (or to the fixture file itself).
type RecordError struct {
	Record  string `json:"record"`
	Message string `json:"message"`
}

// Result tallies a single seeder run.
//
// Every fixture record lands in exactly one of Added, Updated or Skipped. Skipped covers
// records that were up to date, invalid, or failed against the backend.
type Result struct {
	Seeder     string        `json:"seeder"`
	Collection string        `json:"collection"`
	Added      int           `json:"added"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Errors     []RecordError `json:"errors"`
	Elapsed    time.Duration `json:"elapsed"`
	StartedAt  time.Time     `json:"started_at"`
	DryRun     bool          `json:"dry_run"`
	Reset      bool          `json:"reset"`
}

// Total returns the number of records processed.
func (r *Result) Total() int {
	return r.Added + r.Updated + r.Skipped
}

// OK reports whether the run finished without errors.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

func (r *Result) fail(record string, err error) {
	r.Errors = append(r.Errors, RecordError{Record: record, Message: err.Error()})
}

// Transform derives the synthetic key and backend payload from a validated fixture record.
type Transform func(rec models.FixtureRecord) (key string, payload map[string]any, err error)

// Definition describes how one fixture maps onto one collection.
type Definition struct {
	Name       string
	Collection string
	Fixture    string   // Fixture is the default fixture file name
	Required   []string // Required field names, checked in order
	Transform  Transform
}

// CollectionSeeder implements [Seeder] for a [Definition].
type CollectionSeeder struct {
	def     Definition
	path    string
	backend Backend
	logger  *log.Logger
}

// New creates a [CollectionSeeder] reading its fixture from path.
func New(def Definition, path string, backend Backend, logger *log.Logger) *CollectionSeeder {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CollectionSeeder{
		def:     def,
		path:    path,
		backend: backend,
		logger:  shared.WithLogger(logger, "seeder", def.Name),
	}
}

func (s *CollectionSeeder) Name() string       { return s.def.Name }
func (s *CollectionSeeder) Collection() string { return s.def.Collection }

// Path returns the fixture file the seeder reads.
func (s *CollectionSeeder) Path() string { return s.path }

// Seed loads the fixture and creates or updates each record by its synthetic key.
//
// A fixture that cannot be loaded, or a failed reset, aborts the run: the result then holds
// a single error and Seed returns it. Per-record failures are collected and the batch continues.
func (s *CollectionSeeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{
		Seeder:     s.def.Name,
		Collection: s.def.Collection,
		Errors:     []RecordError{},
		StartedAt:  time.Now(),
		DryRun:     opts.DryRun,
		Reset:      opts.Reset,
	}
	defer func() { result.Elapsed = time.Since(result.StartedAt) }()

	if s.backend == nil {
		err := fmt.Errorf("%w: no backend configured", shared.ErrServiceUnavailable)
		result.fail(s.def.Collection, err)
		return result, err
	}

	records, err := LoadFixture(s.path)
	if err != nil {
		result.fail(s.path, err)
		return result, err
	}

	s.logger.Info("seeding", "collection", s.def.Collection, "records", len(records), "dry_run", opts.DryRun, "reset", opts.Reset)

	if opts.Reset {
		if err := s.reset(ctx, opts); err != nil {
			result.fail(s.def.Collection, err)
			return result, err
		}
	}

	seen := make(map[string]string, len(records))
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			result.fail(recordLabel(i, rec), err)
			result.Skipped += len(records) - i
			return result, err
		}
		s.seedRecord(ctx, opts, result, seen, i, rec)
	}

	s.logger.Info("done", "added", result.Added, "updated", result.Updated, "skipped", result.Skipped, "errors", len(result.Errors))
	return result, nil
}

func (s *CollectionSeeder) seedRecord(ctx context.Context, opts Options, result *Result, seen map[string]string, i int, rec models.FixtureRecord) {
	label := recordLabel(i, rec)

	key, payload, err := s.prepare(rec, label, seen)
	if err != nil {
		result.fail(label, err)
		result.Skipped++
		s.logf(opts, "skipped", "record", label, "error", err)
		return
	}

	// With reset in a dry run nothing was actually cleared, so every record would be new.
	if opts.Reset && opts.DryRun {
		result.Added++
		s.logf(opts, "would create", "record", label, "key", key)
		return
	}

	existing, err := s.backend.FindByResourceID(ctx, s.def.Collection, key)
	switch {
	case errors.Is(err, shared.ErrRecordNotFound):
		existing = nil
	case err != nil:
		result.fail(label, fmt.Errorf("lookup %s: %w", key, err))
		result.Skipped++
		return
	}

	if existing == nil {
		if opts.DryRun {
			result.Added++
			s.logf(opts, "would create", "record", label, "key", key)
			return
		}
		if _, err := s.backend.Create(ctx, s.def.Collection, payload); err != nil {
			result.fail(label, fmt.Errorf("create %s: %w", key, err))
			result.Skipped++
			return
		}
		result.Added++
		s.logf(opts, "created", "record", label, "key", key)
		return
	}

	if !NeedsUpdate(existing, payload) {
		result.Skipped++
		s.logf(opts, "up to date", "record", label, "key", key)
		return
	}

	if opts.DryRun {
		result.Updated++
		s.logf(opts, "would update", "record", label, "key", key, "id", existing.ID())
		return
	}
	if _, err := s.backend.Update(ctx, s.def.Collection, existing.ID(), payload); err != nil {
		result.fail(label, fmt.Errorf("update %s: %w", key, err))
		result.Skipped++
		return
	}
	result.Updated++
	s.logf(opts, "updated", "record", label, "key", key, "id", existing.ID())
}

// prepare validates a record and derives its key and payload, rejecting keys already used in this fixture.
func (s *CollectionSeeder) prepare(rec models.FixtureRecord, label string, seen map[string]string) (string, map[string]any, error) {
	if missing := MissingFields(rec, s.def.Required); len(missing) > 0 {
		return "", nil, fmt.Errorf("%w: missing required %s: %s",
			shared.ErrValidation, shared.Pluralize(len(missing), "field"), shared.JoinFields(missing))
	}

	key, payload, err := s.def.Transform(rec)
	if err != nil {
		return "", nil, err
	}

	if prev, dup := seen[key]; dup {
		return "", nil, fmt.Errorf("%w: %s also derived from record %s", shared.ErrDuplicateKey, key, prev)
	}
	seen[key] = label

	payload["resourceId"] = key
	return key, payload, nil
}

// reset deletes every record of the collection and checks the collection is empty afterwards.
func (s *CollectionSeeder) reset(ctx context.Context, opts Options) error {
	if opts.DryRun {
		count, err := s.backend.Count(ctx, s.def.Collection)
		if err != nil {
			return fmt.Errorf("count %s: %w", s.def.Collection, err)
		}
		s.logger.Warn("dry run: would clear collection", "collection", s.def.Collection, "records", count)
		return nil
	}

	deleted, lastFirst := 0, ""
	for {
		page, err := s.backend.List(ctx, s.def.Collection, 1, resetPageSize)
		if err != nil {
			return fmt.Errorf("list %s: %w", s.def.Collection, err)
		}
		if len(page.Items) == 0 || page.Items[0].ID() == lastFirst {
			break
		}
		lastFirst = page.Items[0].ID()
		for _, rec := range page.Items {
			if err := s.backend.Delete(ctx, s.def.Collection, rec.ID()); err != nil {
				return fmt.Errorf("delete %s/%s: %w", s.def.Collection, rec.ID(), err)
			}
			deleted++
		}
	}

	count, err := s.backend.Count(ctx, s.def.Collection)
	if err != nil {
		return fmt.Errorf("count %s: %w", s.def.Collection, err)
	}
	if count != 0 {
		return fmt.Errorf("%w: %s still has %d records", shared.ErrResetIncomplete, s.def.Collection, count)
	}

	s.logger.Warn("cleared collection", "collection", s.def.Collection, "deleted", deleted)
	return nil
}

func (s *CollectionSeeder) logf(opts Options, msg string, kv ...any) {
	if opts.Verbose {
		s.logger.Info(msg, kv...)
		return
	}
	s.logger.Debug(msg, kv...)
}

func recordLabel(i int, rec models.FixtureRecord) string {
	if id := rec.ID(); id != "" {
		return id
	}
	return fmt.Sprintf("#%d", i+1)
}

// NeedsUpdate reports whether any payload field differs from the stored record.
//
// The payload goes through a JSON round trip first so numbers compare as float64, the way
// they come back from the API. Fields the payload does not set are ignored. A null payload
// field matches a stored empty value, since PocketBase stores a cleared field as its zero value.
func NeedsUpdate(existing models.Record, payload map[string]any) bool {
	normalized, err := normalize(payload)
	if err != nil {
		return true
	}
	for k, v := range normalized {
		if v == nil {
			if !isEmpty(existing[k]) {
				return true
			}
			continue
		}
		if !reflect.DeepEqual(existing[k], v) {
			return true
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case float64:
		return v == 0
	case bool:
		return !v
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

func normalize(payload map[string]any) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// package models defines the data model for the seeding toolkit
package models

import (
	"fmt"
	"strconv"
	"time"
)

// FixtureRecord is one object of a JSON fixture file.
type FixtureRecord map[string]any

// ID returns the natural identifier of the record, or "" if absent.
func (f FixtureRecord) ID() string {
	return f.String("id")
}

// String returns the field as a string. Non-string scalars are formatted; missing fields yield "".
func (f FixtureRecord) String(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Record is a PocketBase record. System fields (id, collectionId, collectionName, created, updated)
// sit next to the collection's own fields.
type Record map[string]any

// ID returns the backend-assigned record id.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// ResourceID returns the synthetic key the record was seeded with.
func (r Record) ResourceID() string {
	id, _ := r["resourceId"].(string)
	return id
}

// ListResult is one page of a PocketBase records listing.
type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// SeedRun is a persisted summary of one seeder invocation.
type SeedRun struct {
	ID         string         `json:"id"`
	Sequence   int            `json:"sequence"`
	Seeder     string         `json:"seeder"`
	Collection string         `json:"collection"`
	Added      int            `json:"added"`
	Updated    int            `json:"updated"`
	Skipped    int            `json:"skipped"`
	DryRun     bool           `json:"dry_run"`
	Reset      bool           `json:"reset"`
	Elapsed    time.Duration  `json:"elapsed"`
	StartedAt  time.Time      `json:"started_at"`
	Errors     []SeedRunError `json:"errors,omitempty"`
	ErrorCount int            `json:"error_count"`
}

// SeedRunError is a (record, message) failure stored with a run.
type SeedRunError struct {
	Record  string `json:"record"`
	Message string `json:"message"`
}

// Validate checks the fields required to persist a run.
func (r *SeedRun) Validate() error {
	if r.Seeder == "" {
		return fmt.Errorf("seeder is required")
	}
	if r.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("started_at is required")
	}
	if r.Added < 0 || r.Updated < 0 || r.Skipped < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	return nil
}

// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/church-latin/internal/models"
	"github.com/julianstephens/church-latin/internal/shared"
)

// MockBackend is an in-memory test double for the seeder backend (a PocketBase instance).
//
// Errs injects an error for every call of an operation ("find", "create", "update", "delete",
// "list", "count", "health"). FailKeys injects an error for a single resourceId on create or update.
type MockBackend struct {
	records  map[string][]models.Record
	Calls    map[string]int
	Errs     map[string]error
	FailKeys map[string]error
	nextID   int
}

// NewMockBackend creates an empty MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		records:  make(map[string][]models.Record),
		Calls:    make(map[string]int),
		Errs:     make(map[string]error),
		FailKeys: make(map[string]error),
	}
}

// Put stores records directly, bypassing call accounting.
func (m *MockBackend) Put(collection string, recs ...models.Record) {
	for _, rec := range recs {
		stored := jsonRecord(rec)
		if stored.ID() == "" {
			stored["id"] = m.newID()
		}
		m.records[collection] = append(m.records[collection], stored)
	}
}

// Records returns a copy of the stored records of a collection.
func (m *MockBackend) Records(collection string) []models.Record {
	out := make([]models.Record, 0, len(m.records[collection]))
	for _, rec := range m.records[collection] {
		out = append(out, maps.Clone(rec))
	}
	return out
}

// Writes returns the number of mutating calls made.
func (m *MockBackend) Writes() int {
	return m.Calls["create"] + m.Calls["update"] + m.Calls["delete"]
}

func (m *MockBackend) newID() string {
	m.nextID++
	return fmt.Sprintf("rec%012d", m.nextID)
}

// jsonRecord copies data through a JSON round trip so stored values have the types a real API returns.
func jsonRecord(data map[string]any) models.Record {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(fmt.Sprintf("mock backend: unencodable record: %v", err))
	}
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		panic(fmt.Sprintf("mock backend: %v", err))
	}
	return rec
}

func (m *MockBackend) call(op string) error {
	m.Calls[op]++
	return m.Errs[op]
}

// Health fails only when Errs["health"] is set.
func (m *MockBackend) Health(ctx context.Context) error {
	return m.call("health")
}

func (m *MockBackend) FindByResourceID(ctx context.Context, collection, resourceID string) (models.Record, error) {
	if err := m.call("find"); err != nil {
		return nil, err
	}
	for _, rec := range m.records[collection] {
		if rec.ResourceID() == resourceID {
			return maps.Clone(rec), nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", shared.ErrRecordNotFound, collection, resourceID)
}

func (m *MockBackend) Create(ctx context.Context, collection string, data map[string]any) (models.Record, error) {
	if err := m.call("create"); err != nil {
		return nil, err
	}
	if key, _ := data["resourceId"].(string); m.FailKeys[key] != nil {
		return nil, m.FailKeys[key]
	}
	for _, rec := range m.records[collection] {
		if key, _ := data["resourceId"].(string); key != "" && rec.ResourceID() == key {
			return nil, fmt.Errorf("%w: resourceId %q must be unique", shared.ErrAPIRequest, key)
		}
	}

	rec := jsonRecord(data)
	rec["id"] = m.newID()
	rec["collectionName"] = collection
	m.records[collection] = append(m.records[collection], rec)
	return maps.Clone(rec), nil
}

func (m *MockBackend) Update(ctx context.Context, collection, id string, data map[string]any) (models.Record, error) {
	if err := m.call("update"); err != nil {
		return nil, err
	}
	if key, _ := data["resourceId"].(string); m.FailKeys[key] != nil {
		return nil, m.FailKeys[key]
	}
	for _, rec := range m.records[collection] {
		if rec.ID() == id {
			maps.Copy(rec, jsonRecord(data))
			return maps.Clone(rec), nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", shared.ErrRecordNotFound, collection, id)
}

func (m *MockBackend) Delete(ctx context.Context, collection, id string) error {
	if err := m.call("delete"); err != nil {
		return err
	}
	recs := m.records[collection]
	for i, rec := range recs {
		if rec.ID() == id {
			m.records[collection] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s", shared.ErrRecordNotFound, collection, id)
}

func (m *MockBackend) List(ctx context.Context, collection string, page, perPage int) (*models.ListResult, error) {
	if err := m.call("list"); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 30
	}

	all := m.records[collection]
	result := &models.ListResult{
		Page:       page,
		PerPage:    perPage,
		TotalItems: len(all),
		TotalPages: (len(all) + perPage - 1) / perPage,
		Items:      []models.Record{},
	}

	start := (page - 1) * perPage
	if start >= len(all) {
		return result, nil
	}
	end := min(start+perPage, len(all))
	for _, rec := range all[start:end] {
		result.Items = append(result.Items, maps.Clone(rec))
	}
	return result, nil
}

func (m *MockBackend) Count(ctx context.Context, collection string) (int, error) {
	if err := m.call("count"); err != nil {
		return 0, err
	}
	return len(m.records[collection]), nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// WriteFixture writes content to name inside dir and returns the full path.
func WriteFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

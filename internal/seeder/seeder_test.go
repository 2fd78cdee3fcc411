package seeder

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/julianstephens/church-latin/internal/models"
	"github.com/julianstephens/church-latin/internal/shared"
	tu "github.com/julianstephens/church-latin/internal/testing"
)

const modulesFixture = `[
  {"id": "module-01", "name": "Salve", "description": "Pronunciation and greetings"},
  {"id": "module-02", "name": "Ecclesia", "description": "First declension"},
  {"id": "module-03", "name": "Dominus", "description": "Second declension", "objectives": ["nouns", "cases"]}
]`

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newModuleSeeder(t *testing.T, fixture string, backend Backend) *CollectionSeeder {
	t.Helper()
	path := tu.WriteFixture(t, t.TempDir(), "modules.json", fixture)
	return New(Modules, path, backend, quietLogger())
}

// resetRecorder records the collection size seen by the first Create after a reset.
type resetRecorder struct {
	*tu.MockBackend
	countAtFirstCreate int
	creates            int
}

func (p *resetRecorder) Create(ctx context.Context, collection string, data map[string]any) (models.Record, error) {
	if p.creates == 0 {
		p.countAtFirstCreate = len(p.MockBackend.Records(collection))
	}
	p.creates++
	return p.MockBackend.Create(ctx, collection, data)
}

func TestCollectionSeeder_Seed(t *testing.T) {
	ctx := context.Background()

	t.Run("creates every record on an empty collection", func(t *testing.T) {
		backend := tu.NewMockBackend()
		s := newModuleSeeder(t, modulesFixture, backend)

		result, err := s.Seed(ctx, Options{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Added != 3 || result.Updated != 0 || result.Skipped != 0 {
			t.Errorf("expected 3/0/0, got %d/%d/%d", result.Added, result.Updated, result.Skipped)
		}
		if !result.OK() {
			t.Errorf("expected no errors, got %v", result.Errors)
		}

		records := backend.Records("modules")
		if len(records) != 3 {
			t.Fatalf("expected 3 stored records, got %d", len(records))
		}
		if records[0].ResourceID() != "CL_M01" {
			t.Errorf("expected resourceId CL_M01, got %s", records[0].ResourceID())
		}
		if records[2]["moduleNumber"] != float64(3) {
			t.Errorf("expected moduleNumber 3, got %v", records[2]["moduleNumber"])
		}
		if result.Elapsed <= 0 {
			t.Error("expected elapsed time to be recorded")
		}
	})

	t.Run("is idempotent across runs", func(t *testing.T) {
		backend := tu.NewMockBackend()
		s := newModuleSeeder(t, modulesFixture, backend)

		if _, err := s.Seed(ctx, Options{}); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		second, err := s.Seed(ctx, Options{})
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		if second.Added != 0 || second.Updated != 0 || second.Skipped != 3 {
			t.Errorf("expected 0/0/3 on an unchanged fixture, got %d/%d/%d", second.Added, second.Updated, second.Skipped)
		}
		if n := len(backend.Records("modules")); n != 3 {
			t.Errorf("expected no duplicates, got %d records", n)
		}
		if backend.Calls["update"] != 0 {
			t.Errorf("expected no update calls, got %d", backend.Calls["update"])
		}
	})

	t.Run("updates changed records in place", func(t *testing.T) {
		backend := tu.NewMockBackend()
		backend.Put("modules", models.Record{
			"id": "existing1", "resourceId": "CL_M01", "moduleNumber": 1,
			"name": "Old name", "description": "Pronunciation and greetings",
		})
		s := newModuleSeeder(t, modulesFixture, backend)

		result, err := s.Seed(ctx, Options{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Added != 2 || result.Updated != 1 {
			t.Errorf("expected 2 added and 1 updated, got %d/%d", result.Added, result.Updated)
		}

		records := backend.Records("modules")
		if records[0].ID() != "existing1" || records[0]["name"] != "Salve" {
			t.Errorf("expected existing record to be updated in place, got %v", records[0])
		}
	})

	t.Run("clears optional fields removed from the fixture", func(t *testing.T) {
		backend := tu.NewMockBackend()
		if _, err := newModuleSeeder(t, modulesFixture, backend).Seed(ctx, Options{}); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		edited := strings.Replace(modulesFixture, `, "objectives": ["nouns", "cases"]`, "", 1)
		result, err := newModuleSeeder(t, edited, backend).Seed(ctx, Options{})
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		if result.Added != 0 || result.Updated != 1 || result.Skipped != 2 {
			t.Errorf("expected 0/1/2, got %d/%d/%d", result.Added, result.Updated, result.Skipped)
		}
		if got := backend.Records("modules")[2]["objectives"]; got != nil {
			t.Errorf("expected objectives to be cleared, got %v", got)
		}

		third, err := newModuleSeeder(t, edited, backend).Seed(ctx, Options{})
		if err != nil {
			t.Fatalf("third run failed: %v", err)
		}
		if third.Updated != 0 || third.Skipped != 3 {
			t.Errorf("expected cleared record to stay up to date, got %d updated", third.Updated)
		}
	})

	t.Run("skips records missing required fields with one error each", func(t *testing.T) {
		backend := tu.NewMockBackend()
		fixture := `[
		  {"id": "module-01", "name": "Salve", "description": "ok"},
		  {"id": "module-02", "description": "no name"},
		  {"id": "module-03"},
		  {"name": "no id", "description": "x"},
		  {"id": "module-05", "name": "", "description": "empty name"}
		]`
		s := newModuleSeeder(t, fixture, backend)

		result, err := s.Seed(ctx, Options{})
		if err != nil {
			t.Fatalf("validation failures must not abort the run, got %v", err)
		}

		if result.Added != 1 || result.Skipped != 4 {
			t.Errorf("expected 1 added and 4 skipped, got %d/%d", result.Added, result.Skipped)
		}

		want := []RecordError{
			{Record: "module-02", Message: "validation failed: missing required field: name"},
			{Record: "module-03", Message: "validation failed: missing required fields: name, description"},
			{Record: "#4", Message: "validation failed: missing required field: id"},
			{Record: "module-05", Message: "validation failed: missing required field: name"},
		}
		if diff := cmp.Diff(want, result.Errors); diff != "" {
			t.Errorf("errors mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("identifier without a number is skipped", func(t *testing.T) {
		backend := tu.NewMockBackend()
		fixture := `[
		  {"id": "introduction", "name": "Intro", "description": "x"},
		  {"id": "module-02", "name": "Ecclesia", "description": "y"}
		]`
		s := newModuleSeeder(t, fixture, backend)

		result, err := s.Seed(ctx, Options{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Added != 1 || result.Skipped != 1 || len(result.Errors) != 1 {
			t.Fatalf("expected 1 added, 1 skipped, 1 error, got %+v", result)
		}
		if result.Errors[0].Record != "introduction" || !strings.Contains(result.Errors[0].Message, "no numeric component") {
			t.Errorf("unexpected error %+v", result.Errors[0])
		}
	})

	t.Run("duplicate synthetic keys are rejected", func(t *testing.T) {
		backend := tu.NewMockBackend()
		fixture := `[
		  {"id": "module-1", "name": "A", "description": "x"},
		  {"id": "module-01", "name": "B", "description": "y"}
		]`
		s := newModuleSeeder(t, fixture, backend)

		result, _ := s.Seed(ctx, Options{})

		if result.Added != 1 || len(result.Errors) != 1 {
			t.Fatalf("expected 1 added and 1 error, got %+v", result)
		}
		if !strings.Contains(result.Errors[0].Message, "module-1") {
			t.Errorf("expected error to name the first record, got %s", result.Errors[0].Message)
		}
	})

	t.Run("dry run never writes", func(t *testing.T) {
		backend := tu.NewMockBackend()
		backend.Put("modules", models.Record{
			"resourceId": "CL_M01", "moduleNumber": 1, "name": "Old", "description": "Pronunciation and greetings",
		})
		backend.Put("modules", models.Record{
			"resourceId": "CL_M02", "moduleNumber": 2, "name": "Ecclesia", "description": "First declension",
		})
		s := newModuleSeeder(t, modulesFixture, backend)

		result, err := s.Seed(ctx, Options{DryRun: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Added != 1 || result.Updated != 1 || result.Skipped != 1 {
			t.Errorf("expected hypothetical 1/1/1, got %d/%d/%d", result.Added, result.Updated, result.Skipped)
		}
		if backend.Writes() != 0 {
			t.Errorf("dry run made %d writes", backend.Writes())
		}
		if backend.Calls["find"] != 3 {
			t.Errorf("dry run should still look up every record, got %d lookups", backend.Calls["find"])
		}
		if !result.DryRun {
			t.Error("expected result to be flagged as dry run")
		}
	})

	t.Run("reset clears the collection before the first insert", func(t *testing.T) {
		recorder := &resetRecorder{MockBackend: tu.NewMockBackend()}
		for _, key := range []string{"CL_M01", "CL_M09", "STALE"} {
			recorder.Put("modules", models.Record{"resourceId": key, "name": "old"})
		}
		s := newModuleSeeder(t, modulesFixture, recorder)

		result, err := s.Seed(ctx, Options{Reset: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if recorder.countAtFirstCreate != 0 {
			t.Errorf("expected empty collection before first insert, got %d", recorder.countAtFirstCreate)
		}
		if recorder.Calls["delete"] != 3 {
			t.Errorf("expected 3 deletes, got %d", recorder.Calls["delete"])
		}
		if result.Added != 3 {
			t.Errorf("expected all records to be added after reset, got %d", result.Added)
		}
		if n := len(recorder.Records("modules")); n != 3 {
			t.Errorf("expected only fixture records to remain, got %d", n)
		}
	})

	t.Run("reset with dry run reports without deleting", func(t *testing.T) {
		backend := tu.NewMockBackend()
		backend.Put("modules", models.Record{"resourceId": "CL_M01", "name": "Salve"})
		s := newModuleSeeder(t, modulesFixture, backend)

		result, err := s.Seed(ctx, Options{Reset: true, DryRun: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if backend.Writes() != 0 {
			t.Errorf("expected no writes, got %d", backend.Writes())
		}
		if result.Added != 3 {
			t.Errorf("expected every record to count as added after a hypothetical reset, got %d", result.Added)
		}
	})

	t.Run("failed reset aborts the run", func(t *testing.T) {
		backend := tu.NewMockBackend()
		backend.Put("modules", models.Record{"resourceId": "CL_M01"})
		backend.Errs["delete"] = errors.New("forbidden")
		s := newModuleSeeder(t, modulesFixture, backend)

		result, err := s.Seed(ctx, Options{Reset: true})
		if err == nil {
			t.Fatal("expected reset error")
		}
		if len(result.Errors) != 1 || backend.Calls["create"] != 0 {
			t.Errorf("expected a single error and no inserts, got %+v", result)
		}
	})

	t.Run("backend errors are collected per record", func(t *testing.T) {
		backend := tu.NewMockBackend()
		backend.FailKeys["CL_M02"] = errors.New("connection reset")
		s := newModuleSeeder(t, modulesFixture, backend)

		result, err := s.Seed(ctx, Options{})
		if err != nil {
			t.Fatalf("record failures must not abort the run, got %v", err)
		}

		if result.Added != 2 || result.Skipped != 1 || len(result.Errors) != 1 {
			t.Fatalf("expected 2 added, 1 skipped, 1 error, got %+v", result)
		}
		if !strings.Contains(result.Errors[0].Message, "create CL_M02: connection reset") {
			t.Errorf("unexpected message %q", result.Errors[0].Message)
		}
	})

	t.Run("lookup errors are collected per record", func(t *testing.T) {
		backend := tu.NewMockBackend()
		backend.Errs["find"] = errors.New("timeout")
		s := newModuleSeeder(t, modulesFixture, backend)

		result, err := s.Seed(ctx, Options{})
		if err != nil {
			t.Fatalf("expected no run error, got %v", err)
		}
		if len(result.Errors) != 3 || result.Skipped != 3 || backend.Calls["create"] != 0 {
			t.Errorf("expected three lookup errors and no creates, got %+v", result)
		}
	})

	t.Run("fixture load failure is a single error", func(t *testing.T) {
		backend := tu.NewMockBackend()
		s := New(Modules, filepath.Join(t.TempDir(), "missing.json"), backend, quietLogger())

		result, err := s.Seed(ctx, Options{})
		if !errors.Is(err, shared.ErrFixtureLoad) {
			t.Fatalf("expected ErrFixtureLoad, got %v", err)
		}
		if len(result.Errors) != 1 {
			t.Errorf("expected exactly one error, got %d", len(result.Errors))
		}
		if result.Total() != 0 || len(backend.Calls) != 0 {
			t.Error("expected no records processed and no backend calls")
		}
	})

	t.Run("malformed fixture is a single error", func(t *testing.T) {
		s := newModuleSeeder(t, `{"id": "module-01"}`, tu.NewMockBackend())

		result, err := s.Seed(ctx, Options{})
		if !errors.Is(err, shared.ErrFixtureLoad) || len(result.Errors) != 1 {
			t.Errorf("expected single ErrFixtureLoad, got %v / %v", err, result.Errors)
		}
	})

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		s := newModuleSeeder(t, modulesFixture, tu.NewMockBackend())
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := s.Seed(cctx, Options{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Skipped != 3 || result.Added != 0 {
			t.Errorf("expected all records skipped, got %+v", result)
		}
	})

	t.Run("nil backend", func(t *testing.T) {
		s := newModuleSeeder(t, modulesFixture, nil)

		_, err := s.Seed(ctx, Options{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestNeedsUpdate(t *testing.T) {
	existing := models.Record{
		"id":           "abc",
		"resourceId":   "CL_M01",
		"moduleNumber": float64(1),
		"name":         "Salve",
		"tags":         []any{"a", "b"},
		"content":      "",
	}

	tests := []struct {
		name    string
		payload map[string]any
		want    bool
	}{
		{name: "identical with int number", payload: map[string]any{"resourceId": "CL_M01", "moduleNumber": 1, "name": "Salve"}, want: false},
		{name: "system fields ignored", payload: map[string]any{"name": "Salve"}, want: false},
		{name: "changed string", payload: map[string]any{"name": "Ave"}, want: true},
		{name: "changed number", payload: map[string]any{"moduleNumber": 2}, want: true},
		{name: "new field", payload: map[string]any{"objectives": []string{"x"}}, want: true},
		{name: "same nested array", payload: map[string]any{"tags": []string{"a", "b"}}, want: false},
		{name: "null matches absent field", payload: map[string]any{"objectives": nil}, want: false},
		{name: "null matches cleared text", payload: map[string]any{"content": nil}, want: false},
		{name: "null clears stored value", payload: map[string]any{"tags": nil}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsUpdate(existing, tt.payload); got != tt.want {
				t.Errorf("NeedsUpdate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend := tu.NewMockBackend()

	tu.WriteFixture(t, dir, "modules.json", modulesFixture)
	tu.WriteFixture(t, dir, "quizzes.json", `[{"id": "quiz-1", "lessonId": "lesson-1", "name": "Q", "description": "d",
	  "questions": [{"question": "Quid est?", "answer": "Ecclesia"}]}]`)

	seeders, err := Build([]string{"all"}, func(def Definition) string {
		return filepath.Join(dir, def.Fixture)
	}, backend, quietLogger())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	results, err := RunAll(ctx, seeders, Options{})
	if err == nil {
		t.Fatal("expected joined error for the missing lessons fixture")
	}
	if !errors.Is(err, shared.ErrFixtureLoad) {
		t.Errorf("expected ErrFixtureLoad in joined error, got %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected a result per seeder, got %d", len(results))
	}
	if results[0].Added != 3 || results[2].Added != 1 {
		t.Errorf("seeders after the failed one should still run, got %+v / %+v", results[0], results[2])
	}
	if ErrorCount(results) != 1 {
		t.Errorf("expected 1 error overall, got %d", ErrorCount(results))
	}
}

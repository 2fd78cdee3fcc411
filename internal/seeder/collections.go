package seeder

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/julianstephens/church-latin/internal/models"
	"github.com/julianstephens/church-latin/internal/shared"
)

// Synthetic key prefixes per collection.
const (
	ModuleKeyPrefix = "CL_M"
	LessonKeyPrefix = "CL_L"
	QuizKeyPrefix   = "CL_Q"
)

// ModuleKey returns the resourceId of a course module.
func ModuleKey(n int) string { return fmt.Sprintf("%s%02d", ModuleKeyPrefix, n) }

// LessonKey returns the resourceId of a lesson.
func LessonKey(n int) string { return fmt.Sprintf("%s%03d", LessonKeyPrefix, n) }

// QuizKey returns the resourceId of a lesson quiz.
func QuizKey(n int) string { return fmt.Sprintf("%s%03d", QuizKeyPrefix, n) }

// Modules maps modules.json onto the modules collection.
var Modules = Definition{
	Name:       "modules",
	Collection: "modules",
	Fixture:    "modules.json",
	Required:   []string{"id", "name", "description"},
	Transform:  moduleTransform,
}

// Lessons maps lessons.json onto the lessons collection.
var Lessons = Definition{
	Name:       "lessons",
	Collection: "lessons",
	Fixture:    "lessons.json",
	Required:   []string{"id", "moduleId", "name", "description"},
	Transform:  lessonTransform,
}

// Quizzes maps quizzes.json onto the quizzes collection.
var Quizzes = Definition{
	Name:       "quizzes",
	Collection: "quizzes",
	Fixture:    "quizzes.json",
	Required:   []string{"id", "lessonId", "name", "description", "questions"},
	Transform:  quizTransform,
}

// Definitions returns every known definition in dependency order.
func Definitions() []Definition {
	return []Definition{Modules, Lessons, Quizzes}
}

// Lookup returns the definition with the given name.
func Lookup(name string) (Definition, error) {
	for _, def := range Definitions() {
		if def.Name == name {
			return def, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %q", shared.ErrUnknownSeeder, name)
}

// Build creates seeders for the named definitions ("all" selects every one). resolve maps a
// definition to its fixture path.
func Build(names []string, resolve func(Definition) string, backend Backend, logger *log.Logger) ([]Seeder, error) {
	var defs []Definition
	for _, name := range names {
		if name == "all" {
			defs = Definitions()
			break
		}
		def, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	seeders := make([]Seeder, 0, len(defs))
	for _, def := range defs {
		seeders = append(seeders, New(def, resolve(def), backend, logger))
	}
	return seeders, nil
}

func moduleTransform(rec models.FixtureRecord) (string, map[string]any, error) {
	n, err := naturalNumber(rec, "id")
	if err != nil {
		return "", nil, err
	}

	payload := map[string]any{
		"moduleNumber": n,
		"name":         rec.String("name"),
		"description":  rec.String("description"),
	}
	setOptional(payload, rec, "objectives")
	return ModuleKey(n), payload, nil
}

func lessonTransform(rec models.FixtureRecord) (string, map[string]any, error) {
	lesson, err := naturalNumber(rec, "id")
	if err != nil {
		return "", nil, err
	}
	module, err := naturalNumber(rec, "moduleId")
	if err != nil {
		return "", nil, fmt.Errorf("moduleId: %w", err)
	}

	payload := map[string]any{
		"lessonNumber": lesson,
		"moduleNumber": module,
		"moduleKey":    ModuleKey(module),
		"name":         rec.String("name"),
		"description":  rec.String("description"),
	}
	setOptional(payload, rec, "content", "materials")
	return LessonKey(lesson), payload, nil
}

func quizTransform(rec models.FixtureRecord) (string, map[string]any, error) {
	quiz, err := naturalNumber(rec, "id")
	if err != nil {
		return "", nil, err
	}
	lesson, err := naturalNumber(rec, "lessonId")
	if err != nil {
		return "", nil, fmt.Errorf("lessonId: %w", err)
	}

	questions, ok := rec["questions"].([]any)
	if !ok || len(questions) == 0 {
		return "", nil, fmt.Errorf("%w: questions must be a non-empty array", shared.ErrValidation)
	}
	for i, q := range questions {
		obj, ok := q.(map[string]any)
		if !ok {
			return "", nil, fmt.Errorf("%w: question %d is not an object", shared.ErrValidation, i+1)
		}
		if missing := MissingFields(obj, []string{"question", "answer"}); len(missing) > 0 {
			return "", nil, fmt.Errorf("%w: question %d missing %s", shared.ErrValidation, i+1, shared.JoinFields(missing))
		}
	}

	payload := map[string]any{
		"lessonNumber":  lesson,
		"lessonKey":     LessonKey(lesson),
		"name":          rec.String("name"),
		"description":   rec.String("description"),
		"questions":     questions,
		"questionCount": len(questions),
	}
	setOptional(payload, rec, "passingScore")
	return QuizKey(quiz), payload, nil
}

// naturalNumber extracts the number from an identifier field. Numeric identifiers must be
// whole numbers.
func naturalNumber(rec models.FixtureRecord, field string) (int, error) {
	if v, ok := rec[field].(float64); ok && (v != math.Trunc(v) || v < 0) {
		return 0, fmt.Errorf("%w: %s %v is not a whole number", shared.ErrInvalidIdentifier, field, v)
	}
	return shared.ExtractNumber(rec.String(field))
}

// setOptional copies optional fields into payload. Absent fields are sent as null so a field
// removed from the fixture is cleared on the next update.
func setOptional(payload map[string]any, rec models.FixtureRecord, fields ...string) {
	for _, f := range fields {
		payload[f] = rec[f]
	}
}

package seeder

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/julianstephens/church-latin/internal/models"
	"github.com/julianstephens/church-latin/internal/shared"
)

var validate = validator.New()

// LoadFixture reads a JSON array of objects from path.
//
// Any read or parse failure wraps [shared.ErrFixtureLoad].
func LoadFixture(path string) ([]models.FixtureRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFixtureLoad, err)
	}

	var records []models.FixtureRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: expected a JSON array of objects: %v", shared.ErrFixtureLoad, path, err)
	}

	return records, nil
}

// MissingFields returns the required fields that are absent or empty in rec, in the order given.
func MissingFields(rec models.FixtureRecord, required []string) []string {
	var missing []string
	for _, field := range required {
		if err := validate.Var(rec[field], "required"); err != nil {
			missing = append(missing, field)
		}
	}
	return missing
}

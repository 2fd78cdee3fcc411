package seeder

// CheckResult is the offline validation report for one fixture.
type CheckResult struct {
	Seeder  string        `json:"seeder"`
	Fixture string        `json:"fixture"`
	Total   int           `json:"total"`
	Valid   int           `json:"valid"`
	Errors  []RecordError `json:"errors"`
}

// Check validates the fixture without touching the backend: required fields, key derivation
// and key uniqueness.
func (s *CollectionSeeder) Check() (*CheckResult, error) {
	result := &CheckResult{Seeder: s.def.Name, Fixture: s.path, Errors: []RecordError{}}

	records, err := LoadFixture(s.path)
	if err != nil {
		result.Errors = append(result.Errors, RecordError{Record: s.path, Message: err.Error()})
		return result, err
	}

	seen := make(map[string]string, len(records))
	result.Total = len(records)
	for i, rec := range records {
		label := recordLabel(i, rec)
		if _, _, err := s.prepare(rec, label, seen); err != nil {
			result.Errors = append(result.Errors, RecordError{Record: label, Message: err.Error()})
			continue
		}
		result.Valid++
	}

	return result, nil
}

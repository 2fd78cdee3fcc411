package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// Backend errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRecordNotFound     = fmt.Errorf("record not found")

	// Seeding errors
	ErrFixtureLoad       = fmt.Errorf("failed to load fixture")
	ErrValidation        = fmt.Errorf("validation failed")
	ErrInvalidIdentifier = fmt.Errorf("invalid identifier")
	ErrDuplicateKey      = fmt.Errorf("duplicate resource id")
	ErrResetIncomplete   = fmt.Errorf("collection not empty after reset")
	ErrSeedFailed        = fmt.Errorf("seeding finished with errors")
	ErrUnknownSeeder     = fmt.Errorf("unknown seeder")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

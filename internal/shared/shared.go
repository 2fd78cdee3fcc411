// package shared defines shared helpers
package shared

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var digitsRe = regexp.MustCompile(`\d+`)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// ExtractNumber returns the first run of digits in a fixture identifier as an int.
//
// "module-03" yields 3. Identifiers without digits wrap [ErrInvalidIdentifier].
func ExtractNumber(id string) (int, error) {
	match := digitsRe.FindString(id)
	if match == "" {
		return 0, fmt.Errorf("%w: %q has no numeric component", ErrInvalidIdentifier, id)
	}

	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidIdentifier, id, err)
	}
	return n, nil
}

// Pluralize returns word with an "s" appended unless n is 1.
func Pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// JoinFields renders a list of field names for messages.
func JoinFields(fields []string) string {
	return strings.Join(fields, ", ")
}

package pocketbase

import (
	"fmt"
	"strings"
)

var filterEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// EscapeFilterValue escapes a string for use inside a single-quoted filter literal.
func EscapeFilterValue(v string) string {
	return filterEscaper.Replace(v)
}

// Eq builds a "field='value'" filter expression.
func Eq(field, value string) string {
	return fmt.Sprintf("(%s='%s')", field, EscapeFilterValue(value))
}

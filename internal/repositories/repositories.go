package repositories

import (
	"database/sql"
	"fmt"
)

// nextSequenceTx increments and returns the next sequence number for the given table inside tx.
//
// The counter lives in "<table>_sequence", a single-row table created by the table's migration.
func nextSequenceTx(tx *sql.Tx, table string) (int, error) {
	counter := table + "_sequence"

	var sequence int
	err := tx.QueryRow(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1 RETURNING value", counter)).Scan(&sequence)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("sequence table %s is not initialised", counter)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}

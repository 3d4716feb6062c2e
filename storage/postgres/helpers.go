package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// emptySlice keeps NOT NULL text[] columns happy when a record carries no
// values.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

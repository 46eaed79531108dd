// Package sqlxdb implements the domain repositories on PostgreSQL via
// sqlx. Sorting and paging happen in SQL; annotation counts come from
// grouped aggregates, never one count query per row.
package sqlxdb

import (
	"strconv"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

func itoa(n int) string { return strconv.Itoa(n) }

// like wraps a cleaned search term for ILIKE matching; empty matches all.
func like(search string) string { return "%" + search + "%" }

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// querier is the subset of pgx execution methods the repositories use.
// It is satisfied by *pgxpool.Pool, pgx.Tx, and pgxmock pools, so the
// same repository code runs inside and outside transactions and under
// test.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// valuesClause builds a multi-row VALUES placeholder list, e.g.
// ($1,$2),($3,$4) for rows=2, cols=2.
func valuesClause(rows, cols int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// orderClause resolves an orderBy request against a repository's
// allowed columns. The entity ID is always the tiebreaker so pagination
// is stable. An unknown column is rejected rather than interpolated.
func orderClause(orderBy, idColumn string, allowed map[string]bool) (string, error) {
	if orderBy == "" {
		return "ORDER BY " + idColumn, nil
	}
	if !allowed[orderBy] {
		return "", oops.Code("INVALID_ORDER_COLUMN").
			With("column", orderBy).
			Errorf("cannot order by %q", orderBy)
	}
	return "ORDER BY " + orderBy + ", " + idColumn, nil
}

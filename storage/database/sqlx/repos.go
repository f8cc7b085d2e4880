// Package sqlxrepos implements the repositories on Postgres.
//
// Writes & single row reads use sqlx; filtered listings are built with sqlboiler query mods.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/beasiswa/core"
)

const pqUniqueViolation = "23505"

var dialect = drivers.Dialect{
	LQ:                   '"',
	RQ:                   '"',
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

// newQuery builds a postgres query from query mods.
func newQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern is an ILIKE pattern matching `s` as a plain substring.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// orderBy quotes the requested orderings, falling back to `dflt`.
func orderBy(ordering []core.DBOrdering, dflt string) qm.QueryMod {
	if len(ordering) == 0 {
		return qm.OrderBy(dflt)
	}
	clause := ""
	for i, ord := range ordering {
		if i > 0 {
			clause += ", "
		}
		ord.Field = strmangle.IdentQuote(dialect.LQ, dialect.RQ, ord.Field)
		clause += ord.String()
	}
	return qm.OrderBy(clause)
}

// trapNoRowsErr maps psql "no rows" err to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == pqUniqueViolation
}

// checkAffected returns notFound when no row was affected.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// insert runs a named INSERT ... RETURNING id and returns the new ID.
func insert(ctx context.Context, db sqlx.ExtContext, query string, arg interface{}) (int64, error) {
	q, args, err := db.BindNamed(query, arg)
	if err != nil {
		return 0, err
	}
	var id int64
	err = sqlx.GetContext(ctx, db, &id, q, args...)
	return id, err
}

// withTx runs fn in a transaction, committed if fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Package repository implements the service stores on MySQL through
// database/sql.  Each repo owns one table.  InventoryRepo composes the
// seat, hold and booking repos inside transactions that lock the
// affected show_seats rows, so that holds, releases and commits on one
// show are serialized by the database across every server instance.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/showtime-booking/internal/apperr"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique violation on the named
// index.  An empty index matches any unique violation.
func isDuplicateKey(err error, index string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return false
	}
	return index == "" || strings.Contains(me.Message, index)
}

// notFound maps sql.ErrNoRows to apperr.ErrNotFound for entity.
func notFound(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity)
	}
	return err
}

// rollback is deferred by every transactional method; it is a no-op
// once the transaction has been committed.
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

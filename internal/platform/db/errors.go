package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQL エラー番号
const (
	erDupEntry        = 1062
	erNoReferencedRow = 1452
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
)

// ErrTransient はリトライで解消し得る失敗（ロック待ちタイムアウト、デッドロック、切断）
var ErrTransient = errors.New("transient store failure")

// Classify wraps transient driver failures so callers can match them with errors.Is(err, ErrTransient).
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == erLockWaitTimeout || me.Number == erLockDeadlock
	}
	return false
}

// IsDuplicate reports a unique key violation.
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == erDupEntry
}

// IsMissingParent reports a foreign key violation on insert (parent row is gone).
func IsMissingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == erNoReferencedRow
}

// RetryTransient runs fn and re-runs it up to retries more times while it fails with ErrTransient.
// onRetry (optional) is called before each re-run.
func RetryTransient(ctx context.Context, retries int, onRetry func(attempt int, err error), fn func() error) error {
	err := fn()
	for attempt := 1; attempt <= retries && errors.Is(err, ErrTransient); attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		err = fn()
	}
	return err
}

package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/platform/config"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	for _, err := range []error{
		&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"},
		&mysql.MySQLError{Number: 1213, Message: "Deadlock found"},
		driver.ErrBadConn,
		mysql.ErrInvalidConn,
		fmt.Errorf("insert order: %w", &mysql.MySQLError{Number: 1213}),
	} {
		got := Classify(err)
		assert.ErrorIs(t, got, ErrTransient, err.Error())
		assert.ErrorIs(t, got, err)
	}

	plain := errors.New("syntax error")
	assert.Same(t, plain, Classify(plain))

	once := Classify(driver.ErrBadConn)
	assert.Equal(t, once, Classify(once))
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(fmt.Errorf("x: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1205}))
	assert.False(t, IsDuplicate(errors.New("dup")))
	assert.True(t, IsMissingParent(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsMissingParent(&mysql.MySQLError{Number: 1062}))
}

func TestRetryTransient(t *testing.T) {
	ctx := context.Background()

	t.Run("retries once then succeeds", func(t *testing.T) {
		calls, retries := 0, 0
		err := RetryTransient(ctx, 1, func(int, error) { retries++ }, func() error {
			calls++
			if calls == 1 {
				return Classify(&mysql.MySQLError{Number: 1213})
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, retries)
	})

	t.Run("gives up after the last retry", func(t *testing.T) {
		calls := 0
		err := RetryTransient(ctx, 1, nil, func() error {
			calls++
			return Classify(driver.ErrBadConn)
		})
		assert.ErrorIs(t, err, ErrTransient)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := RetryTransient(ctx, 3, nil, func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		err := RetryTransient(cctx, 3, nil, func() error {
			calls++
			return Classify(driver.ErrBadConn)
		})
		assert.ErrorIs(t, err, ErrTransient)
		assert.Equal(t, 1, calls)
	})
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: 3307, Username: "app", Password: "pw", DBName: "rental", LockWaitTimeout: 3,
	})
	assert.True(t, strings.HasPrefix(dsn, "app:pw@tcp(db:3307)/rental?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "innodb_lock_wait_timeout=3")
	assert.Contains(t, dsn, "transaction_isolation=")

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "rental", cfg.DBName)
}

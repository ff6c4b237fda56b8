package skibbadb_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/skibbadb"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := skibbadb.NewNotFoundError("users", "u1")
		assert.Equal(t, `skibbadb: users: no document with id u1`, err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := skibbadb.NewNotFoundError("posts", "p1")
		assert.True(t, errors.Is(err, skibbadb.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := skibbadb.NewNotFoundError("comments", "c1")
		assert.True(t, skibbadb.IsNotFound(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, skibbadb.IsNotFound(wrapped))

		assert.True(t, skibbadb.IsNotFound(skibbadb.ErrNotFound))
		assert.False(t, skibbadb.IsNotFound(errors.New("other error")))
		assert.False(t, skibbadb.IsNotFound(nil))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("ErrorWithField", func(t *testing.T) {
		err := skibbadb.NewValidationError("users", "email", "invalid format")
		assert.Equal(t, `skibbadb: users: field "email": invalid format`, err.Error())
	})

	t.Run("ErrorWithoutField", func(t *testing.T) {
		err := skibbadb.NewValidationError("users", "", "document is not an object")
		assert.Equal(t, "skibbadb: users: document is not an object", err.Error())
	})

	t.Run("IsValidationError", func(t *testing.T) {
		err := skibbadb.NewValidationError("users", "age", "must be positive")
		assert.True(t, skibbadb.IsValidationError(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, skibbadb.IsValidationError(wrapped))

		assert.False(t, skibbadb.IsValidationError(errors.New("other error")))
		assert.False(t, skibbadb.IsValidationError(nil))
	})
}

func TestUniqueConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := skibbadb.NewUniqueConstraintError("users", "email", "a@example.com")
		assert.Equal(t, `skibbadb: users: unique constraint violated on "email" (value=a@example.com)`, err.Error())
	})

	t.Run("IsUniqueConstraintError", func(t *testing.T) {
		err := skibbadb.NewUniqueConstraintError("users", "email", "a@example.com")
		assert.True(t, skibbadb.IsUniqueConstraintError(err))
		assert.False(t, skibbadb.IsUniqueConstraintError(errors.New("other error")))
		assert.False(t, skibbadb.IsUniqueConstraintError(nil))
	})
}

func TestDatabaseError(t *testing.T) {
	t.Run("ErrorWithWrap", func(t *testing.T) {
		underlying := errors.New("pool exhausted")
		err := skibbadb.NewDatabaseError(skibbadb.ConnectionPoolExhausted, "no idle connections", underlying)
		assert.Equal(t, "skibbadb: CONNECTION_POOL_EXHAUSTED: no idle connections: pool exhausted", err.Error())
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsDatabaseErrorMatchesCode", func(t *testing.T) {
		err := skibbadb.NewDatabaseError(skibbadb.BreakingMigration, "dropped column", nil)
		assert.True(t, skibbadb.IsDatabaseError(err, skibbadb.BreakingMigration))
		assert.False(t, skibbadb.IsDatabaseError(err, skibbadb.DBNotInitialized))
		assert.True(t, skibbadb.IsDatabaseError(err, ""))
		assert.False(t, skibbadb.IsDatabaseError(nil, skibbadb.BreakingMigration))
	})
}

func TestHookError(t *testing.T) {
	underlying := errors.New("connection reset")
	err := skibbadb.NewHookError("before_insert", underlying)
	assert.Equal(t, `skibbadb: hook "before_insert" failed: connection reset`, err.Error())
	assert.True(t, errors.Is(err, underlying))
}

func TestHookTimeoutError(t *testing.T) {
	err := skibbadb.NewHookTimeoutError("after_insert")
	assert.Equal(t, `skibbadb: hook "after_insert" timed out`, err.Error())
}

func TestAggregateError(t *testing.T) {
	t.Run("NoErrors", func(t *testing.T) {
		err := skibbadb.NewAggregateError()
		assert.Nil(t, err)
	})

	t.Run("NilErrors", func(t *testing.T) {
		err := skibbadb.NewAggregateError(nil, nil, nil)
		assert.Nil(t, err)
	})

	t.Run("SingleError", func(t *testing.T) {
		single := errors.New("single error")
		err := skibbadb.NewAggregateError(single)
		assert.Equal(t, single, err)
	})

	t.Run("MultipleErrors", func(t *testing.T) {
		err1 := errors.New("error 1")
		err2 := errors.New("error 2")
		err := skibbadb.NewAggregateError(err1, err2)

		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "multiple errors")
		assert.Contains(t, err.Error(), "error 1")
		assert.Contains(t, err.Error(), "error 2")
	})

	t.Run("MixedNilAndErrors", func(t *testing.T) {
		err1 := errors.New("error 1")
		err := skibbadb.NewAggregateError(nil, err1, nil)

		require.NotNil(t, err)
		assert.Equal(t, err1, err)
	})
}

func TestSentinelErrors(t *testing.T) {
	assert.Contains(t, skibbadb.ErrNotFound.Error(), "not found")
	assert.Contains(t, skibbadb.ErrTxStarted.Error(), "transaction")
	assert.Contains(t, skibbadb.ErrClosedTx.Error(), "closed database")
}

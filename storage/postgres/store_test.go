package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
	"github.com/melnik909-create/wechselmodell/storage"
)

// openTestStore connects to WECHSELMODELL_TEST_DATABASE_URL or skips the test.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("WECHSELMODELL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("WECHSELMODELL_TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(ctx, db))

	return New(db)
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil, "ignored"))
	assert.True(t, storage.IsErrorType(translateError(sql.ErrNoRows, "missing"), storage.ErrNotFound))
	assert.True(t, storage.IsErrorType(translateError(&pq.Error{Code: uniqueViolation}, "dup"), storage.ErrConflict))
	assert.True(t, storage.IsErrorType(translateError(errors.New("boom"), "other"), storage.ErrStorageUnavailable))
}

func TestStore_PatternLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	family := uuid.New()

	first := &custody.CustodyPattern{
		ID:             uuid.New(),
		FamilyID:       family,
		Type:           custody.PatternCustom,
		StartDate:      dateutil.Date(2024, 1, 1),
		CustomSequence: []custody.Parent{custody.ParentA, custody.ParentB, custody.ParentB},
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.CreatePattern(ctx, first))

	second := &custody.CustodyPattern{
		ID:             uuid.New(),
		FamilyID:       family,
		Type:           custody.PatternAlternatingWeek,
		StartDate:      dateutil.Date(2024, 2, 5),
		StartingParent: custody.ParentB,
	}
	require.NoError(t, store.CreatePattern(ctx, second))

	active, err := store.GetActivePattern(ctx, family)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, dateutil.Date(2024, 2, 5), active.StartDate)

	patterns, err := store.ListPatterns(ctx, family)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.False(t, patterns[1].IsActive)
	assert.Equal(t, first.CustomSequence, patterns[1].CustomSequence)

	families, err := store.ListActiveFamilies(ctx)
	require.NoError(t, err)
	assert.Contains(t, families, family)
}

func TestStore_ExceptionAcceptanceGate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	family := uuid.New()
	date := dateutil.Date(2024, 5, 10)

	newEx := func() *custody.CustodyException {
		return &custody.CustodyException{
			ID:             uuid.New(),
			FamilyID:       family,
			Date:           date,
			OriginalParent: custody.ParentA,
			NewParent:      custody.ParentB,
			Reason:         custody.ReasonHoliday,
			Note:           "Pfingsten",
			Status:         custody.StatusProposed,
			ProposedBy:     custody.ParentA,
		}
	}
	a, b := newEx(), newEx()
	require.NoError(t, store.CreateException(ctx, a))
	require.NoError(t, store.CreateException(ctx, b))

	accepted, err := store.RespondToException(ctx, family, a.ID, custody.StatusAccepted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, custody.StatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	_, err = store.RespondToException(ctx, family, b.ID, custody.StatusAccepted, time.Now())
	assert.True(t, storage.IsErrorType(err, storage.ErrConflict))

	_, err = store.RespondToException(ctx, family, a.ID, custody.StatusRejected, time.Now())
	assert.True(t, storage.IsErrorType(err, storage.ErrConflict))

	list, err := store.ListExceptions(ctx, family, &storage.ExceptionFilter{
		Statuses: []custody.Status{custody.StatusAccepted},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, "Pfingsten", list[0].Note)

	require.NoError(t, store.DeleteException(ctx, family, b.ID))
	_, err = store.GetException(ctx, family, b.ID)
	assert.True(t, storage.IsErrorType(err, storage.ErrNotFound))
}

package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/neurovault/vault/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "postgres"), 100), mock
}

func anyArgs(n int) []driver.Value {
	out := make([]driver.Value, n)
	for i := range out {
		out[i] = sqlmock.AnyArg()
	}
	return out
}

func sampleChangeset() *domain.Changeset {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	owner := uuid.New()
	entry := domain.NewVaultEntry(1, owner, 1, 100, domain.Minutes(60), now)
	return &domain.Changeset{
		Settings: &domain.VaultSettings{PooledBalance: 100, LockPeriodMinutes: 60},
		Entries:  []domain.VaultEntry{entry},
		Activities: []domain.Activity{{
			ID: 3, Principal: owner, Type: domain.ActivityLock, Amount: 100, RefID: 1, CreatedAt: now,
		}},
	}
}

func TestCommit_WritesChangesetInOneTx(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vault_settings`)).
		WithArgs(int64(100), int64(60)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vault_entries`)).
		WithArgs(anyArgs(11)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO activities`)).
		WithArgs(anyArgs(7)...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vault_sequences`)).
		WithArgs("entry", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vault_sequences`)).
		WithArgs("activity", int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Commit(context.Background(), sampleChangeset()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_RollsBackOnError(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vault_settings`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vault_entries`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Commit(context.Background(), sampleChangeset())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "store.Commit entry: disk full"), err.Error())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_DeletesAndAdmins(t *testing.T) {
	store, mock := newStoreWithMock(t)
	added, removed := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vault_admins`)).
		WithArgs(added.String()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM vault_admins`)).
		WithArgs(removed.String()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products WHERE id = $1`)).
		WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM instruments WHERE id = $1`)).
		WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Commit(context.Background(), &domain.Changeset{
		AddedAdmins:        []uuid.UUID{added},
		RemovedAdmins:      []uuid.UUID{removed},
		DeletedProducts:    []domain.ProductID{4},
		DeletedInstruments: []domain.InstrumentID{2},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_RebuildsState(t *testing.T) {
	store, mock := newStoreWithMock(t)
	admin := uuid.New()
	owner := uuid.New()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM vault_settings`)).
		WillReturnRows(sqlmock.NewRows([]string{"pooled_balance", "lock_period_minutes"}).AddRow(int64(250), int64(90)))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM vault_admins`)).
		WillReturnRows(sqlmock.NewRows([]string{"principal"}).AddRow(admin.String()))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "available_durations", "is_active", "created_at", "updated_at"}).
			AddRow(int64(1), "Gold", "", []byte(`[{"kind":"flexible"},{"kind":"minutes","minutes":60}]`), true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM vault_entries`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "product_id", "amount", "selected_duration", "is_flexible",
			"locked_at", "unlock_time", "status", "unlocked_at", "emergency"}).
			AddRow(int64(7), owner.String(), int64(1), int64(250), []byte(`{"kind":"flexible"}`), true,
				now, nil, "locked", nil, false))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM dividend_distributions`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM dividend_claims`)).
		WillReturnRows(sqlmock.NewRows([]string{"owner"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM instruments`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM instrument_investments`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM faucet_grants`)).
		WillReturnRows(sqlmock.NewRows([]string{"principal"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM activities`)).WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM vault_sequences`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "value"}).
			AddRow("product", int64(3)).AddRow("entry", int64(7)).AddRow("activity", int64(12)))

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(250), st.Settings.PooledBalance)
	assert.Equal(t, int64(90), st.Settings.LockPeriodMinutes)
	assert.True(t, st.IsAdmin(admin))
	require.Contains(t, st.Products, domain.ProductID(1))
	assert.True(t, st.Products[1].Durations.Contains(domain.Minutes(60)))
	require.Contains(t, st.Entries, domain.EntryID(7))
	assert.True(t, st.Entries[7].IsLocked())
	assert.Nil(t, st.Entries[7].UnlockTime)
	assert.Equal(t, int64(250), st.TotalLocked())
	assert.Equal(t, uint64(3), st.Seq.Product)
	assert.Equal(t, uint64(7), st.Seq.Entry)
	assert.Equal(t, uint64(12), st.Seq.Activity)
}

func TestLoad_PropagatesErrors(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM vault_settings`)).WillReturnError(errors.New("conn reset"))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.Load settings")
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Commit(ctx, sampleChangeset()))

	st, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), st.Settings.PooledBalance)
	assert.Len(t, st.Entries, 1)
	assert.Len(t, st.Activities, 1)
	assert.Equal(t, uint64(3), st.Seq.Activity)

	// Loaded state is a copy.
	st.Settings.PooledBalance = 0
	again, _ := store.Load(ctx)
	assert.Equal(t, int64(100), again.Settings.PooledBalance)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	ctx := context.Background()

	_, err := kv.Get(ctx, "water_alert_settings")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "water_alert_settings", `{"recipients":[]}`))
	v, err := kv.Get(ctx, "water_alert_settings")
	require.NoError(t, err)
	assert.Equal(t, `{"recipients":[]}`, v)

	require.NoError(t, kv.Set(ctx, "water_alert_settings", `{"recipients":["a@b.com"]}`))
	v, err = kv.Get(ctx, "water_alert_settings")
	require.NoError(t, err)
	assert.Equal(t, `{"recipients":["a@b.com"]}`, v)

	_, err = kv.Get(ctx, "water_alert_settings:pond-1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestFileKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	exerciseKV(t, NewFileKV(path))
}

func TestFileKV_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	require.NoError(t, NewFileKV(path).Set(ctx, "k", "v"))

	v, err := NewFileKV(path).Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFileKV_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileKV(path).Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMiss))
}

func TestRedisKV(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseKV(t, NewRedisKV(client, 0))
}

func TestRedisKV_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	kv := NewRedisKV(client, time.Minute)
	require.NoError(t, kv.Set(context.Background(), "k", "v"))
	assert.True(t, mr.TTL("k") > 0)
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresKV) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresKV(db)
}

func TestPostgresKV_GetMiss(t *testing.T) {
	db, mock, kv := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT value FROM console_kv`).
		WithArgs("water_alert_settings").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := kv.Get(context.Background(), "water_alert_settings")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKV_SetThenGet(t *testing.T) {
	db, mock, kv := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO console_kv`).
		WithArgs("k", `{"a":1}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT value FROM console_kv`).
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"a":1}`))

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "k", `{"a":1}`))
	v, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKV_Errors(t *testing.T) {
	db, mock, kv := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS console_kv`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO console_kv`).WithArgs("k", "v").WillReturnError(errors.New("conn reset"))

	ctx := context.Background()
	require.NoError(t, kv.EnsureSchema(ctx))
	err := kv.Set(ctx, "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

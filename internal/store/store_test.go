package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendly/internal/config"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, SlotLegacyX)
	require.NoError(t, err)
	assert.False(t, ok, "missing slot reads as absent")

	require.NoError(t, kv.Set(ctx, SlotData, `{"subjects":[]}`))
	v, ok, err := kv.Get(ctx, SlotData)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"subjects":[]}`, v)

	require.NoError(t, kv.Set(ctx, SlotData, `{"subjects":[1]}`))
	v, _, err = kv.Get(ctx, SlotData)
	require.NoError(t, err)
	assert.Equal(t, `{"subjects":[1]}`, v, "set overwrites")

	require.NoError(t, kv.Set(ctx, SlotThemeMode, ""))
	_, ok, err = kv.Get(ctx, SlotThemeMode)
	require.NoError(t, err)
	assert.False(t, ok, "empty value reads as absent")

	assert.True(t, kv.Healthy(ctx))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseKV(t, m)
	assert.Equal(t, 2, m.Writes(SlotData))
}

func TestMemory_SetErr(t *testing.T) {
	m := NewMemory()
	m.SetErr = errors.New("quota exceeded")

	err := m.Set(context.Background(), SlotData, "x")
	assert.ErrorIs(t, err, m.SetErr)
	_, ok, _ := m.Get(context.Background(), SlotData)
	assert.False(t, ok)
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "attendly.db")
	db, err := NewSQLite(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	exerciseKV(t, db)

	// reopening sees the same data
	require.NoError(t, db.Close())
	db, err = NewSQLite(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()
	v, ok, err := db.Get(context.Background(), SlotData)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"subjects":[1]}`, v)
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := NewPostgres(context.Background(), url)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Client.Exec(`DELETE FROM kv_slots`)
	require.NoError(t, err)

	exerciseKV(t, db)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	r := NewRedis(addr, "attendly-test:")
	defer r.Close()
	ctx := context.Background()
	for _, s := range []Slot{SlotData, SlotLegacyV2, SlotLegacyX, SlotThemeMode} {
		require.NoError(t, r.Client.Del(ctx, r.key(s)).Err())
	}

	exerciseKV(t, r)
}

func TestOpen(t *testing.T) {
	kv, err := Open(context.Background(), config.App{StorageBackend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	kv, err = Open(context.Background(), config.App{StorageBackend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	assert.IsType(t, &DB{}, kv)
	require.NoError(t, kv.Close())

	_, err = Open(context.Background(), config.App{StorageBackend: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheelofnames/internal/rowstore"
)

func TestNewDB_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(ctx, "sqlite", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, rowstore.SQLite, db.Dialect)
	assert.True(t, db.Healthy(ctx))
	require.NoError(t, rowstore.NewSQL(db.Client, db.Dialect).Migrate(ctx))
}

func TestNewDB_UnknownDriver(t *testing.T) {
	_, err := NewDB(context.Background(), "oracle", "")
	assert.Error(t, err)
}

func TestHealthy_Nil(t *testing.T) {
	var db *DB
	assert.False(t, db.Healthy(context.Background()))
	assert.NoError(t, db.Close())

	var r *Redis
	assert.False(t, r.Healthy(context.Background()))
	assert.NoError(t, r.Close())
}

func TestRedis_UnreachableIsUnhealthy(t *testing.T) {
	r := NewRedis("127.0.0.1:1")
	defer r.Close()
	assert.Equal(t, "127.0.0.1:1", r.Addr)

	start := time.Now()
	assert.False(t, r.Healthy(context.Background()))
	assert.Less(t, time.Since(start), 3*time.Second)
}

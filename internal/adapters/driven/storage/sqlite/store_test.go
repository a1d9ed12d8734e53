package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "docs", "k1", []byte("v1")))

	got, err := s.Get(ctx, "docs", "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "docs", "k1", []byte("old")))
	require.NoError(t, s.Put(ctx, "docs", "k1", []byte("new")))

	got, err := s.Get(ctx, "docs", "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "docs", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_BinaryBlob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	blob := []byte{0x1f, 0x8b, 0x00, 0xff, 0xfe, 0x00, 0x01}
	require.NoError(t, s.Put(ctx, "snapshots", "ann", blob))

	got, err := s.Get(ctx, "snapshots", "ann")
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestStore_GetAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "docs", "k1", []byte("v1")))
	require.NoError(t, s.Put(ctx, "docs", "k2", []byte("v2")))
	require.NoError(t, s.Put(ctx, "other", "k3", []byte("v3")))

	all, err := s.GetAll(ctx, "docs")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, []byte("v1"), all["k1"])
	assert.Equal(t, []byte("v2"), all["k2"])
}

func TestStore_ClearAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "docs", "k1", []byte("v1")))
	require.NoError(t, s.Put(ctx, "docs", "k2", []byte("v2")))

	require.NoError(t, s.Delete(ctx, "docs", "k1"))
	_, err := s.Get(ctx, "docs", "k1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Clear(ctx, "docs"))
	all, err := s.GetAll(ctx, "docs")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, "docs", "k1", []byte("survives")))
	require.NoError(t, s1.Close())

	s2, err := NewStore(dir)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "docs", "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("survives"), got)
}

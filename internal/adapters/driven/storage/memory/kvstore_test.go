package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func TestKVStore_PutGet(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "docs", "k1", []byte("v1")))

	got, err := s.Get(ctx, "docs", "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
}

func TestKVStore_GetMissing(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "docs", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKVStore_NamespaceIsolation(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", "k", []byte("from-a")))
	require.NoError(t, s.Put(ctx, "b", "k", []byte("from-b")))

	got, err := s.Get(ctx, "a", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("from-a"), got)
}

func TestKVStore_GetAllAndClear(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "docs", "k1", []byte("v1")))
	require.NoError(t, s.Put(ctx, "docs", "k2", []byte("v2")))

	all, err := s.GetAll(ctx, "docs")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Clear(ctx, "docs"))
	all, err = s.GetAll(ctx, "docs")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestKVStore_Delete(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "docs", "k1", []byte("v1")))
	require.NoError(t, s.Delete(ctx, "docs", "k1"))
	require.NoError(t, s.Delete(ctx, "docs", "never-existed"))

	_, err := s.Get(ctx, "docs", "k1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKVStore_DefensiveCopies(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	value := []byte("mutable")
	require.NoError(t, s.Put(ctx, "docs", "k", value))
	value[0] = 'X'

	got, err := s.Get(ctx, "docs", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), got)
}

package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/compress"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func newTestStore(t *testing.T) (*VectorStore, *memory.KVStore, *restartableBackend) {
	t.Helper()
	kv := memory.NewKVStore()
	backend := newRestartableBackend()
	store := NewVectorStore(backend, kv, compress.NewGzip())
	t.Cleanup(func() { _ = store.Close() })
	return store, kv, backend
}

func TestVectorStore_AddAndSearch(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	pizza := testEntry(domain.SourceTypeArticle, "a1", 0, 1, "pizza with extra cheese delivery", "Pizza")
	invoice := testEntry(domain.SourceTypeEmail, "e1", 0, 1, "invoice payment due friday", "Invoice")

	require.NoError(t, store.Add(ctx, pizza, textVector(pizza.Content)))
	require.NoError(t, store.Add(ctx, invoice, textVector(invoice.Content)))

	results, err := store.Search(ctx, textVector("pizza cheese"), 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, pizza.ID, results[0].Entry.ID)
	assert.Equal(t, domain.MatchSemantic, results[0].MatchType)
	assert.Equal(t, "Pizza", results[0].Entry.Metadata.Title)
}

func TestVectorStore_SearchKeyword(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	entry := testEntry(domain.SourceTypePDF, "p1", 0, 1, "the quarterly report covers garden supplies", "Report")
	require.NoError(t, store.Add(ctx, entry, textVector(entry.Content)))

	results, err := store.SearchKeyword(ctx, "quarterly report", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entry.ID, results[0].Entry.ID)
	assert.Equal(t, domain.MatchKeyword, results[0].MatchType)
}

func TestVectorStore_AddReplacesExistingEntry(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	old := testEntry(domain.SourceTypeArticle, "a1", 0, 1, "original pizza content", "V1")
	require.NoError(t, store.Add(ctx, old, textVector(old.Content)))

	updated := old
	updated.Content = "revised invoice content"
	updated.Metadata.Title = "V2"
	require.NoError(t, store.Add(ctx, updated, textVector(updated.Content)))

	results, err := store.SearchKeyword(ctx, "pizza", 5)
	require.NoError(t, err)
	assert.Empty(t, results, "old tokens should no longer match")

	results, err = store.SearchKeyword(ctx, "invoice", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "V2", results[0].Entry.Metadata.Title)
	assert.Equal(t, 1, store.Len())
}

func TestVectorStore_InvalidEntryRejected(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, domain.Entry{ID: "", Type: domain.SourceTypeArticle}, textVector("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.Add(ctx, domain.Entry{ID: "x:1:0", Type: "spreadsheet"}, textVector("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorStore_PersistAndReload(t *testing.T) {
	kv := memory.NewKVStore()
	ctx := context.Background()

	first := NewVectorStore(newRestartableBackend(), kv, compress.NewGzip())
	entry := testEntry(domain.SourceTypeArticle, "a1", 0, 1, "pizza delivery schedule", "Pizza")
	require.NoError(t, first.Add(ctx, entry, textVector(entry.Content)))
	require.NoError(t, first.ForceSave(ctx))
	require.NoError(t, first.Close())

	// A brand new store with a fresh, empty backend but the same durable
	// storage must see the persisted state.
	second := NewVectorStore(newRestartableBackend(), kv, compress.NewGzip())
	defer second.Close()

	results, err := second.Search(ctx, textVector("pizza"), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entry.ID, results[0].Entry.ID)

	keyword, err := second.SearchKeyword(ctx, "delivery schedule", 1)
	require.NoError(t, err)
	require.Len(t, keyword, 1)
	assert.Equal(t, entry.ID, keyword[0].Entry.ID)
}

func TestVectorStore_BackendRestartForcesReload(t *testing.T) {
	store, _, backend := newTestStore(t)
	ctx := context.Background()

	entry := testEntry(domain.SourceTypeEmail, "e1", 0, 1, "meeting notes about the payment", "Notes")
	require.NoError(t, store.Add(ctx, entry, textVector(entry.Content)))
	require.NoError(t, store.ForceSave(ctx))

	tokenBefore := backend.IdentityToken()
	backend.Restart()
	require.NotEqual(t, tokenBefore, backend.IdentityToken())

	// The store must notice the new identity and restore from snapshot
	// before answering.
	results, err := store.Search(ctx, textVector("meeting payment"), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entry.ID, results[0].Entry.ID)
}

func TestVectorStore_LegacySnapshotAccepted(t *testing.T) {
	kv := memory.NewKVStore()
	ctx := context.Background()

	// Build a raw backend snapshot and store it without the envelope, the
	// way versions before the envelope format did.
	donor := newRestartableBackend()
	require.NoError(t, donor.Add(ctx, "article:a1:0", textVector("pizza"), "Pizza", ""))
	raw, err := donor.Serialize(ctx)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, nsIndex, keySnapshot, raw))

	entry := testEntry(domain.SourceTypeArticle, "a1", 0, 1, "pizza", "Pizza")
	body, err := json.Marshal(entry)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, docNamespace(domain.SourceTypeArticle), entry.ID, body))

	store := NewVectorStore(newRestartableBackend(), kv, compress.NewGzip())
	defer store.Close()

	results, err := store.Search(ctx, textVector("pizza"), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entry.ID, results[0].Entry.ID)
}

func TestVectorStore_UnknownSnapshotVersionRejected(t *testing.T) {
	kv := memory.NewKVStore()
	ctx := context.Background()

	blob, err := json.Marshal(snapshotEnvelope{Version: "recall-ann/v999", Payload: []byte("{}")})
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, nsIndex, keySnapshot, blob))

	store := NewVectorStore(newRestartableBackend(), kv, compress.NewGzip())
	defer store.Close()

	_, err = store.Search(ctx, textVector("anything"), 1)
	assert.ErrorIs(t, err, domain.ErrSnapshotFormat)
}

func TestVectorStore_RemoveSource(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	keep := testEntry(domain.SourceTypeArticle, "keep", 0, 1, "garden maintenance guide", "Garden")
	drop0 := testEntry(domain.SourceTypeArticle, "drop", 0, 2, "pizza dough recipe", "Pizza 1")
	drop1 := testEntry(domain.SourceTypeArticle, "drop", 1, 2, "pizza oven temperatures", "Pizza 2")

	for _, e := range []domain.Entry{keep, drop0, drop1} {
		require.NoError(t, store.Add(ctx, e, textVector(e.Content)))
	}

	require.NoError(t, store.RemoveSource(ctx, "drop"))

	assert.False(t, store.HasDocument(ctx, "drop"))
	assert.True(t, store.HasDocument(ctx, "keep"))

	keyword, err := store.SearchKeyword(ctx, "pizza", 5)
	require.NoError(t, err)
	assert.Empty(t, keyword)

	// Stale backend vectors are dropped at hydration, not returned.
	semantic, err := store.Search(ctx, textVector("pizza"), 5)
	require.NoError(t, err)
	for _, r := range semantic {
		assert.NotEqual(t, "drop", r.Entry.Metadata.SourceID)
	}
}

func TestVectorStore_DebouncedSaveEventuallyPersists(t *testing.T) {
	store, kv, _ := newTestStore(t)
	ctx := context.Background()

	entry := testEntry(domain.SourceTypeArticle, "a1", 0, 1, "pizza night", "Pizza")
	require.NoError(t, store.Add(ctx, entry, textVector(entry.Content)))

	// No explicit ForceSave: the debounce timer must flush on its own.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := kv.Get(ctx, nsIndex, keySnapshot); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot was not persisted by the debounced save")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestVectorStore_ForceReloadSeesExternalWrites(t *testing.T) {
	store, kv, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ForceSave(ctx))

	// Write a document behind the store's back, as another process would.
	entry := testEntry(domain.SourceTypeEmail, "e9", 0, 1, "delivery confirmation", "Delivery")
	body, err := json.Marshal(entry)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, docNamespace(domain.SourceTypeEmail), entry.ID, body))

	require.NoError(t, store.ForceReload(ctx))

	keyword, err := store.SearchKeyword(ctx, "delivery confirmation", 1)
	require.NoError(t, err)
	require.Len(t, keyword, 1)
	assert.Equal(t, entry.ID, keyword[0].Entry.ID)
}

func TestVectorStore_ClosedStoreRejectsOperations(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Close())

	entry := testEntry(domain.SourceTypeArticle, "a1", 0, 1, "pizza", "Pizza")
	err := store.Add(ctx, entry, textVector(entry.Content))
	assert.ErrorIs(t, err, domain.ErrStoreClosed)

	err = store.ForceSave(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreClosed)

	assert.NoError(t, store.Close(), "second close is a no-op")
}

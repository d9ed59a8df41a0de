package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/variantlens/backend/internal/domain"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "key1", []byte("hello")))

	got, err := store.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestMemoryStore_MissingKey(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestMemoryStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "key1", []byte("first")))
	require.NoError(t, store.Set(ctx, "key1", []byte("second")))

	got, err := store.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "key1", []byte("hello")))
	require.NoError(t, store.Delete(ctx, "key1"))

	_, err := store.Get(ctx, "key1")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete(ctx, "key1"))
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "key1", []byte("hello")))

	first, err := store.Get(ctx, "key1")
	require.NoError(t, err)
	first[0] = 'X'

	second, err := store.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), second, "mutating a returned blob must not affect the store")
}

func TestMemoryStore_SetCopiesInput(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("hello")
	require.NoError(t, store.Set(ctx, "key1", data))
	data[0] = 'X'

	got, err := store.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

package documents

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemStore_RoundTrip(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "quality/pdoc-1042.pdf"
	require.NoError(t, store.Put(ctx, key, strings.NewReader("certificate body"), "application/pdf"))

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	reader, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "certificate body", string(content))

	require.NoError(t, store.Delete(ctx, key))
	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileSystemStore_Overwrite(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "doc", strings.NewReader("v1"), "text/plain"))
	require.NoError(t, store.Put(ctx, "doc", strings.NewReader("v2"), "text/plain"))

	reader, err := store.Get(ctx, "doc")
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))
}

func TestFileSystemStore_DeleteMissingIsNoop(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "never/stored"))
}

func TestFileSystemStore_RejectsTraversal(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	err = store.Put(ctx, "../escape", strings.NewReader("x"), "text/plain")
	assert.Error(t, err)

	_, err = store.Get(ctx, "")
	assert.Error(t, err)
}

package covers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Save(t *testing.T) {
	t.Run("writes the cover file", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		filename, err := store.Save(7, []byte("jpeg bytes"), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "cover_7.jpg", filename)

		data, err := os.ReadFile(filepath.Join(store.Dir(), filename))
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg bytes"), data)
	})

	t.Run("picks the extension from the content type", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		filename, err := store.Save(1, []byte("png bytes"), "image/png")
		require.NoError(t, err)
		assert.Equal(t, "cover_1.png", filename)
	})

	t.Run("replaces a previous cover with a different extension", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		first, err := store.Save(3, []byte("png bytes"), "image/png")
		require.NoError(t, err)

		second, err := store.Save(3, []byte("jpeg bytes"), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "cover_3.jpg", second)

		_, err = os.Stat(filepath.Join(store.Dir(), first))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("rejects empty data", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Save(1, nil, "image/jpeg")
		assert.Error(t, err)
	})
}

func TestStore_Remove(t *testing.T) {
	t.Run("removes the stored cover", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		filename, err := store.Save(5, []byte("bytes"), "image/jpeg")
		require.NoError(t, err)

		require.NoError(t, store.Remove(5))
		_, err = os.Stat(filepath.Join(store.Dir(), filename))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("is a no-op when nothing is stored", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		assert.NoError(t, store.Remove(42))
	})
}

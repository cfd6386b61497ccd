package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials(t *testing.T) {
	assert.True(t, Credentials{}.Empty())
	assert.True(t, Credentials{NetworkSecret: "x"}.Empty())
	assert.False(t, Credentials{NetworkName: "home"}.Empty())

	a := Credentials{NetworkName: "home", NetworkSecret: "pw"}
	assert.True(t, a.Equal(Credentials{NetworkName: "home", NetworkSecret: "pw"}))
	assert.False(t, a.Equal(Credentials{NetworkName: "home", NetworkSecret: "other"}))

	assert.Equal(t, "home/****", a.String())
	assert.Equal(t, "<unprovisioned>", Credentials{}.String())
}

func TestStore(t *testing.T) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "config.json"))
		want := Credentials{NetworkName: "home", NetworkSecret: "hunter2"}

		require.NoError(t, store.Save(want))
		got, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("OnDiskFormat", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"ssid":"office","password":"abc"}`), 0644))

		got, err := NewStore(path).Load()
		require.NoError(t, err)
		assert.Equal(t, Credentials{NetworkName: "office", NetworkSecret: "abc"}, got)
	})

	t.Run("MissingIsReset", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "config.json")
		store := NewStore(path)

		got, err := store.Load()
		assert.ErrorIs(t, err, ErrMissing)
		assert.True(t, got.Empty())

		// The empty record was written back.
		got, err = store.Load()
		require.NoError(t, err)
		assert.True(t, got.Empty())
	})

	t.Run("CorruptIsReset", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
		store := NewStore(path)

		got, err := store.Load()
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.True(t, got.Empty())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ssid":"","password":""}`, string(data))
	})

	t.Run("Erase", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "config.json"))
		require.NoError(t, store.Save(Credentials{NetworkName: "home", NetworkSecret: "pw"}))
		require.NoError(t, store.Erase())

		got, err := store.Load()
		require.NoError(t, err)
		assert.True(t, got.Empty())
	})
}

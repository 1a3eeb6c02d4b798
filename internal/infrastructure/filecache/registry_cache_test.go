package filecache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/appstore-api/internal/application/ports"
)

func TestRegistryCache_GuardarCargarBorrar(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := NewRegistryCache(dir)
	require.NoError(t, err)

	idx, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, idx, "sin archivo no hay caché")

	want := &ports.RegistryIndex{Fingerprint: "abc", BuiltAt: 1700000000, Entries: map[string]string{"slareports": "slareports"}}
	require.NoError(t, c.Save(want))

	got, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, c.Clear())
	require.NoError(t, c.Clear(), "borrar dos veces no falla")
	got, err = c.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRegistryCache_ArchivoCorruptoEsFallo(t *testing.T) {
	dir := t.TempDir()
	c, err := NewRegistryCache(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.json"), []byte("{no-json"), 0o644))

	idx, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, idx)
}

func TestRegistryCache_EscriturasConcurrentes(t *testing.T) {
	dir := t.TempDir()
	c, err := NewRegistryCache(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Save(&ports.RegistryIndex{Fingerprint: "fp", BuiltAt: int64(i), Entries: map[string]string{}})
		}(i)
	}
	wg.Wait()

	idx, err := c.Load()
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Equal(t, "fp", idx.Fingerprint)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no quedan temporales")
}

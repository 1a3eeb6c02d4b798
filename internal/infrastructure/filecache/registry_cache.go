// Package filecache caché en disco del índice del registro de módulos.
package filecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jhoicas/appstore-api/internal/application/ports"
)

var _ ports.RegistryCache = (*RegistryCache)(nil)

const fileName = "registry.json"

// RegistryCache guarda el índice en MODULES_CACHE_DIR/registry.json.
// Las escrituras son exclusivas: mutex + archivo temporal + rename.
type RegistryCache struct {
	mu   sync.Mutex
	dir  string
	path string
}

func NewRegistryCache(dir string) (*RegistryCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filecache: crear %s: %w", dir, err)
	}
	return &RegistryCache{dir: dir, path: filepath.Join(dir, fileName)}, nil
}

// Load devuelve (nil, nil) si no hay caché o el archivo está corrupto.
func (c *RegistryCache) Load() (*ports.RegistryIndex, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filecache: leer: %w", err)
	}
	var idx ports.RegistryIndex
	if err := json.Unmarshal(raw, &idx); err != nil || idx.Fingerprint == "" {
		return nil, nil
	}
	return &idx, nil
}

func (c *RegistryCache) Save(idx *ports.RegistryIndex) error {
	raw, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("filecache: serializar: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, fileName+".*")
	if err != nil {
		return fmt.Errorf("filecache: temporal: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("filecache: escribir: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filecache: cerrar: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("filecache: rename: %w", err)
	}
	return nil
}

func (c *RegistryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filecache: borrar: %w", err)
	}
	return nil
}

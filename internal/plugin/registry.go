package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/appstore-api/internal/domain/entity"
)

// Factory crea una instancia nueva del módulo (una por request/carga del registro).
type Factory func() Module

var global = newFactories()

type factories struct {
	mu    sync.RWMutex
	items map[string]Factory
}

func newFactories() *factories {
	return &factories{items: make(map[string]Factory)}
}

// Register agrega la fábrica de un módulo; claves duplicadas devuelven error.
func Register(key string, f Factory) error {
	return global.register(key, f)
}

// MustRegister entra en pánico si el registro falla; pensado para init().
func MustRegister(key string, f Factory) {
	if err := Register(key, f); err != nil {
		panic(err)
	}
}

// Lookup devuelve la fábrica registrada para key.
func Lookup(key string) (Factory, bool) {
	return global.lookup(key)
}

// Keys claves registradas, ordenadas.
func Keys() []string {
	return global.keys()
}

func (r *factories) register(key string, f Factory) error {
	key = entity.NormalizeModuleKey(key)
	if key == "" {
		return fmt.Errorf("plugin: clave de módulo requerida")
	}
	if f == nil {
		return fmt.Errorf("plugin: fábrica nula para %s", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[key]; exists {
		return fmt.Errorf("plugin: módulo %s ya registrado", key)
	}
	r.items[key] = f
	return nil
}

func (r *factories) lookup(key string) (Factory, bool) {
	key = entity.NormalizeModuleKey(key)
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.items[key]
	return f, ok
}

func (r *factories) keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for k := range r.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package module

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
)

func TestRegistry_CruzaCatalogoDiscoYFabricas(t *testing.T) {
	e := newEnv(
		[]*entity.Module{freeModule("knowledgebase"), paidModule("slareports"), paidModule("solo_catalogo"), freeModule("huerfano")},
		&stubModule{key: "knowledgebase"},
		&stubModule{key: "slareports"},
	)
	// en disco pero sin fábrica compilada
	e.store.manifests["huerfano"] = ports.Manifest{Key: "huerfano", Dir: "huerfano"}

	mods, err := e.registry.List(context.Background())
	require.NoError(t, err)

	var keys []string
	for _, m := range mods {
		keys = append(keys, m.Key())
	}
	assert.Equal(t, []string{"knowledgebase", "slareports"}, keys)

	mod, err := e.registry.Get(context.Background(), "solo_catalogo")
	require.NoError(t, err)
	assert.Nil(t, mod, "clave desconocida devuelve nil sin error")

	dir, err := e.registry.Dir(context.Background(), "SLAReports")
	require.NoError(t, err)
	assert.Equal(t, "slareports", dir)
}

func TestRegistry_ReutilizaCacheConMismaHuella(t *testing.T) {
	e := newEnv([]*entity.Module{freeModule("knowledgebase")}, &stubModule{key: "knowledgebase"})
	ctx := context.Background()

	_, err := e.registry.Get(ctx, "knowledgebase")
	require.NoError(t, err)
	require.Equal(t, 1, e.store.scans)
	require.Equal(t, 1, e.cache.saves)

	// Nuevo proceso: memoria vacía, caché en disco vigente.
	fresh := NewRegistry(e.repo, e.store, e.cache, time.Hour, e.registry.log)
	fresh.lookup = e.registry.lookup
	fresh.now = e.registry.now
	mod, err := fresh.Get(ctx, "knowledgebase")
	require.NoError(t, err)
	assert.NotNil(t, mod)
	assert.Equal(t, 1, e.store.scans, "un acierto de caché no vuelve a escanear")
}

func TestRegistry_HuellaDistintaReconstruye(t *testing.T) {
	e := newEnv([]*entity.Module{freeModule("knowledgebase")}, &stubModule{key: "knowledgebase"})
	ctx := context.Background()
	_, err := e.registry.Get(ctx, "knowledgebase")
	require.NoError(t, err)

	e.store.fingerprint = "fp-2"
	fresh := NewRegistry(e.repo, e.store, e.cache, time.Hour, e.registry.log)
	fresh.lookup = e.registry.lookup
	fresh.now = e.registry.now
	_, err = fresh.Get(ctx, "knowledgebase")
	require.NoError(t, err)

	assert.Equal(t, 2, e.store.scans)
	assert.Equal(t, "fp-2", e.cache.idx.Fingerprint)
}

func TestRegistry_TTLVencidoReconstruye(t *testing.T) {
	e := newEnv([]*entity.Module{freeModule("knowledgebase")}, &stubModule{key: "knowledgebase"})
	ctx := context.Background()
	_, err := e.registry.Get(ctx, "knowledgebase")
	require.NoError(t, err)

	e.registry.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err = e.registry.Get(ctx, "knowledgebase")
	require.NoError(t, err)

	assert.Equal(t, 2, e.store.scans)
}

func TestRegistry_InvalidateBorraCache(t *testing.T) {
	e := newEnv([]*entity.Module{freeModule("knowledgebase")}, &stubModule{key: "knowledgebase"})
	ctx := context.Background()
	_, err := e.registry.Get(ctx, "knowledgebase")
	require.NoError(t, err)

	e.registry.Invalidate()
	assert.Nil(t, e.cache.idx)
	assert.Equal(t, 1, e.cache.clears)

	_, err = e.registry.Get(ctx, "knowledgebase")
	require.NoError(t, err)
	assert.Equal(t, 2, e.store.scans)
}

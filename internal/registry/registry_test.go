package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/pagetree/internal/loader"
)

func open(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRegistry_CRUD(t *testing.T) {
	r := open(t)
	ctx := context.Background()
	clock := time.Unix(1700000000, 0)
	r.now = func() time.Time { return clock }

	require.NoError(t, r.Put(ctx, "users", loader.JSON, []byte(`{"title": {"$text": "h1"}}`)))
	require.NoError(t, r.Put(ctx, "admin", loader.YAML, []byte("scope: .admin\n")))

	e, err := r.Get(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, loader.JSON, e.Format)
	assert.True(t, clock.Equal(e.Updated))

	def, err := e.Definition()
	require.NoError(t, err)
	assert.Contains(t, def, "title")

	clock = clock.Add(time.Hour)
	require.NoError(t, r.Put(ctx, "users", loader.HCL, []byte(`scope = ".users"`)))
	e, err = r.Get(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, loader.HCL, e.Format)
	assert.True(t, clock.Equal(e.Updated))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "admin", list[0].Name)
	assert.Equal(t, "users", list[1].Name)

	require.NoError(t, r.Delete(ctx, "admin"))
	_, err = r.Get(ctx, "admin")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "admin"), ErrNotFound)
}

func TestRegistry_RejectsInvalidSources(t *testing.T) {
	r := open(t)
	ctx := context.Background()

	err := r.Put(ctx, "bad", loader.JSON, []byte(`{"a": {"$nope": "x"}}`))
	assert.ErrorIs(t, err, loader.ErrVocabulary)
	assert.Error(t, r.Put(ctx, "", loader.JSON, []byte(`{}`)))

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRegistry_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	ctx := context.Background()

	r, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, r.Put(ctx, "users", loader.JSON, []byte(`{}`)))
	require.NoError(t, r.Close())

	r, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	_, err = r.Get(ctx, "users")
	assert.NoError(t, err)
}

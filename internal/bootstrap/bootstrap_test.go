package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uni_directory/internal/domain"
	"uni_directory/internal/shared"
)

func TestStore_Memory(t *testing.T) {
	cfg := shared.Defaults()
	s, closeFn, err := Store(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	us, err := s.GetAll(context.Background(), domain.CollectionUniversities)
	require.NoError(t, err)
	assert.NotEmpty(t, us)
}

func TestStore_UnknownBackend(t *testing.T) {
	cfg := shared.Defaults()
	cfg.StoreBackend = "sqlite"
	_, _, err := Store(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRemote_RequiresBase(t *testing.T) {
	_, err := Remote(shared.Defaults())
	assert.Error(t, err)

	cfg := shared.Defaults()
	cfg.RecordAPIBase = "http://records.example.test/api"
	s, err := Remote(cfg)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestCache_EmbeddedFallback(t *testing.T) {
	cfg := shared.Defaults()
	c, closeFn, err := Cache(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, 60))
	var got map[string]int
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, got["a"])
}

func TestCache_ConfiguredAddr(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := shared.Defaults()
	cfg.RedisAddr = mr.Addr()

	c, closeFn, err := Cache(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, c.Set(context.Background(), "snap:x", []int{1}, 60))
	assert.True(t, mr.Exists("unidir:snap:x"))
}

package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

func stores(t *testing.T) map[string]audit.KV {
	return map[string]audit.KV{
		"memory": NewMemory(),
		"file":   NewFile(t.TempDir() + "/cache"),
	}
}

func TestKV_Contract(t *testing.T) {
	ctx := context.Background()
	for name, kv := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set(ctx, "seo_aio_analysis_url", "https://example.com"))
			v, ok, err := kv.Get(ctx, "seo_aio_analysis_url")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "https://example.com", v)

			require.NoError(t, kv.Set(ctx, "seo_aio_analysis_url", "https://other.example"))
			v, _, _ = kv.Get(ctx, "seo_aio_analysis_url")
			assert.Equal(t, "https://other.example", v)

			require.NoError(t, kv.Delete(ctx, "seo_aio_analysis_url"))
			_, ok, err = kv.Get(ctx, "seo_aio_analysis_url")
			require.NoError(t, err)
			assert.False(t, ok)

			// deleting twice is fine
			assert.NoError(t, kv.Delete(ctx, "seo_aio_analysis_url"))
		})
	}
}

func TestFile_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, NewFile(dir).Set(ctx, "k", `{"a":1}`))

	v, ok, err := NewFile(dir).Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, v)
}

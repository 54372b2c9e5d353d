package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aquawatch/internal/config"
)

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cases := []struct {
		driver string
		want   any
	}{
		{"", &FileKV{}},
		{"file", &FileKV{}},
		{"memory", &MemoryKV{}},
		{"redis", &RedisKV{}},
	}
	for _, tc := range cases {
		t.Run("driver="+tc.driver, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Store.Driver = tc.driver
			cfg.Store.Path = filepath.Join(t.TempDir(), "store.json")
			cfg.Redis.Addr = mr.Addr()

			kv, closeFn, err := Open(ctx, cfg, zap.NewNop())
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeFn()) }()
			assert.IsType(t, tc.want, kv)
			exerciseKV(t, kv)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.Store.Driver = "etcd"
	_, closeFn, err := Open(ctx, cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown STORE_DRIVER")
	assert.NotNil(t, closeFn)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg.Store.Driver = "redis"
	cfg.Redis.Addr = addr
	_, _, err = Open(ctx, cfg, zap.NewNop())
	assert.ErrorContains(t, err, "failed to connect redis")
}

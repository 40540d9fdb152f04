package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/config"
)

func TestPostgresWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, pg.Configured())
	assert.Nil(t, pg.PoolHandle())
	assert.ErrorIs(t, pg.Ping(context.Background()), ErrNotConfigured)
	pg.Close()
}

func TestRedisPing(t *testing.T) {
	srv := miniredis.RunT(t)
	r := NewRedis(context.Background(), config.RedisConfig{Addr: srv.Addr()}, zap.NewNop())
	defer r.Close()
	assert.NoError(t, r.Ping(context.Background()))

	srv.Close()
	assert.Error(t, r.Ping(context.Background()))

	var missing *Redis
	assert.Error(t, missing.Ping(context.Background()))
}

package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/cnpjsync/config"
	"go.uber.org/zap"
)

func TestConnectRedis_Direct(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), config.RedisConfig{URL: "redis://" + srv.Addr() + "/0"}, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	srv.CheckGet(t, "k", "v")
}

func TestConnectRedis_BadURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), config.RedisConfig{URL: "://nope"}, zap.NewNop())
	require.Error(t, err)
}

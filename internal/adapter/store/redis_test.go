package store

import (
	"context"
	"net"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/apperr"
)

func runMiniRedis(t *testing.T) (*miniredis.Miniredis, RedisConfig) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	host, port, _ := net.SplitHostPort(s.Addr())
	return s, RedisConfig{
		Host:               host,
		Port:               port,
		DB:                 0,
		PoolSize:           2,
		MaxRetries:         1,
		DialTimeoutSeconds: 1,
		DedupKey:           "relay:processed_txs",
	}
}

func TestNewRedisStore_InvalidConfig(t *testing.T) {
	_, err := NewRedisStore(context.Background(), &testLogger{}, RedisConfig{}, validator.New())
	var ia *apperr.InvalidArgErr
	require.ErrorAs(t, err, &ia)
}

func TestRedisStore_MarkThenIsProcessed(t *testing.T) {
	s, cfg := runMiniRedis(t)
	rs, err := NewRedisStore(context.Background(), &testLogger{}, cfg, validator.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	require.False(t, rs.IsProcessed("0xa"))
	require.NoError(t, rs.MarkProcessed("0xa"))
	require.True(t, rs.IsProcessed("0xa"))

	isMember, err := s.SIsMember(cfg.DedupKey, "0xa")
	require.NoError(t, err)
	require.True(t, isMember, "processed id must be durable in the redis set")
}

func TestRedisStore_LoadsExistingSet(t *testing.T) {
	s, cfg := runMiniRedis(t)
	_, err := s.SAdd(cfg.DedupKey, "0xa", "0xb")
	require.NoError(t, err)

	rs, err := NewRedisStore(context.Background(), &testLogger{}, cfg, validator.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	require.True(t, rs.IsProcessed("0xa"))
	require.True(t, rs.IsProcessed("0xb"))
	require.False(t, rs.IsProcessed("0xc"))
}

func TestRedisStore_FlushFailureKeepsMemoryAuthoritative(t *testing.T) {
	s, cfg := runMiniRedis(t)
	rs, err := NewRedisStore(context.Background(), &testLogger{}, cfg, validator.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	s.Close()

	err = rs.MarkProcessed("0xa")
	var pe *apperr.PersistenceErr
	require.ErrorAs(t, err, &pe)
	require.True(t, rs.IsProcessed("0xa"))
}

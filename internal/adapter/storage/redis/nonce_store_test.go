package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceStore_CheckAndSet(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewNonceStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	ctx := context.Background()
	ttl := 2 * time.Minute

	steps := []struct {
		name   string
		key    string
		nonce  string
		fresh  bool
		before func()
	}{
		{name: "first use", key: "backoffice", nonce: "n-1", fresh: true},
		{name: "replay", key: "backoffice", nonce: "n-1", fresh: false},
		{name: "other cashier key", key: "reporting", nonce: "n-1", fresh: true},
		{name: "after ttl", key: "backoffice", nonce: "n-1", fresh: true, before: func() { mr.FastForward(ttl + time.Second) }},
	}
	for _, st := range steps {
		if st.before != nil {
			st.before()
		}
		ok, err := store.CheckAndSet(ctx, st.key, st.nonce, ttl)
		require.NoError(t, err, st.name)
		assert.Equal(t, st.fresh, ok, st.name)
	}

	assert.True(t, mr.Exists("nonce:backoffice:n-1"))
	assert.Equal(t, ttl, mr.TTL("nonce:backoffice:n-1"))
}

func TestNonceStore_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewNonceStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	mr.Close()

	_, err := store.CheckAndSet(context.Background(), "backoffice", "n-1", time.Minute)
	assert.ErrorContains(t, err, "redis nonce check")
}

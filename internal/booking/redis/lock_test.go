package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client backed by miniredis so tests need no
// real server.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestLockProperty_MutualExclusion(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client)

	locked, err := r.LockProperty("prop-1", "res-1")
	require.NoError(t, err)
	assert.True(t, locked, "First lock attempt should succeed")

	locked, err = r.LockProperty("prop-1", "res-2")
	require.NoError(t, err)
	assert.False(t, locked, "Second lock attempt should fail while held")

	// A different property is unaffected.
	locked, err = r.LockProperty("prop-2", "res-2")
	require.NoError(t, err)
	assert.True(t, locked)

	err = r.UnlockProperty("prop-1", "res-1")
	require.NoError(t, err)

	locked, err = r.LockProperty("prop-1", "res-3")
	require.NoError(t, err)
	assert.True(t, locked, "Lock should be free after unlock")
}

func TestUnlockProperty_OnlyOwnerReleases(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client)

	locked, err := r.LockProperty("prop-1", "res-1")
	require.NoError(t, err)
	require.True(t, locked)

	// Wrong token: the lock stays.
	err = r.UnlockProperty("prop-1", "res-other")
	require.NoError(t, err)

	val, err := client.Get(context.Background(), PropertyLockKey+"prop-1").Result()
	require.NoError(t, err)
	assert.Equal(t, "res-1", val, "Lock should still be held by the owner")

	// Unlocking an already-released lock is not an error.
	err = r.UnlockProperty("prop-1", "res-1")
	require.NoError(t, err)
	err = r.UnlockProperty("prop-1", "res-1")
	assert.NoError(t, err)
}

func TestLockProperty_ExpiresAutomatically(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client)

	locked, err := r.LockProperty("prop-1", "res-1")
	require.NoError(t, err)
	require.True(t, locked)

	// A crashed booking never unlocks; the TTL frees the property.
	mr.FastForward(propertyLockTTL + time.Second)

	locked, err = r.LockProperty("prop-1", "res-2")
	require.NoError(t, err)
	assert.True(t, locked, "Lock should be free after TTL expiry")
}

func TestLockProperty_ConcurrentAttempts(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client)

	const numGoroutines = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			locked, err := r.LockProperty("prop-1", fmt.Sprintf("res-%d", n))
			if err == nil && locked {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "Exactly one concurrent attempt should take the lock")
}

func TestTrackHold_SetsTTLKey(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client)

	err := r.TrackHold("res-1", 30*time.Minute)
	require.NoError(t, err)

	key := HoldKeyPrefix + "res-1"
	val, err := client.Get(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Equal(t, "res-1", val)

	ttl := client.TTL(context.Background(), key).Val()
	assert.Greater(t, ttl, 29*time.Minute)

	// Expiry removes the key, which is what drives the keyspace event.
	mr.FastForward(31 * time.Minute)
	_, err = client.Get(context.Background(), key).Result()
	assert.Equal(t, redis.Nil, err)
}

func TestDropHold_RemovesKey(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client)

	require.NoError(t, r.TrackHold("res-1", 30*time.Minute))
	require.NoError(t, r.DropHold("res-1"))

	_, err := client.Get(context.Background(), HoldKeyPrefix+"res-1").Result()
	assert.Equal(t, redis.Nil, err)

	// Dropping a hold that never existed is fine.
	assert.NoError(t, r.DropHold("res-missing"))
}

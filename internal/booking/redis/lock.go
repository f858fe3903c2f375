package redis

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Key prefixes. Hold keys carry the hold TTL so Redis keyspace expiry events
// drive stale-hold cleanup; property lock keys are a short-lived mutex around
// validate-then-insert.
const (
	HoldKeyPrefix   = "hold:"
	PropertyLockKey = "property_lock:"
	propertyLockTTL = 15 * time.Second
)

type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// LockProperty takes the booking mutex for a property. Returns false without
// error when another booking holds it.
func (r *Redis) LockProperty(propertyID, token string) (bool, error) {
	key := PropertyLockKey + propertyID
	return r.Client.SetNX(context.Background(), key, token, propertyLockTTL).Result()
}

// UnlockProperty releases the mutex, but only for the owner that took it.
func (r *Redis) UnlockProperty(propertyID, token string) error {
	ctx := context.Background()
	key := PropertyLockKey + propertyID
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// TrackHold registers a TTL key for a pending reservation. Its expiry event
// triggers hold cleanup in main.
func (r *Redis) TrackHold(reservationID string, ttl time.Duration) error {
	key := HoldKeyPrefix + reservationID
	return r.Client.Set(context.Background(), key, reservationID, ttl).Err()
}

// DropHold removes the TTL key after confirmation or sweep expiry.
func (r *Redis) DropHold(reservationID string) error {
	key := HoldKeyPrefix + reservationID
	return r.Client.Del(context.Background(), key).Err()
}

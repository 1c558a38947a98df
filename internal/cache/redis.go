package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"navigate-map/internal/location"
	"navigate-map/internal/navigation"
)

// RedisFixStore keeps the last known fix of each session so a reconnecting
// surface can resume from it.
type RedisFixStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ location.Store = (*RedisFixStore)(nil)

func NewRedisFixStore(client *redis.Client, ttl time.Duration) *RedisFixStore {
	return &RedisFixStore{client: client, ttl: ttl}
}

type fixRecord struct {
	Lat       float64   `msgpack:"lat"`
	Lon       float64   `msgpack:"lon"`
	Timestamp time.Time `msgpack:"ts"`
}

func (r RedisFixStore) SetFix(ctx context.Context, sessionID string, fix navigation.Fix) error {
	data, err := encodeFix(fix)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, formatKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("setting fix: %w", err)
	}
	return nil
}

func (r RedisFixStore) GetFix(ctx context.Context, sessionID string) (navigation.Fix, bool, error) {
	data, err := r.client.Get(ctx, formatKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return navigation.Fix{}, false, nil
	}
	if err != nil {
		return navigation.Fix{}, false, fmt.Errorf("getting fix: %w", err)
	}
	fix, err := decodeFix(data)
	if err != nil {
		return navigation.Fix{}, false, err
	}
	return fix, true, nil
}

func encodeFix(fix navigation.Fix) ([]byte, error) {
	data, err := msgpack.Marshal(fixRecord{Lat: fix.Lat, Lon: fix.Lon, Timestamp: fix.Timestamp})
	if err != nil {
		return nil, fmt.Errorf("marshalling fix: %w", err)
	}
	return data, nil
}

func decodeFix(data []byte) (navigation.Fix, error) {
	var rec fixRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return navigation.Fix{}, fmt.Errorf("unmarshalling fix: %w", err)
	}
	return navigation.Fix{
		GeoPoint:  navigation.GeoPoint{Lat: rec.Lat, Lon: rec.Lon},
		Timestamp: rec.Timestamp,
	}, nil
}

func formatKey(sessionID string) string {
	return fmt.Sprintf("navigation:fix:%s", sessionID)
}

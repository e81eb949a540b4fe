package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/annel0/mmo-game/internal/mathx"
	"github.com/go-redis/redis/v8"
)

// RedisPositionCache caches each client's last client-reported (P, D) in
// Redis, batched and TTL'd, so a reconnecting client can be re-seeded
// without waiting on the next full snapshot interval. This is a cache,
// not the source of truth — the source of truth is sim.Player in the
// running Server.
type RedisPositionCache struct {
	client      *redis.Client
	ctx         context.Context
	keyPrefix   string
	ttl         time.Duration
	worldExtent float64
	batchSize   int
	batchMu     sync.Mutex
	batchBuffer map[uint16]*ClientPosition
	batchTicker *time.Ticker
	shutdown    chan struct{}
	wg          sync.WaitGroup
}

// ClientPosition is one client's last reported position and facing
// direction, as carried on INPUT_STATE.
type ClientPosition struct {
	ClientID  uint16     `json:"client_id"`
	P         mathx.Vec3 `json:"p"`
	D         mathx.Vec3 `json:"d"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	TTL          time.Duration
	WorldExtent  float64 // half-width used to normalize P into GEO lon/lat
	BatchSize    int
	BatchFlushMs int
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		KeyPrefix:    "sim:pos:",
		TTL:          5 * time.Minute,
		WorldExtent:  1000,
		BatchSize:    100,
		BatchFlushMs: 100,
	}
}

// NewRedisPositionCache создаёт новый Redis кэш позиций клиентов.
func NewRedisPositionCache(config *RedisConfig) (*RedisPositionCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisPositionCache{
		client:      client,
		ctx:         ctx,
		keyPrefix:   config.KeyPrefix,
		ttl:         config.TTL,
		worldExtent: config.WorldExtent,
		batchSize:   config.BatchSize,
		batchBuffer: make(map[uint16]*ClientPosition),
		batchTicker: time.NewTicker(time.Duration(config.BatchFlushMs) * time.Millisecond),
		shutdown:    make(chan struct{}),
	}

	cache.wg.Add(1)
	go cache.batchFlusher()

	log.Printf("🔴 Connected to Redis at %s", config.Addr)
	return cache, nil
}

// SavePosition buffers a client's position for the next batch flush.
func (rpc *RedisPositionCache) SavePosition(clientID uint16, p, d mathx.Vec3) error {
	pos := &ClientPosition{ClientID: clientID, P: p, D: d, UpdatedAt: time.Now()}

	rpc.batchMu.Lock()
	rpc.batchBuffer[clientID] = pos

	if len(rpc.batchBuffer) >= rpc.batchSize {
		batch := rpc.batchBuffer
		rpc.batchBuffer = make(map[uint16]*ClientPosition)
		rpc.batchMu.Unlock()
		return rpc.flushBatch(batch)
	}

	rpc.batchMu.Unlock()
	return nil
}

// GetPosition fetches a client's cached position.
func (rpc *RedisPositionCache) GetPosition(clientID uint16) (*ClientPosition, error) {
	key := rpc.keyPrefix + strconv.Itoa(int(clientID))

	data, err := rpc.client.Get(rpc.ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	var pos ClientPosition
	if err := json.Unmarshal([]byte(data), &pos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position: %w", err)
	}
	return &pos, nil
}

// DeletePosition drops a client's cached position, e.g. on disconnect.
func (rpc *RedisPositionCache) DeletePosition(clientID uint16) error {
	key := rpc.keyPrefix + strconv.Itoa(int(clientID))

	rpc.batchMu.Lock()
	delete(rpc.batchBuffer, clientID)
	rpc.batchMu.Unlock()

	if err := rpc.client.Del(rpc.ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// GetNearbyClientsGeo returns client IDs (as strings) within radiusMeters
// of (centerX, centerZ) in world space, using Redis GEO on positions
// normalized by worldExtent.
func (rpc *RedisPositionCache) GetNearbyClientsGeo(centerX, centerZ, radiusMeters float64) ([]string, error) {
	geoKey := rpc.keyPrefix + "geo"

	query := &redis.GeoSearchQuery{
		Longitude:  centerX / rpc.worldExtent * 180,
		Latitude:   centerZ / rpc.worldExtent * 90,
		Radius:     radiusMeters,
		RadiusUnit: "m",
	}

	names, err := rpc.client.GeoSearch(rpc.ctx, geoKey, query).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby clients: %w", err)
	}
	return names, nil
}

// Close закрывает соединение с Redis, сбрасывая оставшийся батч.
func (rpc *RedisPositionCache) Close() error {
	close(rpc.shutdown)
	rpc.wg.Wait()

	rpc.batchMu.Lock()
	if len(rpc.batchBuffer) > 0 {
		rpc.flushBatch(rpc.batchBuffer)
	}
	rpc.batchMu.Unlock()

	return rpc.client.Close()
}

func (rpc *RedisPositionCache) batchFlusher() {
	defer rpc.wg.Done()

	for {
		select {
		case <-rpc.shutdown:
			return
		case <-rpc.batchTicker.C:
			rpc.batchMu.Lock()
			if len(rpc.batchBuffer) > 0 {
				batch := rpc.batchBuffer
				rpc.batchBuffer = make(map[uint16]*ClientPosition)
				rpc.batchMu.Unlock()

				if err := rpc.flushBatch(batch); err != nil {
					log.Printf("❌ Failed to flush batch: %v", err)
				}
			} else {
				rpc.batchMu.Unlock()
			}
		}
	}
}

func (rpc *RedisPositionCache) flushBatch(batch map[uint16]*ClientPosition) error {
	if len(batch) == 0 {
		return nil
	}

	pipe := rpc.client.Pipeline()
	geoKey := rpc.keyPrefix + "geo"

	for clientID, pos := range batch {
		key := rpc.keyPrefix + strconv.Itoa(int(clientID))

		data, err := json.Marshal(pos)
		if err != nil {
			log.Printf("⚠️ Failed to marshal position for %d: %v", clientID, err)
			continue
		}
		pipe.Set(rpc.ctx, key, data, rpc.ttl)

		lon := clampGeo(float64(pos.P.X())/rpc.worldExtent*180, -180, 180)
		lat := clampGeo(float64(pos.P.Z())/rpc.worldExtent*90, -90, 90)
		pipe.GeoAdd(rpc.ctx, geoKey, &redis.GeoLocation{
			Name: strconv.Itoa(int(clientID)), Longitude: lon, Latitude: lat,
		})
	}
	pipe.Expire(rpc.ctx, geoKey, rpc.ttl)

	_, err := pipe.Exec(rpc.ctx)
	if err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

func clampGeo(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

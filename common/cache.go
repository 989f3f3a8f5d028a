// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrCacheMiss = errors.New("key not found in cache")
)

// ByteCacheConfig controls the size and expiry of a ByteCache
type ByteCacheConfig struct {
	LocalSize int
	TTL       time.Duration
	RedisURL  string // blank disables the redis tier
}

type byteCacheEntry struct {
	payload []byte
	expires time.Time
}

// ByteCache is a two tier cache of lz4 compressed byte payloads. The first
// tier is an in-process LRU; the optional second tier is a redis server shared
// between processes.
type ByteCache struct {
	local *lru.Cache
	rdb   *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewByteCache creates a cache with the given configuration
func NewByteCache(cfg ByteCacheConfig) (*ByteCache, error) {
	if cfg.LocalSize <= 0 {
		cfg.LocalSize = 256
	}

	local, err := lru.New(cfg.LocalSize)
	if err != nil {
		log.Error().Err(err).Int("LocalSize", cfg.LocalSize).Msg("could not create LRU cache")
		return nil, err
	}

	cache := &ByteCache{
		local: local,
		ttl:   cfg.TTL,
		now:   time.Now,
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return nil, err
		}
		cache.rdb = redis.NewClient(opt)
	}

	return cache, nil
}

// NewByteCacheFromConfig creates a cache using the cache.* viper keys
func NewByteCacheFromConfig() (*ByteCache, error) {
	cfg := ByteCacheConfig{
		LocalSize: viper.GetInt("cache.local_size"),
		TTL:       viper.GetDuration("cache.ttl"),
	}
	if viper.GetBool("cache.redis") {
		cfg.RedisURL = viper.GetString("cache.redis_url")
	}
	return NewByteCache(cfg)
}

// WithClock replaces the clock used to expire local entries
func (cache *ByteCache) WithClock(now func() time.Time) *ByteCache {
	cache.now = now
	return cache
}

// TTL returns the expiry applied to new entries
func (cache *ByteCache) TTL() time.Duration {
	return cache.ttl
}

// Set compresses the payload and stores it in every tier
func (cache *ByteCache) Set(ctx context.Context, key string, payload []byte) error {
	compressed, err := Compress(payload)
	if err != nil {
		return err
	}

	entry := &byteCacheEntry{payload: compressed}
	if cache.ttl > 0 {
		entry.expires = cache.now().Add(cache.ttl)
	}
	cache.local.Add(key, entry)

	if cache.rdb != nil {
		return cache.rdb.Set(ctx, key, compressed, cache.ttl).Err()
	}
	return nil
}

// Get returns the decompressed payload for key or ErrCacheMiss
func (cache *ByteCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := cache.local.Get(key); ok {
		entry := v.(*byteCacheEntry)
		if entry.expires.IsZero() || cache.now().Before(entry.expires) {
			return Decompress(entry.payload)
		}
		cache.local.Remove(key)
	}

	if cache.rdb == nil {
		return nil, ErrCacheMiss
	}

	val, err := cache.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		log.Warn().Err(err).Str("Key", key).Msg("redis get failed")
		return nil, err
	}

	entry := &byteCacheEntry{payload: val}
	if cache.ttl > 0 {
		entry.expires = cache.now().Add(cache.ttl)
	}
	cache.local.Add(key, entry)

	return Decompress(val)
}

// Delete removes key from every tier
func (cache *ByteCache) Delete(ctx context.Context, key string) error {
	cache.local.Remove(key)
	if cache.rdb != nil {
		return cache.rdb.Del(ctx, key).Err()
	}
	return nil
}

// Purge empties the local tier
func (cache *ByteCache) Purge() {
	cache.local.Purge()
}

// Close releases the redis connection, if any
func (cache *ByteCache) Close() error {
	if cache.rdb != nil {
		return cache.rdb.Close()
	}
	return nil
}

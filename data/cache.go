// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru"
	"github.com/penny-vault/pv-analytics/common"
	"github.com/penny-vault/pv-analytics/dataframe"
	"github.com/penny-vault/pv-analytics/observability/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// CacheItem is a price series together with the period it was requested for. The series may
// start after Period.Begin when the instrument is younger than the request.
type CacheItem struct {
	Symbol   string
	Provider string
	Period   *Interval
	Series   *dataframe.DataFrame[time.Time]
	expires  time.Time
}

// Loader fetches a fresh series for a cache key
type Loader func(ctx context.Context) (*CacheItem, error)

// cacheRecord is the serialized form stored in the shared tier
type cacheRecord struct {
	Provider string      `json:"provider"`
	Begin    time.Time   `json:"begin"`
	End      time.Time   `json:"end"`
	Dates    []time.Time `json:"dates"`
	Values   []float64   `json:"values"`
	Expires  time.Time   `json:"expires"`
}

// SeriesCache holds price series keyed by symbol with a fixed expiry. Concurrent loads of the
// same key are collapsed into one call; the last completed write wins.
type SeriesCache struct {
	name   string
	local  *lru.Cache
	shared *common.ByteCache
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group
}

// NewSeriesCache creates a cache holding up to size symbols. A ttl of 0 disables expiry. shared
// may be nil.
func NewSeriesCache(name string, size int, ttl time.Duration, shared *common.ByteCache) (*SeriesCache, error) {
	if size <= 0 {
		size = 256
	}

	local, err := lru.New(size)
	if err != nil {
		log.Error().Err(err).Str("Cache", name).Msg("could not create LRU cache")
		return nil, err
	}

	return &SeriesCache{
		name:   name,
		local:  local,
		shared: shared,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock replaces the clock used to expire entries
func (cache *SeriesCache) WithClock(now func() time.Time) *SeriesCache {
	cache.now = now
	return cache
}

// TTL returns the expiry applied to new entries
func (cache *SeriesCache) TTL() time.Duration {
	return cache.ttl
}

func (cache *SeriesCache) sharedKey(symbol string) string {
	return fmt.Sprintf("pvanalytics:%s:%s", cache.name, symbol)
}

func (cache *SeriesCache) expired(item *CacheItem) bool {
	return !item.expires.IsZero() && !cache.now().Before(item.expires)
}

// Check returns true if a live entry for symbol covers [begin, end]
func (cache *SeriesCache) Check(symbol string, begin, end time.Time) bool {
	v, ok := cache.local.Peek(symbol)
	if !ok {
		return false
	}
	item := v.(*CacheItem)
	return !cache.expired(item) && item.Period.Contains(&Interval{Begin: begin, End: end})
}

// Get returns the cached series for symbol restricted to [begin, end] or ErrRangeDoesNotExist
func (cache *SeriesCache) Get(ctx context.Context, symbol string, begin, end time.Time) (*CacheItem, error) {
	requested := &Interval{Begin: begin, End: end}
	if err := requested.Valid(); err != nil {
		return nil, err
	}

	item := cache.lookup(ctx, symbol)
	if item == nil || !item.Period.Contains(requested) {
		metrics.RecordCacheLookup(cache.name, false)
		return nil, ErrRangeDoesNotExist
	}

	metrics.RecordCacheLookup(cache.name, true)
	return item.slice(begin, end), nil
}

// slice returns a copy of item restricted to [begin, end] by calendar day
func (item *CacheItem) slice(begin, end time.Time) *CacheItem {
	return &CacheItem{
		Symbol:   item.Symbol,
		Provider: item.Provider,
		Period:   &Interval{Begin: begin, End: end},
		Series:   item.Series.Trim(StartOfDay(begin), MarketClose(end)).Copy(),
		expires:  item.expires,
	}
}

// lookup consults the local tier and then the shared tier
func (cache *SeriesCache) lookup(ctx context.Context, symbol string) *CacheItem {
	if v, ok := cache.local.Get(symbol); ok {
		item := v.(*CacheItem)
		if !cache.expired(item) {
			return item
		}
		cache.local.Remove(symbol)
	}

	if cache.shared == nil {
		return nil
	}

	payload, err := cache.shared.Get(ctx, cache.sharedKey(symbol))
	if err != nil {
		if !errors.Is(err, common.ErrCacheMiss) {
			log.Warn().Err(err).Str("Cache", cache.name).Str("Symbol", symbol).Msg("shared cache lookup failed")
		}
		return nil
	}

	record := cacheRecord{}
	if err := json.Unmarshal(payload, &record); err != nil {
		log.Warn().Err(err).Str("Cache", cache.name).Str("Symbol", symbol).Msg("could not decode shared cache entry")
		return nil
	}

	item := &CacheItem{
		Symbol:   symbol,
		Provider: record.Provider,
		Period:   &Interval{Begin: record.Begin, End: record.End},
		Series: &dataframe.DataFrame[time.Time]{
			Index:    record.Dates,
			ColNames: []string{symbol},
			Vals:     [][]float64{record.Values},
		},
		expires: record.Expires,
	}
	if cache.expired(item) || len(record.Dates) != len(record.Values) {
		return nil
	}

	cache.local.Add(symbol, item)
	return item
}

// Set stores series as the price history of symbol over period
func (cache *SeriesCache) Set(ctx context.Context, item *CacheItem) error {
	if item == nil || item.Series == nil || item.Period == nil {
		return ErrInsufficientHistory
	}
	if err := item.Period.Valid(); err != nil {
		return err
	}

	stored := &CacheItem{
		Symbol:   item.Symbol,
		Provider: item.Provider,
		Period:   item.Period,
		Series:   item.Series.Copy(),
	}
	if cache.ttl > 0 {
		stored.expires = cache.now().Add(cache.ttl)
	}
	cache.local.Add(item.Symbol, stored)

	if cache.shared == nil {
		return nil
	}

	record := cacheRecord{
		Provider: stored.Provider,
		Begin:    stored.Period.Begin,
		End:      stored.Period.End,
		Dates:    stored.Series.Index,
		Values:   stored.Series.Vals[0],
		Expires:  stored.expires,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		log.Error().Err(err).Str("Cache", cache.name).Str("Symbol", item.Symbol).Msg("could not encode cache entry")
		return err
	}

	if err := cache.shared.Set(ctx, cache.sharedKey(item.Symbol), payload); err != nil {
		log.Warn().Err(err).Str("Cache", cache.name).Str("Symbol", item.Symbol).Msg("could not write shared cache entry")
		return err
	}

	return nil
}

// GetOrLoad returns the cached series or runs loader once for all concurrent callers asking for
// the same symbol and period
func (cache *SeriesCache) GetOrLoad(ctx context.Context, symbol string, begin, end time.Time, loader Loader) (*CacheItem, error) {
	if item, err := cache.Get(ctx, symbol, begin, end); err == nil {
		return item, nil
	}
	return cache.load(ctx, symbol, begin, end, loader)
}

// Refresh unconditionally reloads symbol. Concurrent refreshes of the same key share one load.
func (cache *SeriesCache) Refresh(ctx context.Context, symbol string, begin, end time.Time, loader Loader) (*CacheItem, error) {
	return cache.load(ctx, symbol, begin, end, loader)
}

func (cache *SeriesCache) load(ctx context.Context, symbol string, begin, end time.Time, loader Loader) (*CacheItem, error) {
	key := fmt.Sprintf("%s:%s:%s", symbol, begin.Format("2006-01-02"), end.Format("2006-01-02"))
	v, err, _ := cache.group.Do(key, func() (interface{}, error) {
		item, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if item == nil || item.Series == nil {
			return nil, ErrNotFound
		}
		if item.Period == nil {
			item.Period = &Interval{Begin: begin, End: end}
		}
		if err := cache.Set(ctx, item); err != nil && !errors.Is(err, ErrInsufficientHistory) {
			log.Warn().Err(err).Str("Cache", cache.name).Str("Symbol", symbol).Msg("could not store loaded series")
		}
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CacheItem).slice(begin, end), nil
}

// Invalidate drops symbol from every tier
func (cache *SeriesCache) Invalidate(ctx context.Context, symbol string) error {
	cache.local.Remove(symbol)
	if cache.shared != nil {
		return cache.shared.Delete(ctx, cache.sharedKey(symbol))
	}
	return nil
}

// Purge empties the local tier
func (cache *SeriesCache) Purge() {
	cache.local.Purge()
}

// Len returns the number of symbols held in the local tier
func (cache *SeriesCache) Len() int {
	return cache.local.Len()
}

// Entries returns the requested period of every live local entry keyed by symbol
func (cache *SeriesCache) Entries() map[string]*Interval {
	entries := make(map[string]*Interval, cache.local.Len())
	for _, k := range cache.local.Keys() {
		v, ok := cache.local.Peek(k)
		if !ok {
			continue
		}
		item := v.(*CacheItem)
		if cache.expired(item) {
			continue
		}
		entries[k.(string)] = item.Period
	}
	return entries
}

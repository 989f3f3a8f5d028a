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
	"time"

	"github.com/penny-vault/pv-analytics/common"
	"github.com/penny-vault/pv-analytics/observability/metrics"
	"github.com/penny-vault/pv-analytics/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ManagerConfig bounds how the manager talks to its providers
type ManagerConfig struct {
	MaxConcurrency int
	FetchTimeout   time.Duration
}

// Manager resolves price history for a set of symbols by consulting its cache and then each
// provider in order. It never fails a whole batch: every symbol gets its own Availability.
type Manager struct {
	providers  []Provider
	cache      *SeriesCache
	benchmarks *SeriesCache
	cfg        ManagerConfig
	now        func() time.Time
}

type quoteResult struct {
	Symbol       string
	Availability *Availability
}

// NewManager creates a manager over the given provider chain and caches
func NewManager(providers []Provider, cache, benchmarks *SeriesCache, cfg ManagerConfig) *Manager {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	return &Manager{
		providers:  providers,
		cache:      cache,
		benchmarks: benchmarks,
		cfg:        cfg,
		now:        time.Now,
	}
}

// NewManagerFromConfig builds the provider chain and caches from viper
func NewManagerFromConfig() (*Manager, error) {
	providers, err := ProvidersFromConfig()
	if err != nil {
		log.Error().Err(err).Msg("could not configure price providers")
		return nil, err
	}

	shared, err := common.NewByteCacheFromConfig()
	if err != nil {
		return nil, err
	}

	size := viper.GetInt("cache.local_size")
	ttl := viper.GetDuration("cache.ttl")

	cache, err := NewSeriesCache("prices", size, ttl, shared)
	if err != nil {
		return nil, err
	}

	benchmarks, err := NewSeriesCache("benchmarks", size, ttl, shared)
	if err != nil {
		return nil, err
	}

	return NewManager(providers, cache, benchmarks, ManagerConfig{
		MaxConcurrency: viper.GetInt("data.max_concurrency"),
		FetchTimeout:   viper.GetDuration("data.fetch_timeout"),
	}), nil
}

// WithClock replaces the clock used when refreshing benchmarks
func (manager *Manager) WithClock(now func() time.Time) *Manager {
	manager.now = now
	return manager
}

// Providers returns the names of the configured providers in consultation order
func (manager *Manager) Providers() []string {
	names := make([]string, len(manager.providers))
	for idx, p := range manager.providers {
		names[idx] = p.Name()
	}
	return names
}

// Fetch looks up price history for every symbol between begin and end. Downloads run
// concurrently, at most MaxConcurrency at a time.
func (manager *Manager) Fetch(ctx context.Context, symbols []string, begin, end time.Time) map[string]*Availability {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "manager.Fetch")
	defer span.End()

	subLog := log.With().Int("NumSymbols", len(symbols)).Time("Begin", begin).Time("End", end).Logger()

	unique := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		symbol = common.NormalizeSymbol(symbol)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		unique = append(unique, symbol)
	}
	span.SetAttributes(attribute.StringSlice("Symbols", unique))

	res := make(map[string]*Availability, len(unique))
	if err := (&Interval{Begin: begin, End: end}).Valid(); err != nil {
		subLog.Warn().Err(err).Msg("invalid fetch interval")
		for _, symbol := range unique {
			res[symbol] = Unavailable(symbol, err)
		}
		return res
	}

	ch := make(chan quoteResult)
	for _, chunk := range partitionArray(unique, manager.cfg.MaxConcurrency) {
		for ii := range chunk {
			go manager.downloadWorker(ctx, ch, manager.cache, chunk[ii], begin, end)
		}

		for range chunk {
			v := <-ch
			if !v.Availability.Ok() {
				subLog.Warn().Str("Symbol", v.Symbol).AnErr("Reason", v.Availability.Reason).Msg("price history unavailable")
			}
			res[v.Symbol] = v.Availability
		}
	}

	return res
}

// Benchmark looks up price history for a benchmark symbol using the benchmark cache
func (manager *Manager) Benchmark(ctx context.Context, symbol string, begin, end time.Time) *Availability {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "manager.Benchmark")
	defer span.End()

	symbol = common.NormalizeSymbol(symbol)
	span.SetAttributes(attribute.String("Symbol", symbol))

	if err := (&Interval{Begin: begin, End: end}).Valid(); err != nil {
		return Unavailable(symbol, err)
	}

	item, err := manager.benchmarks.GetOrLoad(ctx, symbol, begin, end, manager.loader(symbol, begin, end))
	if err != nil {
		log.Warn().Str("Symbol", symbol).Err(err).Msg("benchmark history unavailable")
		return Unavailable(symbol, err)
	}
	return Available(symbol, item.Provider, item.Series)
}

// RefreshBenchmarks reloads every benchmark held in the cache, extending each period to now.
// It returns the number of benchmarks refreshed and the first error encountered.
func (manager *Manager) RefreshBenchmarks(ctx context.Context) (int, error) {
	var firstErr error
	count := 0
	now := manager.now()

	for symbol, period := range manager.benchmarks.Entries() {
		end := common.MaxTime(period.End, now)
		if _, err := manager.benchmarks.Refresh(ctx, symbol, period.Begin, end, manager.loader(symbol, period.Begin, end)); err != nil {
			log.Warn().Str("Symbol", symbol).Err(err).Msg("could not refresh benchmark")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		count++
	}

	log.Info().Int("NumRefreshed", count).Msg("refreshed benchmark cache")
	return count, firstErr
}

// Invalidate drops symbol from both caches
func (manager *Manager) Invalidate(ctx context.Context, symbol string) error {
	symbol = common.NormalizeSymbol(symbol)
	err1 := manager.cache.Invalidate(ctx, symbol)
	err2 := manager.benchmarks.Invalidate(ctx, symbol)
	return errors.Join(err1, err2)
}

func (manager *Manager) downloadWorker(ctx context.Context, result chan<- quoteResult, cache *SeriesCache, symbol string, begin, end time.Time) {
	var availability *Availability
	item, err := cache.GetOrLoad(ctx, symbol, begin, end, manager.loader(symbol, begin, end))
	if err != nil {
		availability = Unavailable(symbol, err)
	} else {
		availability = Available(symbol, item.Provider, item.Series)
	}

	result <- quoteResult{
		Symbol:       symbol,
		Availability: availability,
	}
}

// loader tries each provider in order until one returns data
func (manager *Manager) loader(symbol string, begin, end time.Time) Loader {
	return func(ctx context.Context) (*CacheItem, error) {
		if len(manager.providers) == 0 {
			return nil, ErrNoProviders
		}

		var lastErr error = ErrNotFound
		for _, provider := range manager.providers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			pctx := ctx
			cancel := func() {}
			if manager.cfg.FetchTimeout > 0 {
				pctx, cancel = context.WithTimeout(ctx, manager.cfg.FetchTimeout)
			}
			df, err := provider.Prices(pctx, symbol, begin, end)
			cancel()

			switch {
			case err == nil && df != nil && df.Len() > 0:
				metrics.RecordProviderFetch(provider.Name(), metrics.ResultOk)
				return &CacheItem{
					Symbol:   symbol,
					Provider: provider.Name(),
					Period:   &Interval{Begin: begin, End: end},
					Series:   df,
				}, nil
			case err == nil || errors.Is(err, ErrNotFound):
				metrics.RecordProviderFetch(provider.Name(), metrics.ResultNotFound)
			default:
				metrics.RecordProviderFetch(provider.Name(), metrics.ResultError)
				log.Warn().Str("Provider", provider.Name()).Str("Symbol", symbol).Err(err).Msg("provider failed; trying next")
				lastErr = err
			}
		}

		return nil, lastErr
	}
}

func partitionArray(arr []string, size int) [][]string {
	chunks := make([][]string, 0, len(arr)/size+1)
	for size < len(arr) {
		arr, chunks = arr[size:], append(chunks, arr[0:size:size])
	}
	if len(arr) > 0 {
		chunks = append(chunks, arr)
	}
	return chunks
}

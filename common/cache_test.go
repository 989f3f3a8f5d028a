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

package common_test

import (
	"context"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-analytics/common"
)

var _ = Describe("ByteCache", func() {
	var (
		ctx   context.Context
		cache *common.ByteCache
		now   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2022, 6, 1, 10, 0, 0, 0, time.UTC)
	})

	Context("with only the local tier", func() {
		BeforeEach(func() {
			var err error
			cache, err = common.NewByteCache(common.ByteCacheConfig{LocalSize: 4, TTL: time.Minute})
			Expect(err).To(BeNil())
			cache.WithClock(func() time.Time { return now })
		})

		It("returns what was stored", func() {
			payload := []byte(strings.Repeat("SPY,2022-01-03,477.71\n", 50))
			Expect(cache.Set(ctx, "SPY", payload)).To(Succeed())

			val, err := cache.Get(ctx, "SPY")
			Expect(err).To(BeNil())
			Expect(val).To(Equal(payload))
		})

		It("reports a miss for unknown keys", func() {
			_, err := cache.Get(ctx, "VFINX")
			Expect(err).To(MatchError(common.ErrCacheMiss))
		})

		It("expires entries after the ttl", func() {
			Expect(cache.Set(ctx, "SPY", []byte("x"))).To(Succeed())
			now = now.Add(2 * time.Minute)
			_, err := cache.Get(ctx, "SPY")
			Expect(err).To(MatchError(common.ErrCacheMiss))
		})

		It("deletes keys", func() {
			Expect(cache.Set(ctx, "SPY", []byte("x"))).To(Succeed())
			Expect(cache.Delete(ctx, "SPY")).To(Succeed())
			_, err := cache.Get(ctx, "SPY")
			Expect(err).To(MatchError(common.ErrCacheMiss))
		})
	})

	Context("with a redis tier", func() {
		var mr *miniredis.Miniredis

		BeforeEach(func() {
			var err error
			mr, err = miniredis.Run()
			Expect(err).To(BeNil())

			cache, err = common.NewByteCache(common.ByteCacheConfig{
				LocalSize: 4,
				TTL:       time.Hour,
				RedisURL:  "redis://" + mr.Addr(),
			})
			Expect(err).To(BeNil())
		})

		AfterEach(func() {
			Expect(cache.Close()).To(Succeed())
			mr.Close()
		})

		It("writes through to redis", func() {
			Expect(cache.Set(ctx, "AGG", []byte("bond"))).To(Succeed())
			Expect(mr.Exists("AGG")).To(BeTrue())
		})

		It("reads from redis when the local tier is empty", func() {
			Expect(cache.Set(ctx, "AGG", []byte("bond"))).To(Succeed())
			cache.Purge()

			val, err := cache.Get(ctx, "AGG")
			Expect(err).To(BeNil())
			Expect(string(val)).To(Equal("bond"))
		})

		It("reports a miss when neither tier has the key", func() {
			_, err := cache.Get(ctx, "QQQ")
			Expect(err).To(MatchError(common.ErrCacheMiss))
		})
	})
})

var _ = Describe("NormalizeSymbol", func() {
	It("trims and upper-cases", func() {
		Expect(common.NormalizeSymbol("  spy ")).To(Equal("SPY"))
	})
})

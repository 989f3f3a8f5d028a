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
	"encoding/binary"
	"time"

	"github.com/penny-vault/pv-analytics/dataframe"
	"github.com/zeebo/blake3"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	syntheticBase = 100.0
)

// Synthetic generates a random walk of business-day prices. It is only used when no real price
// history is available for any instrument of a portfolio; frames it produces must never be mixed
// with real data.
type Synthetic struct {
	seed uint64
}

// NewSynthetic creates a generator. A seed of 0 draws a new seed from the clock so every call
// produces a different walk; any other seed makes the output reproducible.
func NewSynthetic(seed uint64) *Synthetic {
	return &Synthetic{seed: seed}
}

func (s *Synthetic) Name() string {
	return "synthetic"
}

// Prices generates a price series for symbol covering every business day in [begin, end]. Each
// symbol draws its own daily mean from U(0.0002, 0.001) and daily deviation from U(0.01, 0.02).
func (s *Synthetic) Prices(ctx context.Context, symbol string, begin, end time.Time) (*dataframe.DataFrame[time.Time], error) {
	if end.Before(begin) {
		return nil, ErrInvalidTimeRange
	}

	days := BusinessDays(begin, end)
	src := rand.NewSource(s.symbolSeed(symbol))

	mu := distuv.Uniform{Min: 0.0002, Max: 0.001, Src: src}.Rand()
	sigma := distuv.Uniform{Min: 0.01, Max: 0.02, Src: src}.Rand()
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}

	prices := make([]float64, len(days))
	last := syntheticBase
	for idx := range days {
		last *= 1 + dist.Rand()
		prices[idx] = last
	}

	return &dataframe.DataFrame[time.Time]{
		Index:    days,
		ColNames: []string{symbol},
		Vals:     [][]float64{prices},
	}, nil
}

// symbolSeed mixes the generator seed with the symbol so different symbols follow different walks
func (s *Synthetic) symbolSeed(symbol string) uint64 {
	seed := s.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	digest := blake3.Sum256([]byte(symbol))
	return seed ^ binary.LittleEndian.Uint64(digest[:8])
}

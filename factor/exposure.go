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

package factor

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
)

// Holding is an instrument symbol and its portfolio weight
type Holding struct {
	Symbol string
	Weight float64
}

// Loadings maps an instrument symbol to its loading on each named factor
type Loadings map[string]map[string]float64

// Merge returns a new table holding every row of l overlaid with the rows of other. Rows present
// in both are merged factor by factor with other taking precedence.
func (l Loadings) Merge(other Loadings) Loadings {
	res := make(Loadings, len(l)+len(other))
	for _, table := range []Loadings{l, other} {
		for symbol, row := range table {
			merged, ok := res[symbol]
			if !ok {
				merged = make(map[string]float64, len(row))
				res[symbol] = merged
			}
			for factor, loading := range row {
				merged[factor] = loading
			}
		}
	}
	return res
}

// Factors returns the sorted union of factor names in the table
func (l Loadings) Factors() []string {
	seen := make(map[string]bool)
	for _, row := range l {
		for factor := range row {
			seen[factor] = true
		}
	}

	factors := make([]string, 0, len(seen))
	for factor := range seen {
		factors = append(factors, factor)
	}
	sort.Strings(factors)
	return factors
}

// Exposure aggregates instrument loadings into portfolio exposures: exposure[f] = Σ w_i * loading_i[f].
// Instruments without a row in the table are skipped rather than treated as zero loadings and
// are returned in skipped. Missing or NaN loadings of a present instrument do not contribute.
func Exposure(holdings []Holding, table Loadings) (exposures map[string]float64, skipped []string) {
	exposures = make(map[string]float64)
	skipped = []string{}

	for _, holding := range holdings {
		row, ok := table[holding.Symbol]
		if !ok {
			log.Debug().Str("Symbol", holding.Symbol).Msg("no factor loadings for instrument; skipping")
			skipped = append(skipped, holding.Symbol)
			continue
		}

		for factor, loading := range row {
			if math.IsNaN(loading) || math.IsInf(loading, 0) {
				continue
			}
			exposures[factor] += holding.Weight * loading
		}
	}

	return exposures, skipped
}

// finiteLoadings copies a loading row dropping non-finite values
func finiteLoadings(row map[string]float64) map[string]float64 {
	res := make(map[string]float64, len(row))
	for factor, loading := range row {
		if !math.IsNaN(loading) && !math.IsInf(loading, 0) {
			res[factor] = loading
		}
	}
	return res
}

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

package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/penny-vault/pv-analytics/dataframe"
	"github.com/rs/zerolog/log"
)

const (
	PortfolioColumn = "Portfolio"
	BenchmarkColumn = "Benchmark"
)

// Returns holds the daily return series derived from a set of price series
type Returns struct {
	// Portfolio is the weighted portfolio return series (single column named Portfolio)
	Portfolio *dataframe.DataFrame[time.Time]

	// Instruments holds the aligned return series of every included instrument, one column per
	// symbol. Values may be NaN where a price was not usable.
	Instruments *dataframe.DataFrame[time.Time]

	// Weights are the weights of the included instruments renormalized to sum to 1
	Weights map[string]float64

	// Excluded lists symbols that had a weight but no usable price series
	Excluded []string
}

// Len returns the number of portfolio return observations
func (r *Returns) Len() int {
	return r.Portfolio.Len()
}

// Values returns the portfolio returns as a slice
func (r *Returns) Values() []float64 {
	return r.Portfolio.Vals[0]
}

// CalculateReturns aligns the price series of every weighted instrument on common trading days,
// converts them to simple daily returns and combines them into a portfolio return series.
//
// Instruments with fewer than 2 prices are excluded and the weights of the remaining instruments
// are renormalized to sum to 1. At each date instruments without a finite return are skipped and
// the weights of the others renormalized again, so
//
//	portfolio[t] = Σ w_i * r_i[t] / Σ w_i   (over instruments with a return at t)
//
// When no weight remains the portfolio series is zero-filled over the aligned dates. This
// function never fails; missing data shows up as exclusions or an empty series.
func CalculateReturns(prices dataframe.Map[time.Time], weights map[string]float64) *Returns {
	symbols := make([]string, 0, len(weights))
	for symbol := range weights {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	included := dataframe.Map[time.Time]{}
	excluded := []string{}
	for _, symbol := range symbols {
		series, ok := prices[symbol]
		if !ok || series == nil || series.Len() < 2 || series.ColCount() == 0 {
			log.Warn().Str("Symbol", symbol).Msg("instrument has fewer than 2 prices; excluded from portfolio returns")
			excluded = append(excluded, symbol)
			continue
		}
		included[symbol] = &dataframe.DataFrame[time.Time]{
			Index:    series.Index,
			ColNames: []string{symbol},
			Vals:     [][]float64{series.Vals[0]},
		}
	}

	instruments := included.Join().PctChange()

	total := 0.0
	for _, symbol := range instruments.ColNames {
		total += weights[symbol]
	}

	effective := make(map[string]float64, len(instruments.ColNames))
	for _, symbol := range instruments.ColNames {
		if total > 0 {
			effective[symbol] = weights[symbol] / total
		} else {
			effective[symbol] = 0
		}
	}

	port := make([]float64, instruments.Len())
	for rowIdx := range instruments.Index {
		num := 0.0
		den := 0.0
		for colIdx, symbol := range instruments.ColNames {
			ret := instruments.Vals[colIdx][rowIdx]
			if math.IsNaN(ret) || math.IsInf(ret, 0) {
				continue
			}
			num += effective[symbol] * ret
			den += effective[symbol]
		}
		if den > 0 {
			port[rowIdx] = num / den
		}
	}

	if total <= 0 && len(instruments.ColNames) > 0 {
		log.Warn().Msg("no instrument weight remains after exclusions; portfolio returns are zero")
	}

	return &Returns{
		Portfolio: &dataframe.DataFrame[time.Time]{
			Index:    instruments.Index,
			ColNames: []string{PortfolioColumn},
			Vals:     [][]float64{port},
		},
		Instruments: instruments,
		Weights:     effective,
		Excluded:    excluded,
	}
}

// SeriesReturns converts a single price series into a return series whose column is named name.
// Returns that are not finite are dropped.
func SeriesReturns(prices *dataframe.DataFrame[time.Time], name string) *dataframe.DataFrame[time.Time] {
	if prices == nil || prices.ColCount() == 0 {
		return &dataframe.DataFrame[time.Time]{
			Index:    []time.Time{},
			ColNames: []string{name},
			Vals:     [][]float64{{}},
		}
	}

	rets := (&dataframe.DataFrame[time.Time]{
		Index:    prices.Index,
		ColNames: []string{name},
		Vals:     [][]float64{prices.Vals[0]},
	}).PctChange()

	res := &dataframe.DataFrame[time.Time]{
		Index:    make([]time.Time, 0, rets.Len()),
		ColNames: []string{name},
		Vals:     [][]float64{make([]float64, 0, rets.Len())},
	}
	for idx, val := range rets.Vals[0] {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			continue
		}
		res.Index = append(res.Index, rets.Index[idx])
		res.Vals[0] = append(res.Vals[0], val)
	}

	return res
}

// align restricts two single column return series to their common dates
func align(a, b *dataframe.DataFrame[time.Time]) (dates []time.Time, av, bv []float64) {
	if a == nil || b == nil || a.Len() == 0 || b.Len() == 0 {
		return []time.Time{}, []float64{}, []float64{}
	}

	joined := dataframe.Map[time.Time]{
		"a": a,
		"b": b,
	}.Join()

	return joined.Index, joined.Vals[0], joined.Vals[1]
}

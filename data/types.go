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
	"math"
	"sort"
	"time"

	"github.com/penny-vault/pv-analytics/dataframe"
	"github.com/rs/zerolog"
)

// Availability is the tagged result of looking up price history for one symbol. Exactly one of
// Series or Reason is set.
type Availability struct {
	Symbol   string
	Provider string
	Series   *dataframe.DataFrame[time.Time]
	Reason   error
}

// Available wraps a price series. Series with fewer than 2 observations cannot produce a return
// and are reported as unavailable instead.
func Available(symbol, provider string, series *dataframe.DataFrame[time.Time]) *Availability {
	if series == nil || series.Len() < 2 {
		return Unavailable(symbol, ErrInsufficientHistory)
	}
	return &Availability{
		Symbol:   symbol,
		Provider: provider,
		Series:   series,
	}
}

// Unavailable records why no usable price history exists for symbol
func Unavailable(symbol string, reason error) *Availability {
	if reason == nil {
		reason = ErrNotFound
	}
	return &Availability{
		Symbol: symbol,
		Reason: reason,
	}
}

// Ok returns true if a usable series is attached
func (a *Availability) Ok() bool {
	return a != nil && a.Reason == nil && a.Series != nil
}

// MarshalZerologObject implement the log marshaller interface for zerolog
func (a *Availability) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Symbol", a.Symbol).Bool("Ok", a.Ok())
	if a.Ok() {
		e.Str("Provider", a.Provider).Int("NumObs", a.Series.Len())
	} else {
		e.AnErr("Reason", a.Reason)
	}
}

// pricePoint is a single end-of-day observation
type pricePoint struct {
	date  time.Time
	price float64
}

// newPriceFrame builds a single column frame named by symbol. Observations are moved to market
// close, sorted, de-duplicated by calendar day (last wins) and non-finite or non-positive prices
// are discarded.
func newPriceFrame(symbol string, points []pricePoint) *dataframe.DataFrame[time.Time] {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].date.Before(points[j].date)
	})

	df := &dataframe.DataFrame[time.Time]{
		Index:    make([]time.Time, 0, len(points)),
		ColNames: []string{symbol},
		Vals:     [][]float64{make([]float64, 0, len(points))},
	}

	for _, pt := range points {
		if math.IsNaN(pt.price) || math.IsInf(pt.price, 0) || pt.price <= 0 {
			continue
		}
		dt := MarketClose(pt.date)
		if n := df.Len(); n > 0 && df.Index[n-1].Equal(dt) {
			df.Vals[0][n-1] = pt.price
			continue
		}
		df.InsertRow(dt, pt.price)
	}

	return df
}

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
	"time"

	"github.com/penny-vault/pv-analytics/common"
	"github.com/penny-vault/pv-analytics/data"
	"github.com/penny-vault/pv-analytics/dataframe"
)

// Window is a named lookback period anchored at "now"
type Window string

const (
	YTD       Window = "YTD"
	OneYear   Window = "1Y"
	ThreeYear Window = "3Y"
	FiveYear  Window = "5Y"
)

// Windows lists the lookback windows in presentation order
var Windows = []Window{YTD, OneYear, ThreeYear, FiveYear}

// annualizeAfterDays is the calendar span a window must exceed before annualized figures are
// reported
const annualizeAfterDays = 365

// Start returns the first calendar day included in the window
func (w Window) Start(now time.Time) time.Time {
	now = now.In(common.GetTimezone())
	switch w {
	case YTD:
		return data.StartOfDay(time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()))
	case OneYear:
		return data.StartOfDay(now.AddDate(-1, 0, 0))
	case ThreeYear:
		return data.StartOfDay(now.AddDate(-3, 0, 0))
	case FiveYear:
		return data.StartOfDay(now.AddDate(-5, 0, 0))
	}
	return now
}

// Pair reports a figure for the portfolio and the benchmark together with their difference
type Pair struct {
	Portfolio  float64
	Benchmark  float64
	Difference float64
}

func newPair(portfolio, benchmark float64) *Pair {
	return &Pair{
		Portfolio:  portfolio,
		Benchmark:  benchmark,
		Difference: portfolio - benchmark,
	}
}

// WindowMetrics compares the portfolio to the benchmark over one window
type WindowMetrics struct {
	Window       Window
	Start        time.Time
	End          time.Time
	Observations int

	TotalReturn *Pair

	// AnnualizedReturn is nil unless the observations span more than 365 calendar days
	AnnualizedReturn *Pair
	Volatility       *Pair
	SharpeRatio      *Pair
	MaxDrawdown      *Pair

	WinRate          float64
	Correlation      float64
	Beta             float64
	TrackingError    float64
	InformationRatio float64
}

// Comparison is the output of the benchmark comparator
type Comparison struct {
	Benchmark string

	// Overall compares the full common history; nil when fewer than 2 common observations exist
	Overall *WindowMetrics

	// Windows holds one entry per lookback window in Windows order; an entry is nil when the
	// window has fewer than 2 common observations
	Windows []*WindowMetrics
}

// Window returns the metrics of the named window or nil
func (c *Comparison) Window(w Window) *WindowMetrics {
	for idx, name := range Windows {
		if name == w && idx < len(c.Windows) {
			return c.Windows[idx]
		}
	}
	return nil
}

// Compare evaluates the portfolio against the benchmark over the full common history and over
// every lookback window ending at now
func Compare(portfolio, benchmark *dataframe.DataFrame[time.Time], symbol string, now time.Time, riskFreeRate float64) *Comparison {
	res := &Comparison{
		Benchmark: symbol,
		Windows:   make([]*WindowMetrics, len(Windows)),
	}

	dates, pv, bv := align(portfolio, benchmark)
	if len(dates) == 0 {
		return res
	}

	aligned := &dataframe.DataFrame[time.Time]{
		Index:    dates,
		ColNames: []string{PortfolioColumn, BenchmarkColumn},
		Vals:     [][]float64{pv, bv},
	}

	res.Overall = compareWindow("", aligned, riskFreeRate)
	for idx, w := range Windows {
		res.Windows[idx] = compareWindow(w, aligned.Trim(w.Start(now), data.MarketClose(now)), riskFreeRate)
	}

	return res
}

// compareWindow computes the paired metrics of an aligned two column frame (portfolio then
// benchmark) that has already been restricted to the window's dates. Windows with fewer than 2
// observations return nil.
func compareWindow(w Window, aligned *dataframe.DataFrame[time.Time], riskFreeRate float64) *WindowMetrics {
	if aligned.Len() < 2 {
		return nil
	}

	pv := aligned.Vals[0]
	bv := aligned.Vals[1]

	pStats := ComputeStandalone(pv, riskFreeRate)
	bStats := ComputeStandalone(bv, riskFreeRate)

	res := &WindowMetrics{
		Window:       w,
		Start:        aligned.Start(),
		End:          aligned.End(),
		Observations: aligned.Len(),

		TotalReturn: newPair(TotalReturn(pv), TotalReturn(bv)),
		Volatility:  newPair(pStats.Volatility, bStats.Volatility),
		SharpeRatio: newPair(pStats.SharpeRatio, bStats.SharpeRatio),
		MaxDrawdown: newPair(pStats.MaxDrawdown, bStats.MaxDrawdown),

		WinRate:          WinRate(pv, bv),
		Correlation:      Correlation(pv, bv),
		Beta:             Beta(pv, bv),
		TrackingError:    TrackingError(pv, bv),
		InformationRatio: InformationRatio(pv, bv),
	}

	if res.End.Sub(res.Start) > annualizeAfterDays*24*time.Hour {
		res.AnnualizedReturn = newPair(pStats.AnnualizedReturn, bStats.AnnualizedReturn)
	}

	return res
}

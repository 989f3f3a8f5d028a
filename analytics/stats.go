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

	"github.com/penny-vault/pv-analytics/dataframe"
)

// Statistics summarizes the performance of a return series
type Statistics struct {
	Start        time.Time
	End          time.Time
	Observations int

	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64
	SharpeRatio      float64
	MaxDrawdown      float64

	// InceptionReturn is the cumulative return over the whole series in percent
	InceptionReturn float64

	// WinRate is the fraction of periods the portfolio beat the benchmark; nil without a benchmark
	WinRate *float64

	Monthly []*PeriodReturn
}

// PeriodReturn is the compounded return of one calendar bucket
type PeriodReturn struct {
	Date  time.Time
	Label string

	// Return is the compounded return within the bucket
	Return float64

	// Cumulative is the compounded growth since the start of the series in percent points
	// relative to a 100 base index (105.3 is reported as 5.3)
	Cumulative float64
}

// ComputeStatistics calculates summary statistics of the portfolio return series. The benchmark
// series is optional and only used for the win rate, which is computed over common dates.
func ComputeStatistics(portfolio, benchmark *dataframe.DataFrame[time.Time], riskFreeRate float64) *Statistics {
	r := []float64{}
	if portfolio != nil && portfolio.ColCount() > 0 {
		r = portfolio.Vals[0]
	}

	stats := &Statistics{
		Observations:     len(r),
		TotalReturn:      TotalReturn(r),
		AnnualizedReturn: AnnualizedReturn(r),
		Volatility:       Volatility(r),
		MaxDrawdown:      MaxDrawdown(r),
		Monthly:          []*PeriodReturn{},
	}

	if portfolio != nil {
		stats.Start = portfolio.Start()
		stats.End = portfolio.End()
		stats.Monthly = MonthlyBreakdown(portfolio)
	}

	stats.SharpeRatio = SharpeRatio(stats.AnnualizedReturn, riskFreeRate, stats.Volatility)
	stats.InceptionReturn = stats.TotalReturn * 100

	if benchmark != nil && benchmark.Len() > 0 {
		_, pv, bv := align(portfolio, benchmark)
		if len(pv) > 0 {
			winRate := WinRate(pv, bv)
			stats.WinRate = &winRate
		}
	}

	return stats
}

// MonthlyBreakdown buckets a daily return series into calendar months. Within each month returns
// are compounded; the cumulative figure tracks the growth of the whole series up to the last
// observation of the month.
func MonthlyBreakdown(returns *dataframe.DataFrame[time.Time]) []*PeriodReturn {
	if returns == nil || returns.Len() == 0 || returns.ColCount() == 0 {
		return []*PeriodReturn{}
	}

	single := &dataframe.DataFrame[time.Time]{
		Index:    returns.Index,
		ColNames: returns.ColNames[:1],
		Vals:     returns.Vals[:1],
	}

	growth := single.AddScalar(1).CumProd().Frequency(dataframe.MonthEnd)

	res := make([]*PeriodReturn, growth.Len())
	prev := 1.0
	for idx, dt := range growth.Index {
		val := growth.Vals[0][idx]
		res[idx] = &PeriodReturn{
			Date:       dt,
			Label:      dt.Format("2006-01"),
			Return:     finite(val/prev-1, 0),
			Cumulative: finite((val-1)*100, 0),
		}
		prev = val
	}

	return res
}

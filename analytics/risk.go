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
)

// Confidence level used for value at risk figures
const Confidence = 0.95

// RiskPeriod is the trailing window definition used by the risk periods table
type RiskPeriod struct {
	Name string
	Days int
}

// RiskPeriods are the trailing windows reported in the risk periods table
var RiskPeriods = []RiskPeriod{
	{Name: "1M", Days: 21},
	{Name: "3M", Days: 63},
	{Name: "6M", Days: 126},
	{Name: "1Y", Days: 252},
	{Name: "3Y", Days: 756},
}

// Standalone holds the risk figures that only depend on a single return series
type Standalone struct {
	Volatility       float64
	MaxDrawdown      float64
	DownsideRisk     float64
	ValueAtRisk      float64
	ConditionalVaR   float64
	SharpeRatio      float64
	SortinoRatio     float64
	AnnualizedReturn float64
}

// RiskContribution is an instrument's share of portfolio volatility
type RiskContribution struct {
	Symbol      string
	Weight      float64
	Volatility  float64
	Correlation float64

	// Contribution is w * corr * vol_i / vol_p in percent
	Contribution float64
}

// PeriodRisk holds the risk figures over a trailing window
type PeriodRisk struct {
	Period       string
	Observations int
	Volatility   float64

	// ValueAtRisk is the annualized 95% value at risk: percentile5 * sqrt(252)
	ValueAtRisk   float64
	Beta          float64
	TrackingError float64
}

// Risk is the output of the risk engine
type Risk struct {
	Standalone

	// ValueAtRiskAnnualized is the daily value at risk scaled by sqrt(252)
	ValueAtRiskAnnualized float64

	Beta             float64
	TrackingError    float64
	InformationRatio float64
	LongestDrawdown  int

	// Benchmark carries the standalone figures of the benchmark; nil without a benchmark
	Benchmark *Standalone

	Contributions []*RiskContribution
	Periods       []*PeriodRisk
}

// ComputeStandalone computes the single series risk figures
func ComputeStandalone(r []float64, riskFreeRate float64) *Standalone {
	s := &Standalone{
		Volatility:       Volatility(r),
		MaxDrawdown:      MaxDrawdown(r),
		DownsideRisk:     DownsideRisk(r),
		ValueAtRisk:      ValueAtRisk(r, Confidence),
		ConditionalVaR:   ConditionalVaR(r, Confidence),
		AnnualizedReturn: AnnualizedReturn(r),
	}
	s.SharpeRatio = SharpeRatio(s.AnnualizedReturn, riskFreeRate, s.Volatility)
	s.SortinoRatio = SortinoRatio(s.AnnualizedReturn, riskFreeRate, s.DownsideRisk)
	return s
}

// ComputeRisk runs the risk engine over the portfolio returns. The benchmark series is optional;
// without it beta is 1 and the tracking error and information ratio are 0. Benchmark relative
// figures only use the dates common to both series.
func ComputeRisk(returns *Returns, benchmark *dataframe.DataFrame[time.Time], riskFreeRate float64) *Risk {
	r := returns.Values()

	risk := &Risk{
		Standalone:      *ComputeStandalone(r, riskFreeRate),
		Beta:            1,
		LongestDrawdown: LongestDrawdown(r),
	}
	risk.ValueAtRiskAnnualized = risk.ValueAtRisk * sqrtTradingDays

	if benchmark != nil && benchmark.Len() > 0 && benchmark.ColCount() > 0 {
		_, pv, bv := align(returns.Portfolio, benchmark)
		risk.Beta = Beta(pv, bv)
		risk.TrackingError = TrackingError(pv, bv)
		risk.InformationRatio = InformationRatio(pv, bv)
		risk.Benchmark = ComputeStandalone(bv, riskFreeRate)
	}

	risk.Contributions = Contributions(returns)
	risk.Periods = ComputePeriodRisk(returns.Portfolio, benchmark, risk.Beta)

	return risk
}

// Contributions decomposes portfolio volatility into per-instrument contributions:
//
//	contribution_i = w_i * corr(r_i, r_p) * vol_i / vol_p * 100
//
// With normalized weights the contributions sum to ~100. The result is sorted by contribution,
// largest first. When the portfolio volatility is 0 every contribution is 0.
func Contributions(returns *Returns) []*RiskContribution {
	instruments := returns.Instruments
	res := make([]*RiskContribution, 0, instruments.ColCount())
	if instruments.ColCount() == 0 {
		return res
	}

	port := returns.Values()
	portVol := Volatility(port)

	for colIdx, symbol := range instruments.ColNames {
		ri, rp := finitePairs(instruments.Vals[colIdx], port)
		item := &RiskContribution{
			Symbol:      symbol,
			Weight:      returns.Weights[symbol],
			Volatility:  Volatility(ri),
			Correlation: Correlation(ri, rp),
		}
		item.Contribution = ratio(item.Weight*item.Correlation*item.Volatility, portVol) * 100
		res = append(res, item)
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Contribution == res[j].Contribution {
			return res[i].Symbol < res[j].Symbol
		}
		return res[i].Contribution > res[j].Contribution
	})

	return res
}

// ComputePeriodRisk computes volatility, annualized VaR and tracking error over the trailing
// windows in RiskPeriods. Each window is capped at the available history. Beta is estimated over
// the full series and repeated for every window.
func ComputePeriodRisk(portfolio, benchmark *dataframe.DataFrame[time.Time], beta float64) []*PeriodRisk {
	res := make([]*PeriodRisk, 0, len(RiskPeriods))
	if portfolio == nil {
		return res
	}

	for _, period := range RiskPeriods {
		window := portfolio.Last(period.Days)
		r := window.Vals[0]

		item := &PeriodRisk{
			Period:       period.Name,
			Observations: len(r),
			Volatility:   Volatility(r),
			ValueAtRisk:  ValueAtRisk(r, Confidence) * sqrtTradingDays,
			Beta:         beta,
		}

		if benchmark != nil && benchmark.Len() > 0 && window.Len() > 0 {
			_, pv, bv := align(window, benchmark)
			item.TrackingError = TrackingError(pv, bv)
		}

		res = append(res, item)
	}

	return res
}

// finitePairs drops the positions where either series is not finite
func finitePairs(a, b []float64) (af, bf []float64) {
	af = make([]float64, 0, len(a))
	bf = make([]float64, 0, len(b))
	for idx := range a {
		if idx >= len(b) {
			break
		}
		if math.IsNaN(a[idx]) || math.IsInf(a[idx], 0) || math.IsNaN(b[idx]) || math.IsInf(b[idx], 0) {
			continue
		}
		af = append(af, a[idx])
		bf = append(bf, b[idx])
	}
	return af, bf
}

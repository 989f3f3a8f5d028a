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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// TradingDays is the number of trading days in a year used for annualization
	TradingDays = 252

	// epsilon is the magnitude below which a volatility or variance is treated as zero
	epsilon = 1e-12

	// minBetaObservations is the number of common observations required to estimate beta
	minBetaObservations = 10
)

var sqrtTradingDays = math.Sqrt(TradingDays)

// finite returns x unless it is NaN or infinite in which case it returns def
func finite(x, def float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return def
	}
	return x
}

// ratio divides num by den returning 0 when den is ~0 or the result is not finite
func ratio(num, den float64) float64 {
	if math.Abs(den) < epsilon || math.IsNaN(den) {
		return 0
	}
	return finite(num/den, 0)
}

// TotalReturn compounds a return series: Π(1+r) - 1. An empty series has a total return of 0.
func TotalReturn(r []float64) float64 {
	total := 1.0
	for _, xx := range r {
		total *= 1 + xx
	}
	return finite(total-1, 0)
}

// AnnualizedReturn is the simple annualization of the mean daily return: mean(r) * 252. This
// convention is used for every annualized figure so that Sharpe, Sortino and information ratios
// share a denominator convention.
func AnnualizedReturn(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	return finite(stat.Mean(r, nil)*TradingDays, 0)
}

// Volatility is the annualized sample standard deviation of returns. Fewer than 2 observations
// have no dispersion and report 0.
func Volatility(r []float64) float64 {
	if len(r) < 2 {
		return 0
	}
	return finite(stat.StdDev(r, nil)*sqrtTradingDays, 0)
}

// SharpeRatio measures excess return per unit of volatility. Zero volatility yields 0.
func SharpeRatio(annualizedReturn, riskFreeRate, volatility float64) float64 {
	return ratio(annualizedReturn-riskFreeRate, volatility)
}

// SortinoRatio is a variation of the Sharpe ratio that only penalizes downside volatility. A
// zero downside risk yields 0.
func SortinoRatio(annualizedReturn, riskFreeRate, downsideRisk float64) float64 {
	return ratio(annualizedReturn-riskFreeRate, downsideRisk)
}

// drawdowns returns, for each observation, the decline of the cumulative return curve from its
// running peak: cum/peak - 1
func drawdowns(r []float64) []float64 {
	dd := make([]float64, len(r))
	cum := 1.0
	peak := math.Inf(-1)
	for idx, xx := range r {
		cum *= 1 + xx
		if cum > peak {
			peak = cum
		}
		dd[idx] = finite(cum/peak-1, 0)
	}
	return dd
}

// MaxDrawdown is the largest peak to trough decline of the cumulative return curve. It is always
// <= 0.
func MaxDrawdown(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	return math.Min(floats.Min(drawdowns(r)), 0)
}

// LongestDrawdown is the length in periods of the longest contiguous run where the cumulative
// return curve is strictly below its running peak
func LongestDrawdown(r []float64) int {
	longest := 0
	current := 0
	for _, dd := range drawdowns(r) {
		if dd < 0 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

// DownsideRisk is the annualized sample standard deviation of the negative returns. Fewer than 2
// negative returns report 0.
func DownsideRisk(r []float64) float64 {
	negative := make([]float64, 0, len(r))
	for _, xx := range r {
		if xx < 0 {
			negative = append(negative, xx)
		}
	}
	return Volatility(negative)
}

// ValueAtRisk is the (1-confidence) percentile of the daily return distribution. It is left
// un-annualized; an empty series reports 0.
func ValueAtRisk(r []float64, confidence float64) float64 {
	return finite(percentile(r, (1-confidence)*100), 0)
}

// ConditionalVaR is the mean of the returns at or below the value at risk
func ConditionalVaR(r []float64, confidence float64) float64 {
	if len(r) == 0 {
		return 0
	}

	threshold := ValueAtRisk(r, confidence)
	tail := make([]float64, 0, len(r))
	for _, xx := range r {
		if xx <= threshold {
			tail = append(tail, xx)
		}
	}

	if len(tail) == 0 {
		return threshold
	}
	return finite(stat.Mean(tail, nil), 0)
}

// Beta is the systematic risk of the portfolio relative to the benchmark as defined by the
// Capital Asset Pricing Model: cov(p, b) / var(b). Both series must be aligned to common dates.
// With fewer than 10 common observations or a benchmark variance of ~0 beta defaults to 1.
func Beta(p, b []float64) float64 {
	if len(p) != len(b) || len(p) < minBetaObservations {
		return 1
	}

	variance := stat.Variance(b, nil)
	if variance < epsilon || math.IsNaN(variance) {
		return 1
	}

	return finite(stat.Covariance(p, b, nil)/variance, 1)
}

// excess returns p - b element wise
func excess(p, b []float64) []float64 {
	res := make([]float64, len(p))
	floats.SubTo(res, p, b)
	return res
}

// TrackingError is the annualized standard deviation of the difference between portfolio and
// benchmark returns. Both series must be aligned to common dates.
func TrackingError(p, b []float64) float64 {
	if len(p) != len(b) {
		return 0
	}
	return Volatility(excess(p, b))
}

// InformationRatio is the annualized excess return over the benchmark per unit of tracking
// error. A zero tracking error yields 0.
func InformationRatio(p, b []float64) float64 {
	if len(p) != len(b) {
		return 0
	}
	diff := excess(p, b)
	return ratio(AnnualizedReturn(diff), Volatility(diff))
}

// WinRate is the fraction of periods where the portfolio return beat the benchmark return
func WinRate(p, b []float64) float64 {
	if len(p) == 0 || len(p) != len(b) {
		return 0
	}

	wins := 0
	for idx := range p {
		if p[idx] > b[idx] {
			wins++
		}
	}
	return float64(wins) / float64(len(p))
}

// Correlation is the Pearson correlation of two aligned series. Degenerate inputs report 0.
func Correlation(a, b []float64) float64 {
	if len(a) < 2 || len(a) != len(b) {
		return 0
	}
	return finite(stat.Correlation(a, b, nil), 0)
}

// percentile returns the p-th percentile (0-100) of x using linear interpolation between the
// closest ranks (the same definition used by numpy and Excel's PERCENTILE.INC). Returns NaN
// for an empty slice.
func percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

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

// ChartPoint is one sample of the growth of 1 for the portfolio and the benchmark
type ChartPoint struct {
	Date      time.Time
	Portfolio float64
	Benchmark *float64
}

// ComparisonChart samples the cumulative growth of the portfolio, and of the benchmark when
// available, at roughly `points` evenly spaced observations. With a benchmark only the common
// dates are charted.
func ComparisonChart(portfolio, benchmark *dataframe.DataFrame[time.Time], points int) []*ChartPoint {
	res := make([]*ChartPoint, 0, points+1)
	if portfolio == nil || portfolio.Len() == 0 {
		return res
	}

	frame := &dataframe.DataFrame[time.Time]{
		Index:    portfolio.Index,
		ColNames: []string{PortfolioColumn},
		Vals:     [][]float64{portfolio.Vals[0]},
	}

	hasBenchmark := false
	if benchmark != nil && benchmark.Len() > 0 {
		dates, pv, bv := align(portfolio, benchmark)
		if len(dates) > 0 {
			hasBenchmark = true
			frame = &dataframe.DataFrame[time.Time]{
				Index:    dates,
				ColNames: []string{PortfolioColumn, BenchmarkColumn},
				Vals:     [][]float64{pv, bv},
			}
		}
	}

	growth := frame.AddScalar(1).CumProd().Sample(points)
	for idx, dt := range growth.Index {
		point := &ChartPoint{
			Date:      dt,
			Portfolio: growth.Vals[0][idx],
		}
		if hasBenchmark {
			val := growth.Vals[1][idx]
			point.Benchmark = &val
		}
		res = append(res, point)
	}

	return res
}

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

package analytics_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-analytics/analytics"
	"github.com/penny-vault/pv-analytics/dataframe"
)

var _ = Describe("Returns", func() {
	var (
		start  time.Time
		prices dataframe.Map[time.Time]
	)

	BeforeEach(func() {
		start = day(2021, 1, 4)
		prices = dataframe.Map[time.Time]{
			"A": frame("A", start, 100, 102, 101),
			"B": frame("B", start, 50, 49, 50),
		}
	})

	It("combines instrument returns with the weights", func() {
		res := analytics.CalculateReturns(prices, map[string]float64{"A": 0.6, "B": 0.4})

		Expect(res.Len()).To(Equal(2))
		Expect(res.Values()[0]).To(BeNumerically("~", 0.004, 1e-9))
		Expect(res.Values()[1]).To(BeNumerically("~", 0.00228092, 1e-8))
		Expect(res.Instruments.Column("A")[0]).To(BeNumerically("~", 0.02, 1e-12))
		Expect(res.Instruments.Column("B")[1]).To(BeNumerically("~", 0.0204082, 1e-7))
		Expect(res.Excluded).To(BeEmpty())
		Expect(res.Portfolio.Index[0]).To(Equal(day(2021, 1, 5)))
	})

	It("normalizes weights that do not sum to 1", func() {
		res := analytics.CalculateReturns(prices, map[string]float64{"A": 3, "B": 2})
		Expect(res.Weights["A"]).To(BeNumerically("~", 0.6, 1e-12))
		Expect(res.Values()[0]).To(BeNumerically("~", 0.004, 1e-9))
	})

	It("aligns instruments on common dates", func() {
		prices["B"] = &dataframe.DataFrame[time.Time]{
			Index:    []time.Time{day(2021, 1, 4), day(2021, 1, 6)},
			ColNames: []string{"B"},
			Vals:     [][]float64{{50, 55}},
		}

		res := analytics.CalculateReturns(prices, map[string]float64{"A": 0.5, "B": 0.5})
		Expect(res.Len()).To(Equal(1))
		Expect(res.Portfolio.Index[0]).To(Equal(day(2021, 1, 6)))
		Expect(res.Values()[0]).To(BeNumerically("~", 0.5*0.01+0.5*0.1, 1e-12))
	})

	It("excludes instruments with fewer than 2 prices and renormalizes", func() {
		prices["C"] = frame("C", start, 20)
		res := analytics.CalculateReturns(prices, map[string]float64{"A": 0.3, "B": 0.2, "C": 0.5})

		Expect(res.Excluded).To(Equal([]string{"C"}))
		Expect(res.Weights).To(HaveLen(2))
		Expect(res.Weights["A"]).To(BeNumerically("~", 0.6, 1e-12))
		Expect(res.Values()[0]).To(BeNumerically("~", 0.004, 1e-9))
	})

	It("excludes instruments without any prices", func() {
		res := analytics.CalculateReturns(prices, map[string]float64{"A": 0.5, "MISSING": 0.5})
		Expect(res.Excluded).To(Equal([]string{"MISSING"}))
		Expect(res.Values()[0]).To(BeNumerically("~", 0.02, 1e-12))
	})

	It("renormalizes over the instruments with a return at each date", func() {
		prices["B"] = frame("B", start, 50, math.NaN(), 50)
		res := analytics.CalculateReturns(prices, map[string]float64{"A": 0.6, "B": 0.4})

		Expect(res.Len()).To(Equal(2))
		Expect(res.Values()[0]).To(BeNumerically("~", 0.02, 1e-12))
		Expect(res.Values()[1]).To(BeNumerically("~", 101.0/102.0-1, 1e-12))
	})

	It("zero fills the portfolio when no weight remains", func() {
		res := analytics.CalculateReturns(prices, map[string]float64{"A": 0, "B": 0})
		Expect(res.Values()).To(Equal([]float64{0, 0}))
	})

	It("returns an empty series when nothing is available", func() {
		res := analytics.CalculateReturns(dataframe.Map[time.Time]{}, map[string]float64{"A": 1})
		Expect(res.Len()).To(Equal(0))
		Expect(res.Excluded).To(Equal([]string{"A"}))
	})

	It("is always one shorter than the aligned prices", func() {
		for n := 2; n < 8; n++ {
			vals := make([]float64, n)
			for idx := range vals {
				vals[idx] = 100 + float64(idx)
			}
			res := analytics.CalculateReturns(dataframe.Map[time.Time]{"A": frame("A", start, vals...)}, map[string]float64{"A": 1})
			Expect(res.Len()).To(Equal(n - 1))
		}
	})

	It("drops non-finite single series returns", func() {
		rets := analytics.SeriesReturns(frame("SPY", start, 100, math.NaN(), 100, 110), analytics.BenchmarkColumn)
		Expect(rets.ColNames).To(Equal([]string{analytics.BenchmarkColumn}))
		Expect(rets.Len()).To(Equal(1))
		Expect(rets.Vals[0][0]).To(BeNumerically("~", 0.1, 1e-12))
		Expect(analytics.SeriesReturns(nil, "X").Len()).To(Equal(0))
	})
})

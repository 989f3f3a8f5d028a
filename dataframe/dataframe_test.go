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

package dataframe_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-analytics/dataframe"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("DataFrame", func() {
	Context("with no values", func() {
		var (
			df *dataframe.DataFrame[time.Time]
		)

		BeforeEach(func() {
			df = &dataframe.DataFrame[time.Time]{}
		})

		It("has zero length", func() {
			Expect(df.Len()).To(Equal(0))
			Expect(df.ColCount()).To(Equal(0))
		})

		It("does not error on breakout", func() {
			Expect(df.Breakout()).To(HaveLen(0))
		})

		It("does not error on drop", func() {
			Expect(df.Drop(1).Len()).To(Equal(0))
		})

		It("does not error on trim", func() {
			Expect(df.Trim(day(2021, 1, 1), day(2022, 1, 1)).Len()).To(Equal(0))
		})

		It("does not error on frequency", func() {
			Expect(df.Frequency(dataframe.Weekly).Len()).To(Equal(0))
		})

		It("has an empty pct change", func() {
			Expect(df.PctChange().Len()).To(Equal(0))
		})

		It("prints a placeholder table", func() {
			Expect(df.Table()).To(Equal("<NO DATA>"))
		})
	})

	Context("with 2 years of values and a single column", func() {
		var (
			df *dataframe.DataFrame[time.Time]
		)

		BeforeEach(func() {
			dates := make([]time.Time, 730)
			vals := make([]float64, 730)
			dt := day(2020, 1, 1)
			for idx := range dates {
				dates[idx] = dt
				dt = dt.AddDate(0, 0, 1)
				vals[idx] = float64(idx)
			}
			df = &dataframe.DataFrame[time.Time]{
				ColNames: []string{"Col1"},
				Index:    dates,
				Vals:     [][]float64{vals},
			}
		})

		It("has length", func() {
			Expect(df.Len()).To(Equal(730))
			Expect(df.ColCount()).To(Equal(1))
			Expect(df.Start()).To(Equal(day(2020, 1, 1)))
			Expect(df.End()).To(Equal(day(2021, 12, 30)))
		})

		It("can remove all 0s with drop", func() {
			df = df.Drop(0)
			Expect(df.Len()).To(Equal(729))
			Expect(df.Vals[0][0]).To(BeNumerically("==", 1.0))
		})

		It("does not modify the original when trimmed", func() {
			trimmed := df.Trim(day(2020, 6, 1), day(2020, 6, 5))
			trimmed.Vals[0] = []float64{-1}
			Expect(df.Vals[0][0]).To(BeNumerically("==", 0))
			Expect(df.Len()).To(Equal(730))
		})

		DescribeTable("trims values by date range", func(a, b time.Time, expectedLen int, expectedA, expectedB time.Time) {
			df = df.Trim(a, b)
			Expect(df.Len()).To(Equal(expectedLen))
			if expectedLen > 0 {
				Expect(df.Index[0]).To(Equal(expectedA), "expected begin date")
				Expect(df.Index[len(df.Index)-1]).To(Equal(expectedB), "expected end date")
				Expect(df.Vals[0]).To(HaveLen(expectedLen))
			}
		},
			Entry("whole range", day(2020, 1, 1), day(2021, 12, 30), 730, day(2020, 1, 1), day(2021, 12, 30)),
			Entry("range that does not exist in dataframe (left)", day(2018, 1, 1), day(2019, 12, 30), 0, day(2018, 1, 1), day(2019, 12, 30)),
			Entry("range that does not exist in dataframe (right)", day(2022, 1, 1), day(2023, 12, 30), 0, day(2022, 1, 1), day(2023, 12, 30)),
			Entry("range that touches start but not end", day(2020, 1, 1), day(2020, 1, 5), 5, day(2020, 1, 1), day(2020, 1, 5)),
			Entry("range that touches end but not start", day(2021, 12, 27), day(2021, 12, 30), 4, day(2021, 12, 27), day(2021, 12, 30)),
			Entry("range that starts before begin", day(2019, 1, 1), day(2020, 1, 5), 5, day(2020, 1, 1), day(2020, 1, 5)),
			Entry("range that extends beyond the end", day(2021, 12, 27), day(2021, 12, 31), 4, day(2021, 12, 27), day(2021, 12, 30)),
			Entry("range in the middle of dataframe", day(2020, 6, 1), day(2020, 6, 5), 5, day(2020, 6, 1), day(2020, 6, 5)),
			Entry("single date", day(2020, 1, 1), day(2020, 1, 1), 1, day(2020, 1, 1), day(2020, 1, 1)),
			Entry("inverted range", day(2021, 1, 1), day(2020, 1, 1), 0, day(2020, 1, 1), day(2020, 1, 1)),
			Entry("end on start", day(2019, 1, 1), day(2020, 1, 1), 1, day(2020, 1, 1), day(2020, 1, 1)),
			Entry("start on end", day(2021, 12, 30), day(2024, 1, 1), 1, day(2021, 12, 30), day(2021, 12, 30)),
		)

		DescribeTable("test frequency filter", func(frequency dataframe.Frequency, expectedCnt int, expectedStart, expectedEnd time.Time) {
			df = df.Frequency(frequency)
			Expect(df.Len()).To(Equal(expectedCnt), "expected count")
			if expectedCnt > 0 {
				Expect(df.Index[0]).To(Equal(expectedStart), "expected start")
				Expect(df.Index[len(df.Index)-1]).To(Equal(expectedEnd), "expected end")
			}
		},
			Entry("daily", dataframe.Daily, 730, day(2020, 1, 1), day(2021, 12, 30)),
			Entry("weekly", dataframe.Weekly, 105, day(2020, 1, 5), day(2021, 12, 30)),
			Entry("week begin", dataframe.WeekBegin, 105, day(2020, 1, 1), day(2021, 12, 27)),
			Entry("month begin", dataframe.MonthBegin, 24, day(2020, 1, 1), day(2021, 12, 1)),
			Entry("monthly", dataframe.Monthly, 24, day(2020, 1, 31), day(2021, 12, 30)),
			Entry("year begin", dataframe.YearBegin, 2, day(2020, 1, 1), day(2021, 1, 1)),
			Entry("annually", dataframe.Annually, 2, day(2020, 12, 31), day(2021, 12, 30)),
		)

		It("samples about the requested number of points", func() {
			sampled := df.Sample(30)
			// 730 / 30 = 24 -> rows 0, 24, ..., 720
			Expect(sampled.Len()).To(Equal(31))
			Expect(sampled.Index[0]).To(Equal(day(2020, 1, 1)))
			Expect(sampled.Vals[0][1]).To(BeNumerically("==", 24))
		})

		It("returns the last n rows", func() {
			last := df.Last(3)
			Expect(last.Vals[0]).To(Equal([]float64{727, 728, 729}))
			Expect(df.Last(1000).Len()).To(Equal(730))
		})
	})

	Context("when computing returns", func() {
		var (
			df *dataframe.DataFrame[time.Time]
		)

		BeforeEach(func() {
			df = &dataframe.DataFrame[time.Time]{
				Index:    []time.Time{day(2022, 1, 3), day(2022, 1, 4), day(2022, 1, 5)},
				ColNames: []string{"A", "B"},
				Vals:     [][]float64{{100, 102, 101}, {50, 49, 50}},
			}
		})

		It("has one fewer row than the prices", func() {
			rets := df.PctChange()
			Expect(rets.Len()).To(Equal(df.Len() - 1))
			Expect(rets.Index[0]).To(Equal(day(2022, 1, 4)))
		})

		It("computes simple percentage change", func() {
			rets := df.PctChange()
			Expect(rets.Vals[0][0]).To(BeNumerically("~", 0.02, 1e-12))
			Expect(rets.Vals[0][1]).To(BeNumerically("~", -0.00980392, 1e-8))
			Expect(rets.Vals[1][0]).To(BeNumerically("~", -0.02, 1e-12))
			Expect(rets.Vals[1][1]).To(BeNumerically("~", 0.02040816, 1e-8))
		})

		It("produces NaN after a zero price", func() {
			df.Vals[0][0] = 0
			rets := df.PctChange()
			Expect(math.IsNaN(rets.Vals[0][0])).To(BeTrue())
		})

		It("compounds growth and tracks the peak", func() {
			growth := df.PctChange().AddScalar(1).CumProd()
			Expect(growth.Vals[0][1]).To(BeNumerically("~", 1.01, 1e-12))
			peak := growth.RunningMax()
			Expect(peak.Vals[0]).To(Equal([]float64{growth.Vals[0][0], growth.Vals[0][0]}))
		})

		It("subtracts like-named columns", func() {
			other := &dataframe.DataFrame[time.Time]{
				Index:    df.Index,
				ColNames: []string{"B"},
				Vals:     [][]float64{{1, 1, 1}},
			}
			res := df.Sub(other)
			Expect(res.Vals[0]).To(Equal([]float64{100, 102, 101}))
			Expect(res.Vals[1]).To(Equal([]float64{49, 48, 49}))
		})

		It("scales values without modifying the source", func() {
			res := df.MulScalar(2)
			Expect(res.Vals[1]).To(Equal([]float64{100, 98, 100}))
			Expect(df.Vals[1]).To(Equal([]float64{50, 49, 50}))
		})

		It("prints a table", func() {
			Expect(df.Table()).To(ContainSubstring("2022-01-04"))
		})
	})

	Context("with NaN values in dataframe", func() {
		It("drops NaNs", func() {
			df := &dataframe.DataFrame[time.Time]{
				ColNames: []string{"Col1", "Col2"},
				Index:    []time.Time{day(2020, 1, 1), day(2020, 1, 2), day(2020, 1, 3)},
				Vals:     [][]float64{{1, math.NaN(), 3}, {1, 2, 3}},
			}
			df = df.Drop(math.NaN())
			Expect(df.Len()).To(Equal(2))
			Expect(df.Vals[1]).To(Equal([]float64{1, 3}))
			Expect(df.Index).To(Equal([]time.Time{day(2020, 1, 1), day(2020, 1, 3)}))
		})
	})
})

var _ = Describe("Map", func() {
	It("inner joins on the date index", func() {
		dfMap := dataframe.Map[time.Time]{
			"B": {
				Index:    []time.Time{day(2022, 1, 3), day(2022, 1, 5), day(2022, 1, 6)},
				ColNames: []string{"B"},
				Vals:     [][]float64{{10, 11, 12}},
			},
			"A": {
				Index:    []time.Time{day(2022, 1, 3), day(2022, 1, 4), day(2022, 1, 5)},
				ColNames: []string{"A"},
				Vals:     [][]float64{{1, 2, 3}},
			},
		}

		df := dfMap.Join()
		Expect(df.ColNames).To(Equal([]string{"A", "B"}))
		Expect(df.Index).To(Equal([]time.Time{day(2022, 1, 3), day(2022, 1, 5)}))
		Expect(df.Vals[0]).To(Equal([]float64{1, 3}))
		Expect(df.Vals[1]).To(Equal([]float64{10, 11}))
	})

	It("matches dates with different times of day", func() {
		tz := time.FixedZone("EST", -5*3600)
		dfMap := dataframe.Map[time.Time]{
			"A": {
				Index:    []time.Time{time.Date(2022, 1, 3, 16, 0, 0, 0, tz)},
				ColNames: []string{"A"},
				Vals:     [][]float64{{1}},
			},
			"B": {
				Index:    []time.Time{time.Date(2022, 1, 3, 0, 0, 0, 0, tz)},
				ColNames: []string{"B"},
				Vals:     [][]float64{{2}},
			},
		}
		Expect(dfMap.Join().Len()).To(Equal(1))
	})

	It("returns an empty frame for an empty map", func() {
		Expect(dataframe.Map[time.Time]{}.Join().Len()).To(Equal(0))
	})

	It("breaks out and rejoins", func() {
		df := &dataframe.DataFrame[time.Time]{
			Index:    []time.Time{day(2022, 1, 3), day(2022, 1, 4)},
			ColNames: []string{"Y", "X"},
			Vals:     [][]float64{{1, 2}, {3, 4}},
		}
		joined := df.Breakout().Join()
		Expect(joined.ColNames).To(Equal([]string{"X", "Y"}))
		Expect(joined.Column("Y")).To(Equal([]float64{1, 2}))
	})
})

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

package data_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analytics/data"
)

var _ = Describe("Interval", func() {
	day := func(m time.Month, d int) time.Time {
		return time.Date(2021, m, d, 0, 0, 0, 0, tz())
	}

	DescribeTable("containment",
		func(a, b *data.Interval, expected bool) {
			Expect(a.Contains(b)).To(Equal(expected))
		},
		Entry("identical intervals", &data.Interval{Begin: day(8, 3), End: day(8, 8)}, &data.Interval{Begin: day(8, 3), End: day(8, 8)}, true),
		Entry("strict subset", &data.Interval{Begin: day(8, 3), End: day(8, 8)}, &data.Interval{Begin: day(8, 4), End: day(8, 6)}, true),
		Entry("superset", &data.Interval{Begin: day(8, 3), End: day(8, 8)}, &data.Interval{Begin: day(8, 1), End: day(8, 10)}, false),
		Entry("overlapping on the right", &data.Interval{Begin: day(8, 3), End: day(8, 8)}, &data.Interval{Begin: day(8, 5), End: day(8, 10)}, false),
		Entry("disjoint", &data.Interval{Begin: day(8, 3), End: day(8, 8)}, &data.Interval{Begin: day(9, 3), End: day(9, 8)}, false),
	)

	DescribeTable("overlap",
		func(a, b *data.Interval, expected bool) {
			Expect(a.Overlaps(b)).To(Equal(expected))
			Expect(b.Overlaps(a)).To(Equal(expected))
		},
		Entry("disjoint", &data.Interval{Begin: day(8, 3), End: day(8, 8)}, &data.Interval{Begin: day(9, 3), End: day(9, 8)}, false),
		Entry("sharing an end point", &data.Interval{Begin: day(8, 3), End: day(8, 8)}, &data.Interval{Begin: day(8, 8), End: day(8, 10)}, true),
		Entry("partial overlap", &data.Interval{Begin: day(8, 3), End: day(8, 8)}, &data.Interval{Begin: day(8, 5), End: day(8, 10)}, true),
		Entry("subset", &data.Interval{Begin: day(8, 3), End: day(8, 8)}, &data.Interval{Begin: day(8, 4), End: day(8, 6)}, true),
	)

	It("unions two intervals", func() {
		a := &data.Interval{Begin: day(8, 3), End: day(8, 8)}
		b := &data.Interval{Begin: day(8, 5), End: day(9, 1)}
		u := a.Union(b)
		Expect(u.Begin).To(Equal(day(8, 3)))
		Expect(u.End).To(Equal(day(9, 1)))
		Expect(u.CalendarDays()).To(Equal(29))
	})

	It("rejects begin after end", func() {
		_, err := data.NewInterval(day(8, 8), day(8, 3))
		Expect(err).To(MatchError(data.ErrBeginAfterEnd))

		interval, err := data.NewInterval(day(8, 3), day(8, 3))
		Expect(err).To(BeNil())
		Expect(interval.CalendarDays()).To(Equal(0))
	})
})

var _ = Describe("Business days", func() {
	It("skips weekends", func() {
		days := data.BusinessDays(time.Date(2021, 1, 1, 0, 0, 0, 0, tz()), time.Date(2021, 1, 10, 0, 0, 0, 0, tz()))
		Expect(days).To(HaveLen(6))
		Expect(days[0]).To(Equal(time.Date(2021, 1, 1, 16, 0, 0, 0, tz())))
		Expect(days[1]).To(Equal(time.Date(2021, 1, 4, 16, 0, 0, 0, tz())))
		Expect(days[5]).To(Equal(time.Date(2021, 1, 8, 16, 0, 0, 0, tz())))
	})

	It("returns nothing when end is before begin", func() {
		Expect(data.BusinessDays(time.Date(2021, 1, 10, 0, 0, 0, 0, tz()), time.Date(2021, 1, 1, 0, 0, 0, 0, tz()))).To(BeEmpty())
	})

	DescribeTable("classifies days",
		func(dt time.Time, expected bool) {
			Expect(data.IsBusinessDay(dt)).To(Equal(expected))
		},
		Entry("friday", time.Date(2021, 1, 8, 0, 0, 0, 0, tz()), true),
		Entry("saturday", time.Date(2021, 1, 9, 0, 0, 0, 0, tz()), false),
		Entry("sunday", time.Date(2021, 1, 10, 0, 0, 0, 0, tz()), false),
		Entry("monday", time.Date(2021, 1, 11, 0, 0, 0, 0, tz()), true),
	)
})

var _ = Describe("Availability", func() {
	It("wraps a usable series", func() {
		a := data.Available("VTI", "pvdb", priceFrame("VTI", time.Date(2021, 1, 4, 0, 0, 0, 0, tz()), 100, 101))
		Expect(a.Ok()).To(BeTrue())
		Expect(a.Provider).To(Equal("pvdb"))
		Expect(a.Reason).To(BeNil())
	})

	It("treats a single observation as unavailable", func() {
		a := data.Available("VTI", "pvdb", priceFrame("VTI", time.Date(2021, 1, 4, 0, 0, 0, 0, tz()), 100))
		Expect(a.Ok()).To(BeFalse())
		Expect(a.Reason).To(MatchError(data.ErrInsufficientHistory))
		Expect(a.Series).To(BeNil())
	})

	It("defaults the reason to not found", func() {
		a := data.Unavailable("XYZ", nil)
		Expect(a.Ok()).To(BeFalse())
		Expect(a.Reason).To(MatchError(data.ErrNotFound))
	})
})

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
	"context"
	"os"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-analytics/data"
)

var _ = Describe("Tiingo", func() {
	var (
		tiingo *data.Tiingo
		ctx    context.Context
		begin  time.Time
		end    time.Time
		url    string
	)

	BeforeEach(func() {
		httpmock.Activate()
		tiingo = data.NewTiingo("TEST")
		ctx = context.Background()
		begin = time.Date(2021, 1, 4, 0, 0, 0, 0, tz())
		end = time.Date(2021, 1, 8, 0, 0, 0, 0, tz())
		url = "https://api.tiingo.com/tiingo/daily/SPY/prices?startDate=2021-01-04&endDate=2021-01-08&format=csv&resampleFreq=daily&token=TEST"
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	It("parses the adjusted close from the csv response", func() {
		content, err := os.ReadFile("testdata/tiingo_spy.csv")
		Expect(err).To(BeNil())
		httpmock.RegisterResponder("GET", url, httpmock.NewBytesResponder(200, content))

		df, err := tiingo.Prices(ctx, "SPY", begin, end)
		Expect(err).To(BeNil())
		Expect(df.ColNames).To(Equal([]string{"SPY"}))
		Expect(df.Len()).To(Equal(5))
		Expect(df.Index[0]).To(Equal(time.Date(2021, 1, 4, 16, 0, 0, 0, tz())))
		Expect(df.Vals[0][0]).To(Equal(358.66))
		Expect(df.Vals[0][4]).To(Equal(370.79))
	})

	It("maps 404 to not found", func() {
		httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(404, `{"detail":"Error: Ticker 'SPY' not found"}`))

		_, err := tiingo.Prices(ctx, "SPY", begin, end)
		Expect(err).To(MatchError(data.ErrNotFound))
	})

	It("stops calling the API after repeated failures", func() {
		httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(500, "internal error"))

		for ii := 0; ii < 5; ii++ {
			_, err := tiingo.Prices(ctx, "SPY", begin, end)
			Expect(err).ToNot(BeNil())
			Expect(err).ToNot(MatchError(data.ErrNotFound))
		}

		_, err := tiingo.Prices(ctx, "SPY", begin, end)
		Expect(err).To(MatchError(data.ErrProviderUnavailable))
		Expect(httpmock.GetTotalCallCount()).To(Equal(5))
	})

	It("does not trip the breaker for unknown symbols", func() {
		httpmock.RegisterResponder("GET", url, httpmock.NewStringResponder(404, "not found"))

		for ii := 0; ii < 7; ii++ {
			_, err := tiingo.Prices(ctx, "SPY", begin, end)
			Expect(err).To(MatchError(data.ErrNotFound))
		}
		Expect(httpmock.GetTotalCallCount()).To(Equal(7))
	})
})

var _ = Describe("CSV directory", func() {
	var (
		provider *data.CSVDir
		ctx      context.Context
	)

	BeforeEach(func() {
		provider = data.NewCSVDir("testdata/csvdir")
		ctx = context.Background()
	})

	It("reads and trims the requested range", func() {
		df, err := provider.Prices(ctx, "BND", time.Date(2021, 1, 5, 0, 0, 0, 0, tz()), time.Date(2021, 1, 8, 0, 0, 0, 0, tz()))
		Expect(err).To(BeNil())
		Expect(df.Len()).To(Equal(4))
		Expect(df.Vals[0]).To(Equal([]float64{88.02, 87.71, 87.60, 87.55}))
	})

	It("returns not found for a missing file", func() {
		_, err := provider.Prices(ctx, "NOPE", time.Date(2021, 1, 5, 0, 0, 0, 0, tz()), time.Date(2021, 1, 8, 0, 0, 0, 0, tz()))
		Expect(err).To(MatchError(data.ErrNotFound))
	})

	It("reports a file without a price column", func() {
		_, err := provider.Prices(ctx, "BAD", time.Date(2021, 1, 4, 0, 0, 0, 0, tz()), time.Date(2021, 1, 8, 0, 0, 0, 0, tz()))
		Expect(err).To(MatchError(data.ErrMissingColumn))
	})
})

var _ = Describe("Synthetic prices", func() {
	var (
		ctx   context.Context
		begin time.Time
		end   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		begin = time.Date(2021, 1, 1, 0, 0, 0, 0, tz())
		end = time.Date(2021, 12, 31, 0, 0, 0, 0, tz())
	})

	It("covers every business day", func() {
		df, err := data.NewSynthetic(42).Prices(ctx, "VTI", begin, end)
		Expect(err).To(BeNil())
		Expect(df.Len()).To(Equal(len(data.BusinessDays(begin, end))))
		Expect(df.Vals[0][0]).To(BeNumerically("~", 100, 10))
		for _, v := range df.Vals[0] {
			Expect(v).To(BeNumerically(">", 0))
		}
	})

	It("is reproducible for a fixed seed", func() {
		a, err := data.NewSynthetic(42).Prices(ctx, "VTI", begin, end)
		Expect(err).To(BeNil())
		b, err := data.NewSynthetic(42).Prices(ctx, "VTI", begin, end)
		Expect(err).To(BeNil())
		Expect(a.Vals).To(Equal(b.Vals))
	})

	It("follows a different walk per symbol", func() {
		a, err := data.NewSynthetic(42).Prices(ctx, "VTI", begin, end)
		Expect(err).To(BeNil())
		b, err := data.NewSynthetic(42).Prices(ctx, "BND", begin, end)
		Expect(err).To(BeNil())
		Expect(a.Vals[0]).ToNot(Equal(b.Vals[0]))
	})
})

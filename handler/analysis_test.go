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

package handler_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-analytics/analytics"
	"github.com/penny-vault/pv-analytics/data"
	"github.com/penny-vault/pv-analytics/factor"
	"github.com/penny-vault/pv-analytics/middleware"
	"github.com/penny-vault/pv-analytics/router"
)

// offline never has prices so every analysis falls back to synthetic data
type offline struct{}

func (offline) Fetch(ctx context.Context, symbols []string, begin, end time.Time) map[string]*data.Availability {
	res := make(map[string]*data.Availability, len(symbols))
	for _, symbol := range symbols {
		res[symbol] = data.Unavailable(symbol, data.ErrNotFound)
	}
	return res
}

func (offline) Benchmark(ctx context.Context, symbol string, begin, end time.Time) *data.Availability {
	return data.Unavailable(symbol, data.ErrNotFound)
}

var _ = Describe("Analysis API", func() {
	var (
		app     *fiber.App
		factors *factor.Engine
	)

	post := func(path, body string) (int, []byte) {
		req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req, -1)
		Expect(err).To(BeNil())
		raw, err := io.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		return resp.StatusCode, raw
	}

	JustBeforeEach(func() {
		cfg := analytics.DefaultConfig()
		cfg.SyntheticSeed = 3
		cfg.HistoryYears = 2
		engine := analytics.NewEngine(offline{}, factors, cfg)

		app = fiber.New()
		app.Use(middleware.NewLogger())
		router.SetupRoutes(app, engine)
	})

	BeforeEach(func() {
		factors = nil
	})

	It("reports health", func() {
		req := httptest.NewRequest(fiber.MethodGet, "/v1/health", nil)
		resp, err := app.Test(req, -1)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		var ping map[string]string
		Expect(json.NewDecoder(resp.Body).Decode(&ping)).To(Succeed())
		Expect(ping["status"]).To(Equal("success"))
	})

	It("analyzes a portfolio", func() {
		code, raw := post("/v1/analysis", `{"name":"Growth","instruments":[{"symbol":"vti","weight":3},{"symbol":"qqq","weight":1}]}`)
		Expect(code).To(Equal(fiber.StatusOK))

		var res analytics.Analysis
		Expect(json.Unmarshal(raw, &res)).To(Succeed())
		Expect(res.Source).To(Equal(analytics.SourceSynthetic))
		Expect(res.Benchmark).To(Equal("SPY"))
		Expect(res.ID).ToNot(BeEmpty())
		Expect(res.Performance).ToNot(BeNil())
		Expect(res.Risk).ToNot(BeNil())
	})

	It("uses the benchmark query parameter", func() {
		code, raw := post("/v1/analysis?benchmark=agg", `{"instruments":[{"symbol":"VTI","weight":1}]}`)
		Expect(code).To(Equal(fiber.StatusOK))

		var res analytics.Analysis
		Expect(json.Unmarshal(raw, &res)).To(Succeed())
		Expect(res.Benchmark).To(Equal("AGG"))
	})

	DescribeTable("rejects bad portfolios", func(body string) {
		code, _ := post("/v1/analysis", body)
		Expect(code).To(Equal(fiber.StatusBadRequest))
	},
		Entry("malformed json", `{"instruments":`),
		Entry("no instruments", `{"instruments":[]}`),
		Entry("negative weight", `{"instruments":[{"symbol":"VTI","weight":-1}]}`),
		Entry("duplicate symbol", `{"instruments":[{"symbol":"VTI","weight":1},{"symbol":"vti","weight":1}]}`),
	)

	It("returns not found when there are no factor loadings", func() {
		code, _ := post("/v1/factors", `{"instruments":[{"symbol":"VTI","weight":1}]}`)
		Expect(code).To(Equal(fiber.StatusNotFound))
	})

	Context("with a factor table", func() {
		BeforeEach(func() {
			factors = factor.NewEngine(factor.Loadings{
				"VTI": {"Value": 0.2, "Momentum": 0.4},
				"SPY": {"Value": 0.1, "Momentum": 0.5},
				"QQQ": {"Value": 0.123456},
			}, nil)
		})

		It("computes exposures", func() {
			code, raw := post("/v1/factors", `{"benchmark":"SPY","instruments":[{"symbol":"VTI","weight":2}]}`)
			Expect(code).To(Equal(fiber.StatusOK))

			var res factor.Result
			Expect(json.Unmarshal(raw, &res)).To(Succeed())
			Expect(res.StyleFactors).To(HaveLen(2))
			Expect(res.StyleFactors[0].Name).To(Equal("Momentum"))
			Expect(res.StyleFactors[0].Exposure).To(BeNumerically("~", 0.4, 1e-9))
			Expect(*res.StyleFactors[0].Difference).To(BeNumerically("~", -0.1, 1e-9))
			Expect(res.HasCorrelationData).To(BeFalse())
		})

		It("rounds exposures like the analysis endpoint", func() {
			code, raw := post("/v1/factors", `{"benchmark":"SPY","instruments":[{"symbol":"qqq","weight":1}]}`)
			Expect(code).To(Equal(fiber.StatusOK))

			var res factor.Result
			Expect(json.Unmarshal(raw, &res)).To(Succeed())
			Expect(res.StyleFactors).To(HaveLen(1))
			Expect(res.StyleFactors[0].Exposure).To(Equal(0.12))
			Expect(*res.StyleFactors[0].Benchmark).To(Equal(0.1))
			Expect(*res.StyleFactors[0].Difference).To(Equal(0.02))
		})
	})
})

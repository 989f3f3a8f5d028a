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

package factor_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-analytics/factor"
)

var _ = Describe("Factor", func() {
	var (
		table    factor.Loadings
		holdings []factor.Holding
	)

	BeforeEach(func() {
		var err error
		table, err = factor.LoadLoadings("testdata/loadings.json")
		Expect(err).NotTo(HaveOccurred())

		holdings = []factor.Holding{
			{Symbol: "AAPL", Weight: 0.5},
			{Symbol: "JNJ", Weight: 0.3},
			{Symbol: "XYZ", Weight: 0.2},
		}
	})

	Describe("when classifying factor names", func() {
		DescribeTable("assigns a category", func(name string, expected factor.Category) {
			Expect(factor.Classify(name)).To(Equal(expected))
		},
			Entry("exact style", "Value", factor.Style),
			Entry("case insensitive", "MOMENTUM", factor.Style),
			Entry("style keyword", "Dividend Growth", factor.Style),
			Entry("style prefix", "Earnings Variability", factor.Style),
			Entry("exact industry", "Health Care", factor.Industry),
			Entry("industry prefix", "Industrials", factor.Industry),
			Entry("industry keyword", "Financial Services", factor.Industry),
			Entry("exact country", "United States", factor.Country),
			Entry("short country keyword", "US Equity", factor.Country),
			Entry("country keyword", "Asia Pacific", factor.Country),
			Entry("short keyword is not a prefix", "Business Services", factor.Other),
			Entry("unknown", "Crypto", factor.Other),
		)
	})

	Describe("when aggregating exposures", func() {
		It("normalizes table symbols", func() {
			Expect(table).To(HaveKey("AAPL"))
		})

		It("computes the weighted sum of loadings", func() {
			exposures, skipped := factor.Exposure(holdings, table)
			Expect(exposures["Value"]).To(BeNumerically("~", 0.08, 1e-12))
			Expect(exposures["Momentum"]).To(BeNumerically("~", 0.43, 1e-12))
			Expect(exposures["Technology"]).To(BeNumerically("~", 0.5, 1e-12))
			Expect(exposures["Healthcare"]).To(BeNumerically("~", 0.3, 1e-12))
			Expect(exposures["United States"]).To(BeNumerically("~", 0.8, 1e-12))
			Expect(skipped).To(Equal([]string{"XYZ"}))
		})

		It("does not dilute exposures with instruments missing from the table", func() {
			withMissing, _ := factor.Exposure(holdings, table)
			withoutMissing, _ := factor.Exposure(holdings[:2], table)
			Expect(withMissing).To(Equal(withoutMissing))
		})

		It("is linear in the instrument exposures", func() {
			a, _ := factor.Exposure([]factor.Holding{{Symbol: "AAPL", Weight: 1}}, table)
			b, _ := factor.Exposure([]factor.Holding{{Symbol: "JNJ", Weight: 1}}, table)
			combined, _ := factor.Exposure([]factor.Holding{{Symbol: "AAPL", Weight: 0.7}, {Symbol: "JNJ", Weight: 0.3}}, table)

			for _, name := range table.Factors() {
				Expect(combined[name]).To(BeNumerically("~", 0.7*a[name]+0.3*b[name], 1e-12), name)
			}
		})

		It("ignores NaN loadings", func() {
			table["JNJ"]["Value"] = math.NaN()
			exposures, _ := factor.Exposure(holdings, table)
			Expect(exposures["Value"]).To(BeNumerically("~", -0.1, 1e-12))
		})

		It("lets merged loadings override the table", func() {
			merged := table.Merge(factor.Loadings{"XYZ": {"Value": 1}, "AAPL": {"Value": 0}})
			exposures, skipped := factor.Exposure(holdings, merged)
			Expect(skipped).To(BeEmpty())
			Expect(exposures["Value"]).To(BeNumerically("~", 0.38, 1e-12))
			Expect(merged["AAPL"]["Momentum"]).To(Equal(0.8))
		})
	})

	Describe("when decomposing factor risk", func() {
		var cov *factor.Covariance

		BeforeEach(func() {
			var err error
			cov, err = factor.LoadCovariance("testdata/covariance.toml")
			Expect(err).NotTo(HaveOccurred())
		})

		It("mirrors the supplied triangle", func() {
			Expect(cov.Factors()).To(Equal([]string{"Momentum", "Technology", "Value"}))
			Expect(cov.At("Momentum", "Value")).To(Equal(-0.01))
			Expect(cov.At("Value", "Momentum")).To(Equal(-0.01))
			Expect(cov.At("Momentum", "Technology")).To(Equal(0.0))
			Expect(cov.At("Value", "Unknown")).To(Equal(0.0))
		})

		It("computes the quadratic form over common factors", func() {
			exposures, _ := factor.Exposure(holdings, table)
			decomp := factor.Decompose(exposures, cov)
			Expect(decomp).NotTo(BeNil())
			Expect(decomp.Factors).To(Equal([]string{"Momentum", "Technology", "Value"}))
			Expect(decomp.Total).To(BeNumerically("~", 0.029109, 1e-9))
			Expect(decomp.Marginal[0]).To(BeNumerically("~", 0.0379, 1e-9))
			Expect(decomp.Marginal[1]).To(BeNumerically("~", 0.0254, 1e-9))
			Expect(decomp.Marginal[2]).To(BeNumerically("~", 0.0014, 1e-9))

			sum := 0.0
			for _, pct := range decomp.Percent {
				sum += pct
			}
			Expect(sum).To(BeNumerically("~", 100, 1e-9))
		})

		It("omits percentages when total risk is zero", func() {
			decomp := factor.Decompose(map[string]float64{"Value": 0, "Momentum": 0}, cov)
			Expect(decomp).NotTo(BeNil())
			Expect(decomp.Total).To(Equal(0.0))
			Expect(decomp.Percent).To(BeNil())
		})

		It("returns nil without common factors", func() {
			Expect(factor.Decompose(map[string]float64{"Size": 1}, cov)).To(BeNil())
			Expect(factor.Decompose(map[string]float64{"Value": 1}, nil)).To(BeNil())
		})

		It("derives correlations from the covariance", func() {
			corr := cov.Correlations([]string{"Momentum", "Technology", "Value"})
			Expect(corr).To(HaveLen(3))
			Expect(corr[1].Factor1).To(Equal("Momentum"))
			Expect(corr[1].Factor2).To(Equal("Value"))
			Expect(corr[1].Value).To(BeNumerically("~", -0.01/0.06, 1e-12))
		})

		It("rejects asymmetric matrices", func() {
			_, err := factor.LoadCovariance("testdata/asymmetric.json")
			Expect(errors.Is(err, factor.ErrAsymmetricCovariance)).To(BeTrue())
		})

		It("rejects empty and non-finite matrices", func() {
			_, err := factor.NewCovariance(map[string]map[string]float64{})
			Expect(err).To(MatchError(factor.ErrEmptyCovariance))

			_, err = factor.NewCovariance(map[string]map[string]float64{"Value": {"Value": math.Inf(1)}})
			Expect(err).To(MatchError(factor.ErrInvalidCovariance))
		})
	})

	Describe("when analyzing a portfolio", func() {
		It("groups exposures by category and compares to the benchmark", func() {
			res := factor.NewEngine(table, nil).Analyze(holdings, "SPY")

			Expect(res.StyleFactors).To(HaveLen(2))
			Expect(res.IndustryFactors).To(HaveLen(2))
			Expect(res.CountryFactors).To(HaveLen(1))
			Expect(res.OtherFactors).To(BeEmpty())

			momentum := res.StyleFactors[0]
			Expect(momentum.Name).To(Equal("Momentum"))
			Expect(*momentum.Benchmark).To(Equal(0.3))
			Expect(*momentum.Difference).To(BeNumerically("~", 0.13, 1e-12))

			healthcare := res.IndustryFactors[0]
			Expect(healthcare.Name).To(Equal("Healthcare"))
			Expect(healthcare.Benchmark).To(BeNil())

			Expect(res.HasCorrelationData).To(BeFalse())
			Expect(res.TotalRisk).To(BeNil())
		})

		It("reports risk contributions when covariance data overlaps", func() {
			cov, err := factor.LoadCovariance("testdata/covariance.toml")
			Expect(err).NotTo(HaveOccurred())

			res := factor.NewEngine(table, cov).Analyze(holdings, "")
			Expect(res.HasCorrelationData).To(BeTrue())
			Expect(*res.TotalRisk).To(BeNumerically("~", 0.029109, 1e-9))
			Expect(res.RiskContributions).To(HaveLen(3))
			Expect(res.RiskContributions[0].Name).To(Equal("Momentum"))
			Expect(res.RiskContributions[0].Contribution).To(BeNumerically(">", res.RiskContributions[1].Contribution))
			Expect(res.StyleFactors[0].Benchmark).To(BeNil())
		})

		It("sets hasCorrelationData to false without common factors", func() {
			cov, err := factor.NewCovariance(map[string]map[string]float64{"Size": {"Size": 0.02}})
			Expect(err).NotTo(HaveOccurred())

			res := factor.NewEngine(table, cov).Analyze(holdings, "SPY")
			Expect(res.HasCorrelationData).To(BeFalse())
			Expect(res.Correlations).To(BeEmpty())
		})

		It("skips every instrument when the table is empty", func() {
			res := factor.NewEngine(nil, nil).Analyze(holdings, "SPY")
			Expect(res.Skipped).To(HaveLen(3))
			Expect(res.Exposures).To(BeEmpty())
		})
	})

	It("rejects unsupported table formats", func() {
		_, err := factor.LoadLoadings("testdata/loadings.csv")
		Expect(errors.Is(err, factor.ErrUnsupportedFormat)).To(BeTrue())
	})
})

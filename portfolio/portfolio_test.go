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

package portfolio_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-analytics/portfolio"
)

var _ = Describe("Portfolio", func() {
	var p *portfolio.Portfolio

	BeforeEach(func() {
		p = &portfolio.Portfolio{
			Name:      "Test",
			Benchmark: "SPY",
			Instruments: []*portfolio.Instrument{
				portfolio.NewInstrument(" vti", 3),
				portfolio.NewInstrument("bnd ", 1),
			},
		}
	})

	Context("when validating", func() {
		It("accepts un-normalized weights", func() {
			Expect(p.Validate()).To(Succeed())
			Expect(p.IsNormalized(portfolio.DefaultWeightTolerance)).To(BeFalse())
		})

		DescribeTable("rejects caller errors", func(mutate func(*portfolio.Portfolio), expected error) {
			mutate(p)
			err := p.Validate()
			Expect(errors.Is(err, portfolio.ErrInvalidPortfolio)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(expected.Error()))
		},
			Entry("no instruments", func(p *portfolio.Portfolio) { p.Instruments = nil }, portfolio.ErrNoInstruments),
			Entry("empty symbol", func(p *portfolio.Portfolio) { p.Instruments[0].Symbol = "" }, portfolio.ErrEmptySymbol),
			Entry("duplicate symbol", func(p *portfolio.Portfolio) { p.Instruments[1].Symbol = "VTI" }, portfolio.ErrDuplicateSymbol),
			Entry("negative weight", func(p *portfolio.Portfolio) { p.Instruments[0].Weight = -0.1 }, portfolio.ErrInvalidWeight),
			Entry("NaN weight", func(p *portfolio.Portfolio) { p.Instruments[0].Weight = math.NaN() }, portfolio.ErrInvalidWeight),
			Entry("zero weights", func(p *portfolio.Portfolio) {
				p.Instruments[0].Weight = 0
				p.Instruments[1].Weight = 0
			}, portfolio.ErrZeroWeight),
		)
	})

	Context("when normalizing", func() {
		It("normalizes symbols at construction", func() {
			Expect(p.Symbols()).To(Equal([]string{"VTI", "BND"}))
		})

		It("returns a copy whose weights sum to 1", func() {
			n := p.Normalized()
			Expect(n.Weights()["VTI"]).To(BeNumerically("~", 0.75, 1e-12))
			Expect(n.Weights()["BND"]).To(BeNumerically("~", 0.25, 1e-12))
			Expect(n.IsNormalized(portfolio.DefaultWeightTolerance)).To(BeTrue())
			Expect(p.Instruments[0].Weight).To(BeNumerically("==", 3))
		})

		It("leaves nil instruments for validation to reject", func() {
			p.Instruments = append(p.Instruments, nil)
			n := p.Normalized().Normalize()
			Expect(n.Instruments).To(HaveLen(3))
			Expect(n.Instruments[2]).To(BeNil())
			err := n.Validate()
			Expect(errors.Is(err, portfolio.ErrInvalidPortfolio)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(portfolio.ErrEmptySymbol.Error()))
		})

		It("finds instruments by symbol", func() {
			Expect(p.Instrument("bnd")).ToNot(BeNil())
			Expect(p.Instrument("QQQ")).To(BeNil())
		})
	})

	Context("when fingerprinting", func() {
		It("is independent of instrument order and name", func() {
			a, err := p.Fingerprint()
			Expect(err).To(BeNil())

			other := &portfolio.Portfolio{
				Name:      "Other",
				Benchmark: "SPY",
				Instruments: []*portfolio.Instrument{
					portfolio.NewInstrument("BND", 1),
					portfolio.NewInstrument("VTI", 3),
				},
			}
			b, err := other.Fingerprint()
			Expect(err).To(BeNil())
			Expect(b).To(Equal(a))
			Expect(a).To(HaveLen(32))
		})

		It("changes when a weight changes", func() {
			a, _ := p.Fingerprint()
			p.Instruments[0].Weight = 2
			b, _ := p.Fingerprint()
			Expect(b).ToNot(Equal(a))
		})

		It("changes when factor loadings change", func() {
			a, _ := p.Fingerprint()
			p.Instruments[0].FactorLoadings = map[string]float64{"Value": 0.3}
			b, _ := p.Fingerprint()
			Expect(b).ToNot(Equal(a))
		})
	})
})

var _ = Describe("Loading portfolio files", func() {
	DescribeTable("reads definitions", func(fn string) {
		p, err := portfolio.LoadFile(fn)
		Expect(err).To(BeNil())
		Expect(p.Name).To(Equal("Balanced"))
		Expect(p.Benchmark).To(Equal("SPY"))
		Expect(p.Symbols()).To(Equal([]string{"VTI", "BND"}))
		Expect(p.Instruments[0].FactorLoadings).To(HaveKeyWithValue("Momentum", 0.4))
		Expect(p.Instruments[1].Region).To(Equal(""))
	},
		Entry("toml", "testdata/balanced.toml"),
		Entry("json", "testdata/balanced.json"),
	)

	It("rejects unknown extensions", func() {
		_, err := portfolio.LoadFile("testdata/balanced.yaml")
		Expect(errors.Is(err, portfolio.ErrUnsupportedFormat)).To(BeTrue())
	})

	It("rejects malformed content", func() {
		_, err := portfolio.Parse([]byte("{"), portfolio.FormatJSON)
		Expect(errors.Is(err, portfolio.ErrInvalidPortfolio)).To(BeTrue())
	})
})

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

package portfolio

import (
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/penny-vault/pv-analytics/common"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

// DefaultWeightTolerance is the allowed deviation of the weight sum from 1
const DefaultWeightTolerance = 1e-6

// Instrument is a single holding in a portfolio
type Instrument struct {
	Symbol    string  `json:"symbol" toml:"symbol"`
	Weight    float64 `json:"weight" toml:"weight"`
	Name      string  `json:"name,omitempty" toml:"name"`
	Sector    string  `json:"sector,omitempty" toml:"sector"`
	Region    string  `json:"region,omitempty" toml:"region"`
	MarketCap string  `json:"marketCap,omitempty" toml:"market_cap"`

	// FactorLoadings optionally carries the instrument's exposure to named factors
	FactorLoadings map[string]float64 `json:"factorLoadings,omitempty" toml:"factor_loadings"`
}

// Portfolio is a named set of weighted instruments analyzed against a benchmark
type Portfolio struct {
	ID          string        `json:"id,omitempty" toml:"id"`
	Name        string        `json:"name,omitempty" toml:"name"`
	Benchmark   string        `json:"benchmark,omitempty" toml:"benchmark"`
	Instruments []*Instrument `json:"instruments" toml:"instruments"`
}

// NewInstrument creates an instrument with a normalized symbol
func NewInstrument(symbol string, weight float64) *Instrument {
	return &Instrument{
		Symbol: common.NormalizeSymbol(symbol),
		Weight: weight,
	}
}

// Normalize upper-cases every symbol and the benchmark in place. Loaders call this once at the boundary.
func (p *Portfolio) Normalize() *Portfolio {
	p.Benchmark = common.NormalizeSymbol(p.Benchmark)
	for _, inst := range p.Instruments {
		if inst == nil {
			continue
		}
		inst.Symbol = common.NormalizeSymbol(inst.Symbol)
		inst.Sector = strings.TrimSpace(inst.Sector)
		inst.Region = strings.TrimSpace(inst.Region)
	}
	return p
}

// Validate checks the portfolio for caller errors. Weights that do not sum to 1 are not an error.
func (p *Portfolio) Validate() error {
	if len(p.Instruments) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPortfolio, ErrNoInstruments)
	}

	seen := make(map[string]bool, len(p.Instruments))
	for _, inst := range p.Instruments {
		if inst == nil || inst.Symbol == "" {
			return fmt.Errorf("%w: %s", ErrInvalidPortfolio, ErrEmptySymbol)
		}
		if seen[inst.Symbol] {
			return fmt.Errorf("%w: %s (%s)", ErrInvalidPortfolio, ErrDuplicateSymbol, inst.Symbol)
		}
		seen[inst.Symbol] = true
		if math.IsNaN(inst.Weight) || math.IsInf(inst.Weight, 0) || inst.Weight < 0 {
			return fmt.Errorf("%w: %s (%s)", ErrInvalidPortfolio, ErrInvalidWeight, inst.Symbol)
		}
	}

	if p.WeightSum() == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPortfolio, ErrZeroWeight)
	}

	return nil
}

// WeightSum returns the sum of all instrument weights
func (p *Portfolio) WeightSum() float64 {
	sum := 0.0
	for _, inst := range p.Instruments {
		if inst != nil {
			sum += inst.Weight
		}
	}
	return sum
}

// IsNormalized reports whether the weights sum to 1 within tol
func (p *Portfolio) IsNormalized(tol float64) bool {
	return math.Abs(p.WeightSum()-1) <= tol
}

// Normalized returns a copy of the portfolio whose weights sum to 1. A portfolio
// whose weights sum to zero is returned unchanged.
func (p *Portfolio) Normalized() *Portfolio {
	sum := p.WeightSum()
	res := &Portfolio{
		ID:          p.ID,
		Name:        p.Name,
		Benchmark:   p.Benchmark,
		Instruments: make([]*Instrument, len(p.Instruments)),
	}

	for idx, inst := range p.Instruments {
		if inst == nil {
			continue
		}
		cp := *inst
		if sum > 0 {
			cp.Weight = inst.Weight / sum
		}
		res.Instruments[idx] = &cp
	}

	if sum > 0 && !p.IsNormalized(DefaultWeightTolerance) {
		log.Debug().Float64("WeightSum", sum).Str("Portfolio", p.Name).Msg("re-normalized portfolio weights")
	}

	return res
}

// Weights returns a map of symbol to weight
func (p *Portfolio) Weights() map[string]float64 {
	weights := make(map[string]float64, len(p.Instruments))
	for _, inst := range p.Instruments {
		weights[inst.Symbol] = inst.Weight
	}
	return weights
}

// Symbols returns the instrument symbols in portfolio order
func (p *Portfolio) Symbols() []string {
	symbols := make([]string, len(p.Instruments))
	for idx, inst := range p.Instruments {
		symbols[idx] = inst.Symbol
	}
	return symbols
}

// Instrument returns the instrument with the given symbol or nil
func (p *Portfolio) Instrument(symbol string) *Instrument {
	symbol = common.NormalizeSymbol(symbol)
	for _, inst := range p.Instruments {
		if inst.Symbol == symbol {
			return inst
		}
	}
	return nil
}

// Fingerprint calculates a 16-byte blake3 hash over the benchmark and the
// instruments sorted by symbol. Portfolios with the same holdings have the same
// fingerprint regardless of instrument order, name or id.
func (p *Portfolio) Fingerprint() (string, error) {
	h := blake3.New()

	if _, err := h.Write([]byte(p.Benchmark)); err != nil {
		log.Error().Stack().Err(err).Msg("could not write benchmark to blake3 hasher")
		return "", err
	}

	sorted := make([]*Instrument, len(p.Instruments))
	copy(sorted, p.Instruments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	for _, inst := range sorted {
		if _, err := h.Write([]byte(fmt.Sprintf("|%s:%.8f", inst.Symbol, inst.Weight))); err != nil {
			log.Error().Stack().Err(err).Str("Symbol", inst.Symbol).Msg("could not write instrument to blake3 hasher")
			return "", err
		}

		factors := make([]string, 0, len(inst.FactorLoadings))
		for factor := range inst.FactorLoadings {
			factors = append(factors, factor)
		}
		sort.Strings(factors)
		for _, factor := range factors {
			if _, err := h.Write([]byte(fmt.Sprintf(";%s=%.8f", factor, inst.FactorLoadings[factor]))); err != nil {
				log.Error().Stack().Err(err).Str("Factor", factor).Msg("could not write factor loading to blake3 hasher")
				return "", err
			}
		}
	}

	digest := h.Digest()
	buf := make([]byte, 16)
	n, err := digest.Read(buf)
	if err != nil {
		return "", err
	}
	if n != 16 {
		return "", ErrGenerateHash
	}

	return hex.EncodeToString(buf), nil
}

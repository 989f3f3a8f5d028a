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

package factor

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// FactorExposure is the portfolio exposure to one factor
type FactorExposure struct {
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	Exposure   float64  `json:"exposure"`
	Benchmark  *float64 `json:"benchmark,omitempty"`
	Difference *float64 `json:"difference,omitempty"`
}

// RiskContribution is a factor's share of total factor risk
type RiskContribution struct {
	Name         string  `json:"name"`
	Marginal     float64 `json:"marginal"`
	Contribution float64 `json:"contribution"`
}

// Correlation between two factors
type Correlation struct {
	Factor1 string  `json:"factor1"`
	Factor2 string  `json:"factor2"`
	Value   float64 `json:"value"`
}

// Result is the categorized factor exposure of a portfolio
type Result struct {
	Exposures map[string]float64 `json:"-"`

	StyleFactors    []*FactorExposure `json:"styleFactors"`
	IndustryFactors []*FactorExposure `json:"industryFactors"`
	CountryFactors  []*FactorExposure `json:"countryFactors"`
	OtherFactors    []*FactorExposure `json:"otherFactors"`

	// Skipped lists instruments without a loadings row
	Skipped []string `json:"skipped,omitempty"`

	TotalRisk          *float64            `json:"totalRisk,omitempty"`
	RiskContributions  []*RiskContribution `json:"riskContributions,omitempty"`
	Correlations       []*Correlation      `json:"correlations,omitempty"`
	HasCorrelationData bool                `json:"hasCorrelationData"`
}

// Group returns the exposures of one category
func (r *Result) Group(category Category) []*FactorExposure {
	switch category {
	case Style:
		return r.StyleFactors
	case Industry:
		return r.IndustryFactors
	case Country:
		return r.CountryFactors
	default:
		return r.OtherFactors
	}
}

// Engine computes factor exposures against a loadings table and an optional covariance matrix
type Engine struct {
	table Loadings
	cov   *Covariance
}

// NewEngine creates a factor engine; cov may be nil
func NewEngine(table Loadings, cov *Covariance) *Engine {
	if table == nil {
		table = Loadings{}
	}
	return &Engine{
		table: table,
		cov:   cov,
	}
}

// WithLoadings returns an engine whose table is overlaid with extra loadings
func (e *Engine) WithLoadings(extra Loadings) *Engine {
	if len(extra) == 0 {
		return e
	}
	return &Engine{
		table: e.table.Merge(extra),
		cov:   e.cov,
	}
}

// Analyze aggregates the holdings' loadings and, when a covariance matrix shares at least one
// factor with the exposures, decomposes the factor risk. When the benchmark symbol has a row in
// the loadings table each exposure also carries the benchmark exposure and the difference.
func (e *Engine) Analyze(holdings []Holding, benchmark string) *Result {
	exposures, skipped := Exposure(holdings, e.table)

	res := &Result{
		Exposures:       exposures,
		StyleFactors:    []*FactorExposure{},
		IndustryFactors: []*FactorExposure{},
		CountryFactors:  []*FactorExposure{},
		OtherFactors:    []*FactorExposure{},
		Skipped:         skipped,
	}

	var benchLoadings map[string]float64
	if row, ok := e.table[benchmark]; ok && benchmark != "" {
		benchLoadings = finiteLoadings(row)
	}

	names := make([]string, 0, len(exposures))
	for name := range exposures {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		item := &FactorExposure{
			Name:     name,
			Category: Classify(name),
			Exposure: exposures[name],
		}

		if benchLoadings != nil {
			if bench, ok := benchLoadings[name]; ok {
				diff := item.Exposure - bench
				item.Benchmark = &bench
				item.Difference = &diff
			}
		}

		switch item.Category {
		case Style:
			res.StyleFactors = append(res.StyleFactors, item)
		case Industry:
			res.IndustryFactors = append(res.IndustryFactors, item)
		case Country:
			res.CountryFactors = append(res.CountryFactors, item)
		default:
			res.OtherFactors = append(res.OtherFactors, item)
		}
	}

	decomp := Decompose(exposures, e.cov)
	if decomp == nil {
		if e.cov != nil {
			log.Debug().Int("NumFactors", len(exposures)).Msg("no factors in common with covariance matrix")
		}
		return res
	}

	res.HasCorrelationData = true
	res.Correlations = e.cov.Correlations(decomp.Factors)

	if decomp.Percent != nil {
		total := decomp.Total
		res.TotalRisk = &total
		res.RiskContributions = make([]*RiskContribution, len(decomp.Factors))
		for ii, name := range decomp.Factors {
			res.RiskContributions[ii] = &RiskContribution{
				Name:         name,
				Marginal:     decomp.Marginal[ii],
				Contribution: decomp.Percent[ii],
			}
		}
		sort.SliceStable(res.RiskContributions, func(i, j int) bool {
			return res.RiskContributions[i].Contribution > res.RiskContributions[j].Contribution
		})
	} else {
		log.Debug().Float64("TotalRisk", decomp.Total).Msg("total factor risk is zero or not finite; contributions omitted")
	}

	return res
}

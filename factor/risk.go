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
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Covariance is a symmetric factor covariance matrix
type Covariance struct {
	factors []string
	index   map[string]int
	matrix  *mat.SymDense
}

// NewCovariance builds a matrix from a factor-pair mapping. Only one triangle needs to be
// supplied; a pair given in both orders must agree. Pairs that are not supplied are zero.
func NewCovariance(pairs map[string]map[string]float64) (*Covariance, error) {
	seen := make(map[string]bool)
	for a, row := range pairs {
		seen[a] = true
		for b := range row {
			seen[b] = true
		}
	}

	if len(seen) == 0 {
		return nil, ErrEmptyCovariance
	}

	factors := make([]string, 0, len(seen))
	for factor := range seen {
		factors = append(factors, factor)
	}
	sort.Strings(factors)

	lookup := func(a, b string) (float64, bool) {
		if row, ok := pairs[a]; ok {
			if val, ok := row[b]; ok {
				return val, true
			}
		}
		return 0, false
	}

	cov := &Covariance{
		factors: factors,
		index:   make(map[string]int, len(factors)),
		matrix:  mat.NewSymDense(len(factors), nil),
	}

	for ii, a := range factors {
		cov.index[a] = ii
		for jj := ii; jj < len(factors); jj++ {
			b := factors[jj]
			ab, hasAB := lookup(a, b)
			ba, hasBA := lookup(b, a)

			val := ab
			switch {
			case hasAB && hasBA:
				if math.Abs(ab-ba) > 1e-9*math.Max(1, math.Abs(ab)) {
					return nil, ErrAsymmetricCovariance
				}
			case hasBA:
				val = ba
			}

			if math.IsNaN(val) || math.IsInf(val, 0) {
				return nil, ErrInvalidCovariance
			}

			cov.matrix.SetSym(ii, jj, val)
		}
	}

	return cov, nil
}

// Factors returns the sorted factor names covered by the matrix
func (cov *Covariance) Factors() []string {
	return cov.factors
}

// Has reports whether the matrix has a row for factor
func (cov *Covariance) Has(factor string) bool {
	_, ok := cov.index[factor]
	return ok
}

// At returns the covariance of two factors; unknown factors have zero covariance
func (cov *Covariance) At(a, b string) float64 {
	ii, okA := cov.index[a]
	jj, okB := cov.index[b]
	if !okA || !okB {
		return 0
	}
	return cov.matrix.At(ii, jj)
}

// sub extracts the sub-matrix for the given factors, all of which must be present
func (cov *Covariance) sub(factors []string) *mat.SymDense {
	res := mat.NewSymDense(len(factors), nil)
	for ii, a := range factors {
		for jj := ii; jj < len(factors); jj++ {
			res.SetSym(ii, jj, cov.At(a, factors[jj]))
		}
	}
	return res
}

// Decomposition splits total factor risk into per-factor contributions
type Decomposition struct {
	Factors  []string
	Total    float64
	Marginal []float64

	// Percent is each factor's share of Total in percent. It is nil when Total is zero or
	// not a finite number.
	Percent []float64
}

// Decompose computes the risk decomposition of an exposure vector x over the factors common to
// both x and the covariance matrix C:
//
//	total    = xᵀ C x
//	marginal = C x
//	pct[i]   = marginal[i] * x[i] / total * 100
//
// The percentages sum to 100. Returns nil when cov is nil or no factor is common.
func Decompose(exposures map[string]float64, cov *Covariance) *Decomposition {
	if cov == nil {
		return nil
	}

	common := make([]string, 0, len(exposures))
	for factor := range exposures {
		if cov.Has(factor) {
			common = append(common, factor)
		}
	}
	if len(common) == 0 {
		return nil
	}
	sort.Strings(common)

	x := mat.NewVecDense(len(common), nil)
	for ii, factor := range common {
		x.SetVec(ii, exposures[factor])
	}

	var cx mat.VecDense
	cx.MulVec(cov.sub(common), x)
	total := mat.Dot(x, &cx)

	res := &Decomposition{
		Factors:  common,
		Total:    total,
		Marginal: make([]float64, len(common)),
	}

	for ii := range common {
		res.Marginal[ii] = cx.AtVec(ii)
	}

	if total != 0 && !math.IsNaN(total) && !math.IsInf(total, 0) {
		res.Percent = make([]float64, len(common))
		for ii := range common {
			res.Percent[ii] = res.Marginal[ii] * x.AtVec(ii) / total * 100
		}
	}

	return res
}

// Correlations converts the covariance of each pair of factors into a correlation. Pairs with a
// non-positive variance are omitted.
func (cov *Covariance) Correlations(factors []string) []*Correlation {
	res := make([]*Correlation, 0)
	for ii, a := range factors {
		varA := cov.At(a, a)
		if varA <= 0 || !cov.Has(a) {
			continue
		}
		for _, b := range factors[ii+1:] {
			varB := cov.At(b, b)
			if varB <= 0 || !cov.Has(b) {
				continue
			}
			corr := cov.At(a, b) / math.Sqrt(varA*varB)
			if math.IsNaN(corr) || math.IsInf(corr, 0) {
				continue
			}
			res = append(res, &Correlation{Factor1: a, Factor2: b, Value: corr})
		}
	}
	return res
}

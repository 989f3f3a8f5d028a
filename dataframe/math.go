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

package dataframe

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// AddScalar adds the scalar value to all columns in dataframe df and returns a new dataframe
func (df *DataFrame[T]) AddScalar(scalar float64) *DataFrame[T] {
	df = df.Copy()
	for colIdx := range df.Vals {
		floats.AddConst(scalar, df.Vals[colIdx])
	}
	return df
}

// MulScalar multiplies all columns in dataframe df by the scalar and returns a new dataframe
func (df *DataFrame[T]) MulScalar(scalar float64) *DataFrame[T] {
	df = df.Copy()
	for colIdx := range df.Vals {
		floats.Scale(scalar, df.Vals[colIdx])
	}
	return df
}

// Sub subtracts the like-named column of other from every column in df and returns a new
// dataframe. Columns without a match are left untouched. Panics if rows are not equal.
func (df *DataFrame[T]) Sub(other *DataFrame[T]) *DataFrame[T] {
	df = df.Copy()
	for idx, colName := range df.ColNames {
		if otherIdx := other.ColIndex(colName); otherIdx != -1 {
			floats.Sub(df.Vals[idx], other.Vals[otherIdx])
		}
	}
	return df
}

// CumProd computes the running product of every column and returns a new dataframe.
// NaN values are treated as 1 so a missing observation does not poison the rest of the series.
func (df *DataFrame[T]) CumProd() *DataFrame[T] {
	df = df.Copy()
	for colIdx, col := range df.Vals {
		acc := 1.0
		for rowIdx, val := range col {
			if !math.IsNaN(val) {
				acc *= val
			}
			df.Vals[colIdx][rowIdx] = acc
		}
	}
	return df
}

// RunningMax computes the running maximum of every column and returns a new dataframe
func (df *DataFrame[T]) RunningMax() *DataFrame[T] {
	df = df.Copy()
	for colIdx, col := range df.Vals {
		peak := math.Inf(-1)
		for rowIdx, val := range col {
			if val > peak {
				peak = val
			}
			df.Vals[colIdx][rowIdx] = peak
		}
	}
	return df
}

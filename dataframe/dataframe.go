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
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// Breakout takes a dataframe with multiple columns and returns a map of dataframes, one per column
func (df *DataFrame[T]) Breakout() Map[T] {
	dfMap := Map[T]{}
	for idx, col := range df.ColNames {
		dfMap[col] = &DataFrame[T]{
			Index:    df.Index,
			ColNames: []string{col},
			Vals:     [][]float64{df.Vals[idx]},
		}
	}
	return dfMap
}

// ColIndex returns the index of the specified column or -1 if the column doesn't exist
func (df *DataFrame[T]) ColIndex(colName string) int {
	for idx, val := range df.ColNames {
		if colName == val {
			return idx
		}
	}
	return -1
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame[T]) ColCount() int {
	return len(df.ColNames)
}

// Column returns the values of the named column or nil if it doesn't exist
func (df *DataFrame[T]) Column(colName string) []float64 {
	idx := df.ColIndex(colName)
	if idx == -1 {
		return nil
	}
	return df.Vals[idx]
}

// Copy creates a deep copy of the dataframe
func (df *DataFrame[T]) Copy() *DataFrame[T] {
	df2 := &DataFrame[T]{
		ColNames: make([]string, len(df.ColNames)),
		Index:    make([]T, len(df.Index)),
		Vals:     make([][]float64, len(df.Vals)),
	}

	copy(df2.ColNames, df.ColNames)
	copy(df2.Index, df.Index)

	for idx := range df2.Vals {
		df2.Vals[idx] = make([]float64, len(df.Vals[idx]))
		copy(df2.Vals[idx], df.Vals[idx])
	}

	return df2
}

// Drop removes rows that contain the value `val` in any column. NaN matches NaN.
func (df *DataFrame[T]) Drop(val float64) *DataFrame[T] {
	isNA := math.IsNaN(val)
	newVals := make([][]float64, len(df.Vals))
	newIndex := make([]T, 0, len(df.Index))

	for rowIdx, rowKey := range df.Index {
		keep := true
		for _, col := range df.Vals {
			rowVal := col[rowIdx]
			if rowVal == val || (isNA && math.IsNaN(rowVal)) {
				keep = false
				break
			}
		}

		if keep {
			newIndex = append(newIndex, rowKey)
			for colIdx, col := range df.Vals {
				newVals[colIdx] = append(newVals[colIdx], col[rowIdx])
			}
		}
	}

	df.Vals = newVals
	df.Index = newIndex
	return df
}

// End returns the last time in the DataFrame
func (df *DataFrame[T]) End() time.Time {
	if len(df.Index) == 0 {
		return time.Time{}
	}

	if lastDate, ok := any(df.Index[len(df.Index)-1]).(time.Time); ok {
		return lastDate
	}

	return time.Time{}
}

// Frequency returns a new dataframe keeping only the first (XxxBegin) or last (XxxEnd)
// observation of each calendar period present in the index.
//
// NOTE: If the dataframe's index is not time.Time then the function will panic
func (df *DataFrame[T]) Frequency(frequency Frequency) *DataFrame[T] {
	var periodKey func(time.Time) int
	keepLast := true

	switch frequency {
	case Daily:
		return df.Copy()
	case WeekBegin, WeekEnd:
		periodKey = func(t time.Time) int {
			year, week := t.ISOWeek()
			return year*100 + week
		}
		keepLast = frequency == WeekEnd
	case MonthBegin, MonthEnd:
		periodKey = func(t time.Time) int { return t.Year()*100 + int(t.Month()) }
		keepLast = frequency == MonthEnd
	case YearBegin, YearEnd:
		periodKey = func(t time.Time) int { return t.Year() }
		keepLast = frequency == YearEnd
	default:
		log.Panic().Str("Frequency", string(frequency)).Msg("unknown frequency provided to dataframe frequency function")
	}

	newIndex := make([]T, 0, len(df.Index))
	newVals := make([][]float64, len(df.ColNames))
	for rowIdx, rowKey := range df.Index {
		key := periodKey(any(rowKey).(time.Time))

		var boundary bool
		if keepLast {
			boundary = rowIdx == len(df.Index)-1 || periodKey(any(df.Index[rowIdx+1]).(time.Time)) != key
		} else {
			boundary = rowIdx == 0 || periodKey(any(df.Index[rowIdx-1]).(time.Time)) != key
		}

		if boundary {
			newIndex = append(newIndex, rowKey)
			for colIdx := range newVals {
				newVals[colIdx] = append(newVals[colIdx], df.Vals[colIdx][rowIdx])
			}
		}
	}

	return &DataFrame[T]{
		Index:    newIndex,
		ColNames: df.ColNames,
		Vals:     newVals,
	}
}

// InsertRow adds a new row to the dataframe. Date must be after the last date in the dataframe and vals must equal the number
// of columns. If either of these conditions are not met then panic
func (df *DataFrame[T]) InsertRow(idx T, vals ...float64) *DataFrame[T] {
	if len(df.Index) != 0 {
		if last, ok := any(df.Index[len(df.Index)-1]).(time.Time); ok {
			newDate := any(idx).(time.Time)
			if !last.Before(newDate) {
				log.Panic().Time("LastDate", last).Time("NewDate", newDate).Msg("newDate must be after lastDate")
			}
		}
	}

	if len(vals) != len(df.ColNames) {
		log.Panic().Int("NumValsPassed", len(vals)).Int("NumColumns", len(df.ColNames)).Msg("number of vals passed must equal number of columns")
	}

	df.Index = append(df.Index, idx)
	for colIdx := range df.ColNames {
		df.Vals[colIdx] = append(df.Vals[colIdx], vals[colIdx])
	}

	return df
}

// Last returns a new dataframe with only the last n rows of the current dataframe
func (df *DataFrame[T]) Last(n int) *DataFrame[T] {
	if n >= df.Len() {
		return df
	}
	if n < 0 {
		n = 0
	}

	start := df.Len() - n
	lastVals := make([][]float64, len(df.Vals))
	for idx, col := range df.Vals {
		lastVals[idx] = col[start:]
	}

	return &DataFrame[T]{
		ColNames: df.ColNames,
		Index:    df.Index[start:],
		Vals:     lastVals,
	}
}

// Len returns the number of rows in the dataframe
func (df *DataFrame[T]) Len() int {
	return len(df.Index)
}

// PctChange computes the simple percentage change between consecutive rows of every
// column. The first row has no predecessor and is dropped so the result is one row
// shorter than df. A zero or NaN predecessor yields NaN.
func (df *DataFrame[T]) PctChange() *DataFrame[T] {
	res := &DataFrame[T]{
		ColNames: df.ColNames,
		Vals:     make([][]float64, len(df.Vals)),
	}

	if df.Len() < 2 {
		res.Index = []T{}
		for idx := range res.Vals {
			res.Vals[idx] = []float64{}
		}
		return res
	}

	res.Index = df.Index[1:]
	for colIdx, col := range df.Vals {
		changes := make([]float64, len(col)-1)
		for rowIdx := 1; rowIdx < len(col); rowIdx++ {
			prev := col[rowIdx-1]
			if prev == 0 || math.IsNaN(prev) {
				changes[rowIdx-1] = math.NaN()
				continue
			}
			changes[rowIdx-1] = col[rowIdx]/prev - 1
		}
		res.Vals[colIdx] = changes
	}

	return res
}

// Sample returns roughly `points` rows by keeping every max(1, Len/points)-th row starting with the first
func (df *DataFrame[T]) Sample(points int) *DataFrame[T] {
	if points <= 0 || df.Len() == 0 {
		return &DataFrame[T]{Index: []T{}, ColNames: df.ColNames, Vals: make([][]float64, len(df.Vals))}
	}

	step := df.Len() / points
	if step < 1 {
		step = 1
	}

	res := &DataFrame[T]{
		ColNames: df.ColNames,
		Index:    make([]T, 0, points+1),
		Vals:     make([][]float64, len(df.Vals)),
	}

	for rowIdx := 0; rowIdx < df.Len(); rowIdx += step {
		res.Index = append(res.Index, df.Index[rowIdx])
		for colIdx, col := range df.Vals {
			res.Vals[colIdx] = append(res.Vals[colIdx], col[rowIdx])
		}
	}

	return res
}

// Start returns the first date of the dataframe
func (df *DataFrame[T]) Start() time.Time {
	if len(df.Index) == 0 {
		return time.Time{}
	}

	if firstDate, ok := any(df.Index[0]).(time.Time); ok {
		return firstDate
	}

	return time.Time{}
}

// Table prints an ASCII formatted table
func (df *DataFrame[T]) Table() string {
	if len(df.Index) == 0 {
		return "<NO DATA>"
	}

	tableCols := append([]string{"Index"}, df.ColNames...)

	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader(tableCols)
	footer := make([]string, len(tableCols))
	footer[0] = "Num Rows"
	if len(footer) > 1 {
		footer[1] = fmt.Sprintf("%d", df.Len())
	}
	table.SetFooter(footer)
	table.SetBorder(false)

	for rowIdx, rowKey := range df.Index {
		row := make([]string, 0, len(df.Vals)+1)

		switch k := any(rowKey).(type) {
		case time.Time:
			row = append(row, k.Format("2006-01-02"))
		case string:
			row = append(row, k)
		}

		for _, col := range df.Vals {
			row = append(row, fmt.Sprintf("%.4f", col[rowIdx]))
		}

		table.Append(row)
	}

	table.Render()
	return s.String()
}

// Trim returns a view of the dataframe restricted to the date range [begin, end] (inclusive)
// NOTE: If T is not time.Time then the dataframe is returned unchanged
func (df *DataFrame[T]) Trim(begin, end time.Time) *DataFrame[T] {
	empty := &DataFrame[T]{
		ColNames: df.ColNames,
		Index:    []T{},
		Vals:     make([][]float64, len(df.Vals)),
	}

	if end.Before(begin) {
		return empty
	}

	if df.Len() == 0 {
		return df
	}

	if _, ok := any(df.Index[0]).(time.Time); !ok {
		return df
	}

	beginIdx := sort.Search(len(df.Index), func(i int) bool {
		return !any(df.Index[i]).(time.Time).Before(begin)
	})

	endIdx := sort.Search(len(df.Index), func(i int) bool {
		return any(df.Index[i]).(time.Time).After(end)
	})

	if beginIdx >= endIdx {
		return empty
	}

	df2 := &DataFrame[T]{
		ColNames: df.ColNames,
		Index:    df.Index[beginIdx:endIdx],
		Vals:     make([][]float64, len(df.Vals)),
	}
	for colIdx, col := range df.Vals {
		df2.Vals[colIdx] = col[beginIdx:endIdx]
	}

	return df2
}

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
	"sort"
	"time"
)

// Keys returns the map keys in sorted order
func (dfMap Map[T]) Keys() []string {
	keys := make([]string, 0, len(dfMap))
	for k := range dfMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Drop calls dataframe.Drop on each dataframe in the map
func (dfMap Map[T]) Drop(val float64) Map[T] {
	for _, v := range dfMap {
		v.Drop(val)
	}
	return dfMap
}

// Join inner joins every dataframe in the map on its index and returns a single dataframe whose
// columns appear in sorted key order. Only index values present in every dataframe are kept;
// time indexes are matched by calendar day so differing close times still align. The resulting
// index is in the order of the first dataframe, which is expected to be sorted.
func (dfMap Map[T]) Join() *DataFrame[T] {
	keys := dfMap.Keys()
	res := &DataFrame[T]{
		Index:    []T{},
		ColNames: []string{},
		Vals:     [][]float64{},
	}

	if len(keys) == 0 {
		return res
	}

	// count in how many frames each index value appears
	counts := make(map[string]int)
	for _, k := range keys {
		seen := make(map[string]bool, dfMap[k].Len())
		for _, idx := range dfMap[k].Index {
			key := indexKey(idx)
			if !seen[key] {
				seen[key] = true
				counts[key]++
			}
		}
	}

	first := dfMap[keys[0]]
	common := make(map[string]bool, first.Len())
	for _, idx := range first.Index {
		key := indexKey(idx)
		if counts[key] == len(keys) && !common[key] {
			common[key] = true
			res.Index = append(res.Index, idx)
		}
	}

	for _, k := range keys {
		df := dfMap[k]
		rowLookup := make(map[string]int, df.Len())
		for rowIdx, idx := range df.Index {
			rowLookup[indexKey(idx)] = rowIdx
		}

		for colIdx, colName := range df.ColNames {
			col := make([]float64, len(res.Index))
			for ii, idx := range res.Index {
				col[ii] = df.Vals[colIdx][rowLookup[indexKey(idx)]]
			}
			res.ColNames = append(res.ColNames, colName)
			res.Vals = append(res.Vals, col)
		}
	}

	return res
}

func indexKey[T time.Time | string](idx T) string {
	switch v := any(idx).(type) {
	case time.Time:
		return v.Format("2006-01-02")
	case string:
		return v
	}
	return fmt.Sprintf("%v", idx)
}

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

package analytics

import (
	"sort"

	"github.com/penny-vault/pv-analytics/portfolio"
)

// OtherBucket collects instruments without a sector or region
const OtherBucket = "Other"

// Slice is the share of the portfolio in one bucket, in percent
type Slice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Allocation breaks the portfolio weights down by sector and by region
type Allocation struct {
	Sectors []*Slice `json:"sectors"`
	Regions []*Slice `json:"regions"`
}

// CalculateAllocation groups normalized instrument weights by sector and region. Instruments
// without the attribute are grouped under Other. Slices are sorted largest first.
func CalculateAllocation(p *portfolio.Portfolio) *Allocation {
	normalized := p.Normalized()

	sectors := make(map[string]float64)
	regions := make(map[string]float64)
	for _, inst := range normalized.Instruments {
		sectors[bucket(inst.Sector)] += inst.Weight
		regions[bucket(inst.Region)] += inst.Weight
	}

	return &Allocation{
		Sectors: toSlices(sectors),
		Regions: toSlices(regions),
	}
}

func bucket(name string) string {
	if name == "" {
		return OtherBucket
	}
	return name
}

func toSlices(buckets map[string]float64) []*Slice {
	res := make([]*Slice, 0, len(buckets))
	for name, weight := range buckets {
		if weight <= 0 {
			continue
		}
		res = append(res, &Slice{Name: name, Value: weight * 100})
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].Value == res[j].Value {
			return res[i].Name < res[j].Name
		}
		return res[i].Value > res[j].Value
	})

	return res
}

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
	"strings"
	"unicode"
)

// Category groups factors for presentation
type Category string

const (
	Style    Category = "style"
	Industry Category = "industry"
	Country  Category = "country"
	Other    Category = "other"
)

// Categories lists every category in presentation order
var Categories = []Category{Style, Industry, Country, Other}

// knownFactors maps lower-cased factor names to their category
var knownFactors = map[string]Category{
	"value":          Style,
	"growth":         Style,
	"size":           Style,
	"momentum":       Style,
	"quality":        Style,
	"volatility":     Style,
	"low volatility": Style,
	"dividend yield": Style,
	"earnings yield": Style,
	"leverage":       Style,
	"liquidity":      Style,
	"beta":           Style,

	"technology":             Industry,
	"information technology": Industry,
	"healthcare":             Industry,
	"health care":            Industry,
	"financials":             Industry,
	"consumer discretionary": Industry,
	"consumer staples":       Industry,
	"communication services": Industry,
	"industrials":            Industry,
	"energy":                 Industry,
	"materials":              Industry,
	"utilities":              Industry,
	"real estate":            Industry,

	"united states":  Country,
	"usa":            Country,
	"china":          Country,
	"japan":          Country,
	"europe":         Country,
	"emerging":       Country,
	"united kingdom": Country,
	"germany":        Country,
}

// keyword lists are consulted in this order when the exact lookup misses
var keywords = []struct {
	category Category
	words    []string
}{
	{Style, []string{"value", "growth", "momentum", "size", "quality", "volatility", "yield", "earnings", "dividend", "leverage"}},
	{Industry, []string{"industry", "industrial", "sector", "technology", "tech", "healthcare", "health", "financial", "consumer", "energy", "materials", "utilities"}},
	{Country, []string{"country", "region", "us", "china", "europe", "japan", "asia"}},
}

// Classify tags a factor name with its category. Names are first looked up exactly (case
// insensitive) and then matched word by word against keyword lists. Keywords of four or more
// letters also match as a prefix so "Financials" matches "financial". Unrecognized factors are
// Other.
func Classify(name string) Category {
	lower := strings.ToLower(strings.TrimSpace(name))
	if category, ok := knownFactors[lower]; ok {
		return category
	}

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, group := range keywords {
		for _, word := range group.words {
			for _, token := range tokens {
				if token == word || (len(word) >= 4 && strings.HasPrefix(token, word)) {
					return group.category
				}
			}
		}
	}

	return Other
}

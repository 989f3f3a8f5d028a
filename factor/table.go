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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pv-analytics/common"
	"github.com/rs/zerolog/log"
)

// LoadLoadings reads a loadings table ({"SYMBOL": {"Factor": loading}}) from a .json or .toml
// file. Symbols are normalized.
func LoadLoadings(fn string) (Loadings, error) {
	raw := make(map[string]map[string]float64)
	if err := readTable(fn, &raw); err != nil {
		return nil, err
	}

	table := make(Loadings, len(raw))
	for symbol, row := range raw {
		table[common.NormalizeSymbol(symbol)] = row
	}

	log.Info().Str("FileName", fn).Int("NumInstruments", len(table)).Msg("loaded factor loadings")
	return table, nil
}

// LoadCovariance reads a factor covariance matrix ({"FactorA": {"FactorB": cov}}) from a .json
// or .toml file
func LoadCovariance(fn string) (*Covariance, error) {
	raw := make(map[string]map[string]float64)
	if err := readTable(fn, &raw); err != nil {
		return nil, err
	}

	cov, err := NewCovariance(raw)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("invalid covariance matrix")
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	return cov, nil
}

func readTable(fn string, out *map[string]map[string]float64) error {
	subLog := log.With().Str("FileName", fn).Logger()

	ext := strings.ToLower(filepath.Ext(fn))
	if ext != ".json" && ext != ".toml" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	raw, err := os.ReadFile(fn)
	if err != nil {
		subLog.Error().Err(err).Msg("could not read factor table")
		return err
	}

	if ext == ".json" {
		err = json.Unmarshal(raw, out)
	} else {
		err = toml.Unmarshal(raw, out)
	}

	if err != nil {
		subLog.Error().Err(err).Msg("could not parse factor table")
		return err
	}

	return nil
}

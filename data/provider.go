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

package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/penny-vault/pv-analytics/dataframe"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Provider supplies end-of-day prices for a symbol. Implementations return a single column frame
// named by the symbol, ordered by date, or ErrNotFound when the symbol is unknown.
type Provider interface {
	Name() string
	Prices(ctx context.Context, symbol string, begin, end time.Time) (*dataframe.DataFrame[time.Time], error)
}

// NewProvider builds the named provider from its viper configuration
func NewProvider(name string) (Provider, error) {
	switch strings.ToLower(name) {
	case "pvdb":
		return NewPvDb(), nil
	case "tiingo":
		return NewTiingo(viper.GetString("tiingo.token")), nil
	case "csv":
		return NewCSVDir(viper.GetString("data.csv_dir")), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}

// ProvidersFromConfig builds the provider chain listed in data.providers. Providers that are
// listed but not configured (no token, no directory) are skipped with a warning.
func ProvidersFromConfig() ([]Provider, error) {
	names := viper.GetStringSlice("data.providers")
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		subLog := log.With().Str("Provider", name).Logger()

		switch strings.ToLower(name) {
		case "pvdb":
			if viper.GetString("database.url") == "" {
				subLog.Warn().Msg("database.url not set; skipping provider")
				continue
			}
		case "tiingo":
			if viper.GetString("tiingo.token") == "" {
				subLog.Warn().Msg("tiingo.token not set; skipping provider")
				continue
			}
		case "csv":
			if viper.GetString("data.csv_dir") == "" {
				subLog.Warn().Msg("data.csv_dir not set; skipping provider")
				continue
			}
		}

		provider, err := NewProvider(name)
		if err != nil {
			subLog.Error().Err(err).Msg("could not create provider")
			return nil, err
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	return providers, nil
}

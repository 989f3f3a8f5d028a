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

package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-analytics/analytics"
	"github.com/penny-vault/pv-analytics/data"
	"github.com/penny-vault/pv-analytics/data/database"
	"github.com/penny-vault/pv-analytics/factor"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultCacheTTL     = time.Hour
)

// newDataManager connects to the database when one is configured and builds the provider chain
func newDataManager(ctx context.Context) *data.Manager {
	if viper.GetString("database.url") != "" {
		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		log.Info().Msg("connected to database")
	}

	manager, err := data.NewManagerFromConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("could not create data manager")
	}
	log.Info().Strs("Providers", manager.Providers()).Msg("initialized data framework")

	return manager
}

// newFactorEngine loads the configured factor tables; nil when no loadings file is set
func newFactorEngine() *factor.Engine {
	loadingsFn := viper.GetString("factor.loadings_file")
	covarianceFn := viper.GetString("factor.covariance_file")
	if loadingsFn == "" && covarianceFn == "" {
		return nil
	}

	var loadings factor.Loadings
	if loadingsFn != "" {
		var err error
		loadings, err = factor.LoadLoadings(loadingsFn)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", loadingsFn).Msg("could not load factor loadings")
		}
	}

	var cov *factor.Covariance
	if covarianceFn != "" {
		var err error
		cov, err = factor.LoadCovariance(covarianceFn)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", covarianceFn).Msg("could not load factor covariance")
		}
	}

	log.Info().Int("NumInstruments", len(loadings)).Bool("Covariance", cov != nil).Msg("loaded factor tables")
	return factor.NewEngine(loadings, cov)
}

// newEngine wires the data manager and factor tables into an analytics engine
func newEngine(ctx context.Context) (*analytics.Engine, *data.Manager) {
	manager := newDataManager(ctx)
	engine := analytics.NewEngine(manager, newFactorEngine(), analytics.ConfigFromViper())
	return engine, manager
}

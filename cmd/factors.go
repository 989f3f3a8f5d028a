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
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-analytics/analytics"
)

var factorsFormat string

func init() {
	factorsCmd.Flags().StringVarP(&factorsFormat, "format", "f", formatTable, "Output format: table or json")
	rootCmd.AddCommand(factorsCmd)
}

var factorsCmd = &cobra.Command{
	Use:   "factors <portfolio file>",
	Short: "Compute the factor exposure of a portfolio",
	Long: `Aggregate per-instrument factor loadings into portfolio exposures, grouped by style, industry
and country. When a covariance matrix is given the factor risk is decomposed as well.
No price data is downloaded.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := loadPortfolio(cmd, args[0])

		cfg := analytics.ConfigFromViper()
		engine := analytics.NewEngine(nil, newFactorEngine(), cfg)

		benchmark := p.Benchmark
		if benchmark == "" {
			benchmark = cfg.Benchmark
		}

		res := analytics.FormatFactors(engine.Factors(p.Normalized(), benchmark))
		if res == nil {
			log.Fatal().Str("FileName", args[0]).Msg("no factor loadings available; set --loadings or add factor_loadings to the instruments")
		}

		switch factorsFormat {
		case formatJSON:
			writeJSON(os.Stdout, res)
		default:
			writeFactors(os.Stdout, res)
		}
	},
}

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
	"fmt"
	"os"

	"github.com/penny-vault/pv-analytics/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Profile bool

// bindFlag registers a persistent flag and binds it to a viper key and environment variable
func bindFlag(key, env string, bind func()) {
	bind()
	viper.BindEnv(key, env)
}

func init() {
	flags := rootCmd.PersistentFlags()

	// Analytics
	bindFlag("analytics.risk_free_rate", "PVA_RISK_FREE_RATE", func() {
		flags.Float64("risk-free-rate", 0.02, "Annual risk-free rate used by Sharpe and Sortino ratios")
		viper.BindPFlag("analytics.risk_free_rate", flags.Lookup("risk-free-rate"))
	})
	bindFlag("analytics.benchmark", "PVA_BENCHMARK", func() {
		flags.String("benchmark", "SPY", "Default benchmark symbol")
		viper.BindPFlag("analytics.benchmark", flags.Lookup("benchmark"))
	})
	bindFlag("analytics.history_years", "PVA_HISTORY_YEARS", func() {
		flags.Int("history-years", 5, "Years of price history to analyze")
		viper.BindPFlag("analytics.history_years", flags.Lookup("history-years"))
	})
	bindFlag("analytics.chart_points", "PVA_CHART_POINTS", func() {
		flags.Int("chart-points", 30, "Approximate number of points in the comparison chart")
		viper.BindPFlag("analytics.chart_points", flags.Lookup("chart-points"))
	})
	bindFlag("analytics.synthetic_seed", "PVA_SYNTHETIC_SEED", func() {
		flags.Uint64("synthetic-seed", 0, "Seed for synthetic fallback data; 0 picks a new seed every run")
		viper.BindPFlag("analytics.synthetic_seed", flags.Lookup("synthetic-seed"))
	})

	// Data providers
	bindFlag("data.providers", "PVA_PROVIDERS", func() {
		flags.StringSlice("providers", []string{"pvdb", "tiingo", "csv"}, "Price providers in order of consultation")
		viper.BindPFlag("data.providers", flags.Lookup("providers"))
	})
	bindFlag("data.csv_dir", "PVA_CSV_DIR", func() {
		flags.String("csv-dir", "", "Directory of <SYMBOL>.csv price files")
		viper.BindPFlag("data.csv_dir", flags.Lookup("csv-dir"))
	})
	bindFlag("data.fetch_timeout", "PVA_FETCH_TIMEOUT", func() {
		flags.Duration("fetch-timeout", defaultFetchTimeout, "Timeout for a single provider request")
		viper.BindPFlag("data.fetch_timeout", flags.Lookup("fetch-timeout"))
	})
	bindFlag("data.max_concurrency", "PVA_MAX_CONCURRENCY", func() {
		flags.Int("max-concurrency", 8, "Maximum number of concurrent provider requests")
		viper.BindPFlag("data.max_concurrency", flags.Lookup("max-concurrency"))
	})

	// Tiingo
	bindFlag("tiingo.token", "TIINGO_TOKEN", func() {
		flags.String("tiingo-token", "", "Tiingo API token")
		viper.BindPFlag("tiingo.token", flags.Lookup("tiingo-token"))
	})
	bindFlag("tiingo.url", "TIINGO_URL", func() {
		flags.String("tiingo-url", "", "Tiingo API base URL")
		viper.BindPFlag("tiingo.url", flags.Lookup("tiingo-url"))
	})

	// Database
	bindFlag("database.url", "DATABASE_URL", func() {
		flags.String("database-url", "", "PostgreSQL connection string")
		viper.BindPFlag("database.url", flags.Lookup("database-url"))
	})

	// Cache
	bindFlag("cache.local_size", "PVA_CACHE_LOCAL_SIZE", func() {
		flags.Int("cache-local-size", 256, "Number of series held in the local cache")
		viper.BindPFlag("cache.local_size", flags.Lookup("cache-local-size"))
	})
	bindFlag("cache.ttl", "PVA_CACHE_TTL", func() {
		flags.Duration("cache-ttl", defaultCacheTTL, "Time a cached price series stays valid")
		viper.BindPFlag("cache.ttl", flags.Lookup("cache-ttl"))
	})
	bindFlag("cache.redis", "PVA_CACHE_REDIS", func() {
		flags.Bool("cache-redis", false, "Share cached series through redis")
		viper.BindPFlag("cache.redis", flags.Lookup("cache-redis"))
	})
	bindFlag("cache.redis_url", "REDIS_URL", func() {
		flags.String("cache-redis-url", "", "Redis connection url")
		viper.BindPFlag("cache.redis_url", flags.Lookup("cache-redis-url"))
	})

	// Factors
	bindFlag("factor.loadings_file", "PVA_FACTOR_LOADINGS", func() {
		flags.String("loadings", "", "Factor loadings table (.json or .toml)")
		viper.BindPFlag("factor.loadings_file", flags.Lookup("loadings"))
	})
	bindFlag("factor.covariance_file", "PVA_FACTOR_COVARIANCE", func() {
		flags.String("covariance", "", "Factor covariance matrix (.json or .toml)")
		viper.BindPFlag("factor.covariance_file", flags.Lookup("covariance"))
	})

	// Observability
	bindFlag("otlp.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", func() {
		flags.String("otlp-endpoint", "", "OTLP trace collector endpoint; tracing is disabled when blank")
		viper.BindPFlag("otlp.endpoint", flags.Lookup("otlp-endpoint"))
	})
	bindFlag("otlp.http", "PVA_OTLP_HTTP", func() {
		flags.Bool("otlp-http", false, "Export traces over http instead of grpc")
		viper.BindPFlag("otlp.http", flags.Lookup("otlp-http"))
	})

	// Logging configuration
	bindFlag("log.level", "PVA_LOG_LEVEL", func() {
		flags.String("log-level", "warning", "Logging level")
		viper.BindPFlag("log.level", flags.Lookup("log-level"))
	})
	bindFlag("log.report_caller", "PVA_LOG_REPORT_CALLER", func() {
		flags.Bool("log-report-caller", false, "Log function name that called log statement")
		viper.BindPFlag("log.report_caller", flags.Lookup("log-report-caller"))
	})
	bindFlag("log.output", "PVA_LOG_OUTPUT", func() {
		flags.String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
		viper.BindPFlag("log.output", flags.Lookup("log-output"))
	})
	bindFlag("log.pretty", "PVA_LOG_PRETTY", func() {
		flags.Bool("log-pretty", false, "Pretty print log messages")
		viper.BindPFlag("log.pretty", flags.Lookup("log-pretty"))
	})

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
}

var rootCmd = &cobra.Command{
	Use:     common.ProgramName,
	Version: common.CurrentVersion.String(),
	Short:   "Portfolio performance, risk, benchmark and factor analytics",
	Long: `Compute performance, risk, benchmark-relative and factor exposure metrics for a weighted
portfolio of instruments from daily price history.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

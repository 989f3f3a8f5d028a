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
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/pv-analytics/data"
	"github.com/penny-vault/pv-analytics/dataframe"
	"github.com/penny-vault/pv-analytics/factor"
	"github.com/penny-vault/pv-analytics/observability/metrics"
	"github.com/penny-vault/pv-analytics/observability/opentelemetry"
	"github.com/penny-vault/pv-analytics/portfolio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PriceSource supplies price history for instruments and benchmarks. *data.Manager satisfies it.
type PriceSource interface {
	Fetch(ctx context.Context, symbols []string, begin, end time.Time) map[string]*data.Availability
	Benchmark(ctx context.Context, symbol string, begin, end time.Time) *data.Availability
}

// Config controls the analysis engine
type Config struct {
	RiskFreeRate float64
	Benchmark    string
	HistoryYears int
	ChartPoints  int

	// SyntheticSeed seeds the fallback generator; 0 draws a new seed for every analysis
	SyntheticSeed uint64
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		RiskFreeRate: 0.02,
		Benchmark:    "SPY",
		HistoryYears: 5,
		ChartPoints:  30,
	}
}

// ConfigFromViper reads the analytics.* configuration keys
func ConfigFromViper() Config {
	cfg := DefaultConfig()
	if viper.IsSet("analytics.risk_free_rate") {
		cfg.RiskFreeRate = viper.GetFloat64("analytics.risk_free_rate")
	}
	if benchmark := viper.GetString("analytics.benchmark"); benchmark != "" {
		cfg.Benchmark = benchmark
	}
	if years := viper.GetInt("analytics.history_years"); years > 0 {
		cfg.HistoryYears = years
	}
	if points := viper.GetInt("analytics.chart_points"); points > 0 {
		cfg.ChartPoints = points
	}
	cfg.SyntheticSeed = viper.GetUint64("analytics.synthetic_seed")
	return cfg
}

// Engine runs the analysis pipeline: availability check, data selection, computation and
// formatting. An Engine holds no per-analysis state and may be used concurrently.
type Engine struct {
	source  PriceSource
	factors *factor.Engine
	cfg     Config
	now     func() time.Time
}

// NewEngine creates an analysis engine. factors may be nil in which case factor exposures are
// only computed for instruments that carry their own loadings.
func NewEngine(source PriceSource, factors *factor.Engine, cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.Benchmark == "" {
		cfg.Benchmark = defaults.Benchmark
	}
	if cfg.HistoryYears <= 0 {
		cfg.HistoryYears = defaults.HistoryYears
	}
	if cfg.ChartPoints <= 0 {
		cfg.ChartPoints = defaults.ChartPoints
	}

	return &Engine{
		source:  source,
		factors: factors,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithClock replaces the clock used to anchor the history and lookback windows
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// availability is the outcome of looking up every symbol of an analysis
type availability struct {
	instruments map[string]*data.Availability
	benchmark   *data.Availability
}

// selection is the data set chosen for one analysis; it is either entirely real or entirely
// synthetic
type selection struct {
	source    string
	prices    dataframe.Map[time.Time]
	benchmark *dataframe.DataFrame[time.Time]
	excluded  []*Exclusion
}

// Analyze validates the portfolio and computes the full analysis record. Errors are only
// returned for an invalid portfolio or a cancelled context; missing data and degenerate numbers
// degrade the record instead.
func (e *Engine) Analyze(ctx context.Context, p *portfolio.Portfolio) (*Analysis, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "analytics.Analyze")
	defer span.End()

	started := time.Now()

	// work on a copy so symbols are compared in their canonical case
	normalized := p.Normalized().Normalize()
	if err := normalized.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid portfolio")
		return nil, err
	}

	benchmark := normalized.Benchmark
	if benchmark == "" {
		benchmark = e.cfg.Benchmark
	}

	now := e.now()
	end := now
	begin := now.AddDate(-e.cfg.HistoryYears, 0, 0)

	span.SetAttributes(
		attribute.Int("NumInstruments", len(normalized.Instruments)),
		attribute.String("Benchmark", benchmark),
	)

	subLog := log.With().Str("Portfolio", normalized.Name).Str("Benchmark", benchmark).Logger()

	avail := e.checkAvailability(ctx, normalized.Symbols(), benchmark, begin, end)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis cancelled")
		return nil, err
	}

	sel := e.selectData(ctx, normalized.Symbols(), benchmark, avail, begin, end)
	span.SetAttributes(attribute.String("Source", sel.source))

	returns := CalculateReturns(sel.prices, normalized.Weights())
	sel.excluded = appendExcluded(sel.excluded, returns.Excluded, data.ErrInsufficientHistory)
	metrics.ExcludedInstruments.Add(float64(len(sel.excluded)))

	var benchReturns *dataframe.DataFrame[time.Time]
	if sel.benchmark != nil {
		benchReturns = SeriesReturns(sel.benchmark, BenchmarkColumn)
	}

	stats := ComputeStatistics(returns.Portfolio, benchReturns, e.cfg.RiskFreeRate)
	risk := ComputeRisk(returns, benchReturns, e.cfg.RiskFreeRate)
	comparison := Compare(returns.Portfolio, benchReturns, benchmark, now, e.cfg.RiskFreeRate)
	chart := ComparisonChart(returns.Portfolio, benchReturns, e.cfg.ChartPoints)

	fingerprint, err := normalized.Fingerprint()
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not fingerprint portfolio")
	}

	res := &Analysis{
		ID:          uuid.New().String(),
		Fingerprint: fingerprint,
		AsOf:        now,
		Source:      sel.source,
		Benchmark:   benchmark,
		Excluded:    sel.excluded,
		Performance: formatPerformance(stats, chart),
		Risk:        formatRisk(risk),
		Comparison:  formatComparison(comparison),
		Allocation:  formatAllocation(CalculateAllocation(normalized)),
		Factors:     FormatFactors(e.Factors(normalized, benchmark)),
	}

	metrics.RecordAnalysis(sel.source, time.Since(started).Seconds())
	subLog.Info().Str("Source", sel.source).Int("NumExcluded", len(sel.excluded)).Int("NumObservations", stats.Observations).Msg("computed portfolio analysis")

	return res, nil
}

// Factors computes the factor exposure of the portfolio. Loadings carried by the instruments
// override the configured table. Returns nil when no loadings are available at all.
func (e *Engine) Factors(p *portfolio.Portfolio, benchmark string) *factor.Result {
	p = p.Normalized().Normalize()

	extra := factor.Loadings{}
	holdings := make([]factor.Holding, 0, len(p.Instruments))
	for _, inst := range p.Instruments {
		if inst == nil {
			continue
		}
		holdings = append(holdings, factor.Holding{Symbol: inst.Symbol, Weight: inst.Weight})
		if len(inst.FactorLoadings) > 0 {
			extra[inst.Symbol] = inst.FactorLoadings
		}
	}

	engine := e.factors
	if engine == nil {
		if len(extra) == 0 {
			return nil
		}
		engine = factor.NewEngine(nil, nil)
	}

	return engine.WithLoadings(extra).Analyze(holdings, benchmark)
}

// checkAvailability looks up the price history of every instrument and the benchmark
func (e *Engine) checkAvailability(ctx context.Context, symbols []string, benchmark string, begin, end time.Time) *availability {
	return &availability{
		instruments: e.source.Fetch(ctx, symbols, begin, end),
		benchmark:   e.source.Benchmark(ctx, benchmark, begin, end),
	}
}

// selectData chooses the data set for the analysis. When at least one instrument has real data
// only real data is used and unavailable instruments are excluded. When no instrument has data
// every instrument and the benchmark are generated synthetically.
func (e *Engine) selectData(ctx context.Context, symbols []string, benchmark string, avail *availability, begin, end time.Time) *selection {
	sel := &selection{
		source:   SourceReal,
		prices:   dataframe.Map[time.Time]{},
		excluded: []*Exclusion{},
	}

	for _, symbol := range symbols {
		result, ok := avail.instruments[symbol]
		if !ok || result == nil {
			result = data.Unavailable(symbol, data.ErrNotFound)
		}
		if result.Ok() {
			sel.prices[symbol] = result.Series
			continue
		}
		log.Warn().Object("Availability", result).Msg("instrument price history unavailable")
		sel.excluded = append(sel.excluded, &Exclusion{Symbol: symbol, Reason: result.Reason.Error()})
	}

	if len(sel.prices) > 0 {
		if avail.benchmark != nil && avail.benchmark.Ok() {
			sel.benchmark = avail.benchmark.Series
		} else {
			log.Warn().Str("Benchmark", benchmark).Msg("benchmark price history unavailable; benchmark relative metrics use defaults")
		}
		return sel
	}

	log.Warn().Int("NumInstruments", len(symbols)).Msg("no instrument has price history; using synthetic data")

	gen := data.NewSynthetic(e.cfg.SyntheticSeed)
	synthetic := &selection{
		source:   SourceSynthetic,
		prices:   dataframe.Map[time.Time]{},
		excluded: []*Exclusion{},
	}

	for _, symbol := range symbols {
		series, err := gen.Prices(ctx, symbol, begin, end)
		if err != nil {
			log.Error().Err(err).Str("Symbol", symbol).Msg("could not generate synthetic prices")
			continue
		}
		synthetic.prices[symbol] = series
	}

	if series, err := gen.Prices(ctx, benchmark, begin, end); err == nil {
		synthetic.benchmark = series
	} else {
		log.Error().Err(err).Str("Benchmark", benchmark).Msg("could not generate synthetic benchmark prices")
	}

	return synthetic
}

// appendExcluded adds symbols that are not already excluded
func appendExcluded(excluded []*Exclusion, symbols []string, reason error) []*Exclusion {
	seen := make(map[string]bool, len(excluded))
	for _, item := range excluded {
		seen[item.Symbol] = true
	}
	for _, symbol := range symbols {
		if !seen[symbol] {
			excluded = append(excluded, &Exclusion{Symbol: symbol, Reason: reason.Error()})
		}
	}
	return excluded
}

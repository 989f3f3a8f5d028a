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
	"math"
	"time"

	"github.com/penny-vault/pv-analytics/factor"
	"github.com/shopspring/decimal"
)

// Status labels attached to risk metrics
const (
	StatusGood    = "good"
	StatusNeutral = "neutral"
	StatusBad     = "bad"
	StatusLow     = "low"
	StatusMedium  = "medium"
	StatusHigh    = "high"
)

// Source labels
const (
	SourceReal      = "real"
	SourceSynthetic = "synthetic"
)

const dateFormat = "2006-01-02"

// Analysis is the formatted analysis record. Percentages are multiplied by 100 and rounded to 2
// decimals, ratios are rounded to 2 decimals and no field ever holds NaN or Inf.
type Analysis struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	AsOf        time.Time `json:"asOf"`

	// Source is "real" or "synthetic"; synthetic results never include real data
	Source    string       `json:"source"`
	Benchmark string       `json:"benchmark"`
	Excluded  []*Exclusion `json:"excluded"`

	Performance *Performance      `json:"performance"`
	Risk        *RiskReport       `json:"risk"`
	Comparison  *ComparisonReport `json:"comparison"`
	Allocation  *Allocation       `json:"allocation"`
	Factors     *factor.Result    `json:"factors,omitempty"`
}

// Exclusion records an instrument left out of the computation
type Exclusion struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

type Performance struct {
	Start            string           `json:"start"`
	End              string           `json:"end"`
	Observations     int              `json:"observations"`
	TotalReturn      float64          `json:"totalReturn"`
	AnnualizedReturn float64          `json:"annualizedReturn"`
	Volatility       float64          `json:"volatility"`
	SharpeRatio      float64          `json:"sharpeRatio"`
	MaxDrawdown      float64          `json:"maxDrawdown"`
	WinRate          *float64         `json:"winRate"`
	InceptionReturn  float64          `json:"inceptionReturn"`
	Monthly          []*MonthlyReturn `json:"monthly"`
	Chart            []*ChartValue    `json:"chart"`
}

type MonthlyReturn struct {
	Month      string  `json:"month"`
	Return     float64 `json:"return"`
	Cumulative float64 `json:"cumulative"`
}

type ChartValue struct {
	Date      string   `json:"date"`
	Portfolio float64  `json:"portfolio"`
	Benchmark *float64 `json:"benchmark"`
}

// RiskMetric is a named risk figure with display hints. Status is good/neutral/bad when the
// figure is compared to the benchmark and low/medium/high otherwise; Percentage is a 0-100 gauge.
type RiskMetric struct {
	Name       string   `json:"name"`
	Value      float64  `json:"value"`
	Benchmark  *float64 `json:"benchmark"`
	Status     string   `json:"status"`
	Percentage float64  `json:"percentage"`
}

type ContributionValue struct {
	Symbol       string  `json:"symbol"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

type PeriodValue struct {
	Period        string  `json:"period"`
	Observations  int     `json:"observations"`
	Volatility    float64 `json:"volatility"`
	ValueAtRisk   float64 `json:"var"`
	Beta          float64 `json:"beta"`
	TrackingError float64 `json:"trackingError"`
}

type RiskReport struct {
	Metrics         []*RiskMetric        `json:"metrics"`
	Contributions   []*ContributionValue `json:"contributions"`
	Periods         []*PeriodValue       `json:"periods"`
	LongestDrawdown int                  `json:"longestDrawdown"`
}

type PairValue struct {
	Portfolio  float64 `json:"portfolio"`
	Benchmark  float64 `json:"benchmark"`
	Difference float64 `json:"difference"`
}

type WindowReport struct {
	Start            string     `json:"start"`
	End              string     `json:"end"`
	Observations     int        `json:"observations"`
	TotalReturn      *PairValue `json:"totalReturn"`
	AnnualizedReturn *PairValue `json:"annualizedReturn"`
	Volatility       *PairValue `json:"volatility"`
	SharpeRatio      *PairValue `json:"sharpeRatio"`
	MaxDrawdown      *PairValue `json:"maxDrawdown"`
	WinRate          float64    `json:"winRate"`
	Correlation      float64    `json:"correlation"`
	Beta             float64    `json:"beta"`
	TrackingError    float64    `json:"trackingError"`
	InformationRatio float64    `json:"informationRatio"`
}

// ComparisonReport holds the overall comparison and one entry per lookback window; windows
// without enough data are null
type ComparisonReport struct {
	Benchmark string                   `json:"benchmark"`
	Overall   *WindowReport            `json:"overall"`
	Windows   map[string]*WindowReport `json:"windows"`
}

// round rounds half away from zero to the given number of decimal places. NaN and Inf become 0.
func round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

// pct converts a fraction to a rounded percentage
func pct(x float64) float64 {
	return round(x*100, 2)
}

// num rounds a ratio
func num(x float64) float64 {
	return round(x, 2)
}

func pctPtr(x *float64) *float64 {
	if x == nil {
		return nil
	}
	val := pct(*x)
	return &val
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}

func formatPerformance(stats *Statistics, chart []*ChartPoint) *Performance {
	perf := &Performance{
		Start:            formatDate(stats.Start),
		End:              formatDate(stats.End),
		Observations:     stats.Observations,
		TotalReturn:      pct(stats.TotalReturn),
		AnnualizedReturn: pct(stats.AnnualizedReturn),
		Volatility:       pct(stats.Volatility),
		SharpeRatio:      num(stats.SharpeRatio),
		MaxDrawdown:      pct(stats.MaxDrawdown),
		WinRate:          pctPtr(stats.WinRate),
		InceptionReturn:  round(stats.InceptionReturn, 2),
		Monthly:          make([]*MonthlyReturn, len(stats.Monthly)),
		Chart:            make([]*ChartValue, len(chart)),
	}

	for idx, month := range stats.Monthly {
		perf.Monthly[idx] = &MonthlyReturn{
			Month:      month.Label,
			Return:     pct(month.Return),
			Cumulative: round(month.Cumulative, 2),
		}
	}

	for idx, point := range chart {
		val := &ChartValue{
			Date:      formatDate(point.Date),
			Portfolio: round(point.Portfolio, 4),
		}
		if point.Benchmark != nil {
			bench := round(*point.Benchmark, 4)
			val.Benchmark = &bench
		}
		perf.Chart[idx] = val
	}

	return perf
}

// metricDisplay describes how a risk figure is labeled
type metricDisplay struct {
	name           string
	percent        bool
	higherIsBetter bool

	// low and high split the magnitude of the displayed value into low/medium/high
	low  float64
	high float64

	// scale is the magnitude that fills the gauge
	scale float64
}

func (md metricDisplay) display(x float64) float64 {
	if md.percent {
		return pct(x)
	}
	return num(x)
}

func (md metricDisplay) metric(value float64, benchmark *float64) *RiskMetric {
	m := &RiskMetric{
		Name:       md.name,
		Value:      md.display(value),
		Percentage: round(math.Max(0, math.Min(100, math.Abs(md.display(value))/md.scale*100)), 1),
	}

	if benchmark != nil {
		bench := md.display(*benchmark)
		m.Benchmark = &bench
		m.Status = relativeStatus(m.Value, bench, md.higherIsBetter)
		return m
	}

	magnitude := math.Abs(m.Value)
	switch {
	case magnitude < md.low:
		m.Status = StatusLow
	case magnitude < md.high:
		m.Status = StatusMedium
	default:
		m.Status = StatusHigh
	}

	return m
}

// relativeStatus compares a value with its benchmark; differences within 5% of the benchmark
// magnitude are neutral
func relativeStatus(value, benchmark float64, higherIsBetter bool) string {
	tolerance := math.Max(math.Abs(benchmark)*0.05, 0.01)
	diff := value - benchmark
	if !higherIsBetter {
		diff = -diff
	}

	switch {
	case diff > tolerance:
		return StatusGood
	case diff < -tolerance:
		return StatusBad
	default:
		return StatusNeutral
	}
}

var (
	volatilityDisplay       = metricDisplay{name: "Volatility", percent: true, low: 10, high: 20, scale: 40}
	maxDrawdownDisplay      = metricDisplay{name: "Max Drawdown", percent: true, higherIsBetter: true, low: 10, high: 25, scale: 50}
	downsideRiskDisplay     = metricDisplay{name: "Downside Risk", percent: true, low: 7, high: 15, scale: 30}
	betaDisplay             = metricDisplay{name: "Beta", low: 0.8, high: 1.2, scale: 2}
	valueAtRiskDisplay      = metricDisplay{name: "VaR (95%)", percent: true, higherIsBetter: true, low: 1.5, high: 3, scale: 5}
	conditionalVaRDisplay   = metricDisplay{name: "CVaR (95%)", percent: true, higherIsBetter: true, low: 2, high: 4, scale: 7}
	sharpeDisplay           = metricDisplay{name: "Sharpe Ratio", higherIsBetter: true, low: 0.5, high: 1, scale: 3}
	sortinoDisplay          = metricDisplay{name: "Sortino Ratio", higherIsBetter: true, low: 0.75, high: 1.5, scale: 4}
	trackingErrorDisplay    = metricDisplay{name: "Tracking Error", percent: true, low: 2, high: 6, scale: 15}
	informationRatioDisplay = metricDisplay{name: "Information Ratio", higherIsBetter: true, low: 0.25, high: 0.75, scale: 1.5}
)

func formatRisk(risk *Risk) *RiskReport {
	var bench *Standalone
	if risk.Benchmark != nil {
		bench = risk.Benchmark
	}

	benchValue := func(get func(*Standalone) float64) *float64 {
		if bench == nil {
			return nil
		}
		val := get(bench)
		return &val
	}

	report := &RiskReport{
		Metrics: []*RiskMetric{
			volatilityDisplay.metric(risk.Volatility, benchValue(func(s *Standalone) float64 { return s.Volatility })),
			maxDrawdownDisplay.metric(risk.MaxDrawdown, benchValue(func(s *Standalone) float64 { return s.MaxDrawdown })),
			downsideRiskDisplay.metric(risk.DownsideRisk, benchValue(func(s *Standalone) float64 { return s.DownsideRisk })),
			betaDisplay.metric(risk.Beta, nil),
			valueAtRiskDisplay.metric(risk.ValueAtRisk, benchValue(func(s *Standalone) float64 { return s.ValueAtRisk })),
			conditionalVaRDisplay.metric(risk.ConditionalVaR, benchValue(func(s *Standalone) float64 { return s.ConditionalVaR })),
			sharpeDisplay.metric(risk.SharpeRatio, benchValue(func(s *Standalone) float64 { return s.SharpeRatio })),
			sortinoDisplay.metric(risk.SortinoRatio, benchValue(func(s *Standalone) float64 { return s.SortinoRatio })),
			trackingErrorDisplay.metric(risk.TrackingError, nil),
			informationRatioDisplay.metric(risk.InformationRatio, nil),
		},
		Contributions:   make([]*ContributionValue, len(risk.Contributions)),
		Periods:         make([]*PeriodValue, len(risk.Periods)),
		LongestDrawdown: risk.LongestDrawdown,
	}

	for idx, item := range risk.Contributions {
		report.Contributions[idx] = &ContributionValue{
			Symbol:       item.Symbol,
			Weight:       pct(item.Weight),
			Contribution: round(item.Contribution, 2),
		}
	}

	for idx, item := range risk.Periods {
		report.Periods[idx] = &PeriodValue{
			Period:        item.Period,
			Observations:  item.Observations,
			Volatility:    pct(item.Volatility),
			ValueAtRisk:   pct(item.ValueAtRisk),
			Beta:          num(item.Beta),
			TrackingError: pct(item.TrackingError),
		}
	}

	return report
}

func formatPair(pair *Pair, percent bool) *PairValue {
	if pair == nil {
		return nil
	}
	conv := num
	if percent {
		conv = pct
	}
	return &PairValue{
		Portfolio:  conv(pair.Portfolio),
		Benchmark:  conv(pair.Benchmark),
		Difference: conv(pair.Difference),
	}
}

func formatWindow(w *WindowMetrics) *WindowReport {
	if w == nil {
		return nil
	}
	return &WindowReport{
		Start:            formatDate(w.Start),
		End:              formatDate(w.End),
		Observations:     w.Observations,
		TotalReturn:      formatPair(w.TotalReturn, true),
		AnnualizedReturn: formatPair(w.AnnualizedReturn, true),
		Volatility:       formatPair(w.Volatility, true),
		SharpeRatio:      formatPair(w.SharpeRatio, false),
		MaxDrawdown:      formatPair(w.MaxDrawdown, true),
		WinRate:          pct(w.WinRate),
		Correlation:      num(w.Correlation),
		Beta:             num(w.Beta),
		TrackingError:    pct(w.TrackingError),
		InformationRatio: num(w.InformationRatio),
	}
}

func formatComparison(c *Comparison) *ComparisonReport {
	report := &ComparisonReport{
		Benchmark: c.Benchmark,
		Overall:   formatWindow(c.Overall),
		Windows:   make(map[string]*WindowReport, len(Windows)),
	}
	for idx, w := range Windows {
		var metrics *WindowMetrics
		if idx < len(c.Windows) {
			metrics = c.Windows[idx]
		}
		report.Windows[string(w)] = formatWindow(metrics)
	}
	return report
}

func formatAllocation(a *Allocation) *Allocation {
	res := &Allocation{
		Sectors: make([]*Slice, len(a.Sectors)),
		Regions: make([]*Slice, len(a.Regions)),
	}
	for idx, s := range a.Sectors {
		res.Sectors[idx] = &Slice{Name: s.Name, Value: round(s.Value, 2)}
	}
	for idx, s := range a.Regions {
		res.Regions[idx] = &Slice{Name: s.Name, Value: round(s.Value, 2)}
	}
	return res
}

// FormatFactors returns a copy of a factor result rounded for display. Exposures and
// differences are rounded to 2 decimals.
func FormatFactors(res *factor.Result) *factor.Result {
	if res == nil {
		return nil
	}

	roundPtr := func(x *float64) *float64 {
		if x == nil {
			return nil
		}
		val := num(*x)
		return &val
	}

	group := func(items []*factor.FactorExposure) []*factor.FactorExposure {
		out := make([]*factor.FactorExposure, len(items))
		for idx, item := range items {
			out[idx] = &factor.FactorExposure{
				Name:       item.Name,
				Category:   item.Category,
				Exposure:   num(item.Exposure),
				Benchmark:  roundPtr(item.Benchmark),
				Difference: roundPtr(item.Difference),
			}
		}
		return out
	}

	out := &factor.Result{
		Exposures:          res.Exposures,
		StyleFactors:       group(res.StyleFactors),
		IndustryFactors:    group(res.IndustryFactors),
		CountryFactors:     group(res.CountryFactors),
		OtherFactors:       group(res.OtherFactors),
		Skipped:            res.Skipped,
		HasCorrelationData: res.HasCorrelationData,
	}

	if res.TotalRisk != nil {
		total := round(*res.TotalRisk, 6)
		out.TotalRisk = &total
	}

	for _, item := range res.RiskContributions {
		out.RiskContributions = append(out.RiskContributions, &factor.RiskContribution{
			Name:         item.Name,
			Marginal:     round(item.Marginal, 6),
			Contribution: round(item.Contribution, 2),
		})
	}

	for _, item := range res.Correlations {
		out.Correlations = append(out.Correlations, &factor.Correlation{
			Factor1: item.Factor1,
			Factor2: item.Factor2,
			Value:   num(item.Value),
		})
	}

	return out
}

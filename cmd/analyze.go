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
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-analytics/analytics"
	"github.com/penny-vault/pv-analytics/common"
	"github.com/penny-vault/pv-analytics/factor"
	"github.com/penny-vault/pv-analytics/portfolio"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var outputFormat string

func init() {
	analyzeCmd.Flags().StringVarP(&outputFormat, "format", "f", formatTable, "Output format: table or json")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <portfolio file>",
	Short: "Analyze the performance and risk of a portfolio",
	Long: `Compute performance statistics, risk metrics, benchmark comparison, allocation and factor
exposure of the portfolio described in a .toml or .json file.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := loadPortfolio(cmd, args[0])

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		engine, _ := newEngine(ctx)
		res, err := engine.Analyze(ctx, p)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("portfolio analysis failed")
		}

		switch outputFormat {
		case formatJSON:
			writeJSON(os.Stdout, res)
		default:
			writeAnalysis(os.Stdout, res)
		}
	},
}

// loadPortfolio reads the portfolio file; an explicit --benchmark flag overrides the file's benchmark
func loadPortfolio(cmd *cobra.Command, fn string) *portfolio.Portfolio {
	p, err := portfolio.LoadFile(fn)
	if err != nil {
		log.Fatal().Err(err).Str("FileName", fn).Msg("could not load portfolio")
	}

	if flag := cmd.Flags().Lookup("benchmark"); flag != nil && flag.Changed {
		p.Benchmark = common.NormalizeSymbol(flag.Value.String())
	}

	return p
}

func writeJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("could not encode result")
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}

func fmtPtr(x *float64) string {
	if x == nil {
		return "-"
	}
	return fmtFloat(*x)
}

func writeAnalysis(w io.Writer, res *analytics.Analysis) {
	fmt.Fprintf(w, "Analysis %s (%s data, benchmark %s)\n", res.ID, res.Source, res.Benchmark)
	if len(res.Excluded) > 0 {
		excluded := make([]string, len(res.Excluded))
		for idx, ex := range res.Excluded {
			excluded[idx] = fmt.Sprintf("%s (%s)", ex.Symbol, ex.Reason)
		}
		fmt.Fprintf(w, "Excluded: %s\n", strings.Join(excluded, ", "))
	}

	perf := res.Performance
	fmt.Fprintf(w, "\nPerformance %s to %s (%d observations)\n", perf.Start, perf.End, perf.Observations)
	table := newTable(w, "Metric", "Value")
	table.Append([]string{"Total Return %", fmtFloat(perf.TotalReturn)})
	table.Append([]string{"Annualized Return %", fmtFloat(perf.AnnualizedReturn)})
	table.Append([]string{"Volatility %", fmtFloat(perf.Volatility)})
	table.Append([]string{"Sharpe Ratio", fmtFloat(perf.SharpeRatio)})
	table.Append([]string{"Max Drawdown %", fmtFloat(perf.MaxDrawdown)})
	table.Append([]string{"Win Rate %", fmtPtr(perf.WinRate)})
	table.Append([]string{"Inception Return %", fmtFloat(perf.InceptionReturn)})
	table.Render()

	fmt.Fprintln(w, "\nRisk")
	table = newTable(w, "Metric", "Value", "Benchmark", "Status")
	for _, metric := range res.Risk.Metrics {
		table.Append([]string{metric.Name, fmtFloat(metric.Value), fmtPtr(metric.Benchmark), metric.Status})
	}
	table.Render()

	fmt.Fprintln(w, "\nRisk Contribution")
	table = newTable(w, "Symbol", "Weight %", "Contribution %")
	for _, item := range res.Risk.Contributions {
		table.Append([]string{item.Symbol, fmtFloat(item.Weight), fmtFloat(item.Contribution)})
	}
	table.Render()

	fmt.Fprintln(w, "\nRisk Periods")
	table = newTable(w, "Period", "Observations", "Volatility %", "VaR %", "Beta", "Tracking Error %")
	for _, period := range res.Risk.Periods {
		table.Append([]string{period.Period, strconv.Itoa(period.Observations), fmtFloat(period.Volatility),
			fmtFloat(period.ValueAtRisk), fmtFloat(period.Beta), fmtFloat(period.TrackingError)})
	}
	table.Render()

	if res.Comparison != nil {
		writeComparison(w, res.Comparison)
	}

	fmt.Fprintln(w, "\nAllocation")
	table = newTable(w, "Group", "Name", "Weight %")
	for _, slice := range res.Allocation.Sectors {
		table.Append([]string{"Sector", slice.Name, fmtFloat(slice.Value)})
	}
	for _, slice := range res.Allocation.Regions {
		table.Append([]string{"Region", slice.Name, fmtFloat(slice.Value)})
	}
	table.Render()

	if res.Factors != nil {
		writeFactors(w, res.Factors)
	}
}

func writeComparison(w io.Writer, cmp *analytics.ComparisonReport) {
	fmt.Fprintf(w, "\nComparison vs %s\n", cmp.Benchmark)
	table := newTable(w, "Window", "Portfolio %", "Benchmark %", "Difference %", "Ann. Portfolio %", "Ann. Benchmark %", "Beta", "Correlation")

	row := func(name string, win *analytics.WindowReport) {
		if win == nil || win.TotalReturn == nil {
			table.Append([]string{name, "-", "-", "-", "-", "-", "-", "-"})
			return
		}
		annPort, annBench := "-", "-"
		if win.AnnualizedReturn != nil {
			annPort = fmtFloat(win.AnnualizedReturn.Portfolio)
			annBench = fmtFloat(win.AnnualizedReturn.Benchmark)
		}
		table.Append([]string{name, fmtFloat(win.TotalReturn.Portfolio), fmtFloat(win.TotalReturn.Benchmark),
			fmtFloat(win.TotalReturn.Difference), annPort, annBench, fmtFloat(win.Beta), fmtFloat(win.Correlation)})
	}

	row("Overall", cmp.Overall)
	for _, window := range analytics.Windows {
		row(string(window), cmp.Windows[string(window)])
	}
	table.Render()
}

func writeFactors(w io.Writer, res *factor.Result) {
	fmt.Fprintln(w, "\nFactor Exposure")
	table := newTable(w, "Category", "Factor", "Exposure", "Benchmark", "Difference")
	for _, category := range factor.Categories {
		for _, item := range res.Group(category) {
			table.Append([]string{string(category), item.Name, fmtFloat(item.Exposure), fmtPtr(item.Benchmark), fmtPtr(item.Difference)})
		}
	}
	table.Render()

	if len(res.Skipped) > 0 {
		fmt.Fprintf(w, "No loadings: %s\n", strings.Join(res.Skipped, ", "))
	}

	if res.TotalRisk != nil {
		fmt.Fprintf(w, "\nFactor Risk (total variance %s)\n", strconv.FormatFloat(*res.TotalRisk, 'f', 6, 64))
		table = newTable(w, "Factor", "Marginal", "Contribution %")
		for _, item := range res.RiskContributions {
			table.Append([]string{item.Name, strconv.FormatFloat(item.Marginal, 'f', 6, 64), fmtFloat(item.Contribution)})
		}
		table.Render()
	}
}

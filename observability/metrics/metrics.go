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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// label values
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultOk       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	AnalysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvanalytics_analysis_total",
		Help: "Number of portfolio analyses computed, by data source",
	}, []string{"source"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pvanalytics_analysis_duration_seconds",
		Help:    "Time spent computing a portfolio analysis",
		Buckets: prometheus.DefBuckets,
	})

	ExcludedInstruments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pvanalytics_excluded_instruments_total",
		Help: "Number of instruments excluded from an analysis because no price history was available",
	})

	ProviderFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvanalytics_provider_fetch_total",
		Help: "Price provider requests by provider and result",
	}, []string{"provider", "result"})

	CacheLookupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvanalytics_cache_lookup_total",
		Help: "Series cache lookups by cache and result",
	}, []string{"cache", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvanalytics_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "path", "status"})
)

// RecordAnalysis records a completed analysis
func RecordAnalysis(source string, seconds float64) {
	AnalysisTotal.WithLabelValues(source).Inc()
	AnalysisDuration.Observe(seconds)
}

// RecordProviderFetch records the outcome of one provider request
func RecordProviderFetch(provider, result string) {
	ProviderFetchTotal.WithLabelValues(provider, result).Inc()
}

// RecordCacheLookup records a series cache hit or miss
func RecordCacheLookup(cache string, hit bool) {
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	CacheLookupTotal.WithLabelValues(cache, result).Inc()
}

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
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/penny-vault/pv-analytics/dataframe"
	"github.com/penny-vault/pv-analytics/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tiingoAPI = "https://api.tiingo.com"

// Tiingo downloads end-of-day prices from the tiingo REST API in CSV format. Requests are
// wrapped in a circuit breaker so a failing API is skipped quickly instead of delaying every
// analysis by the request timeout.
type Tiingo struct {
	apikey  string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewTiingo Create a new Tiingo data provider
func NewTiingo(key string) *Tiingo {
	baseURL := viper.GetString("tiingo.url")
	if baseURL == "" {
		baseURL = tiingoAPI
	}

	timeout := viper.GetDuration("data.fetch_timeout")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Tiingo{
		apikey:  key,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "tiingo",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				// an unknown symbol says nothing about the health of the API
				return err == nil || errors.Is(err, ErrNotFound)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warn().Str("Breaker", name).Str("From", from.String()).Str("To", to.String()).Msg("circuit breaker changed state")
			},
		}),
	}
}

func (t *Tiingo) Name() string {
	return "tiingo"
}

// Prices returns the daily adjusted close of symbol between begin and end
func (t *Tiingo) Prices(ctx context.Context, symbol string, begin, end time.Time) (*dataframe.DataFrame[time.Time], error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "tiingo.Prices")
	defer span.End()

	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	if end.Before(begin) {
		return nil, ErrInvalidTimeRange
	}

	span.SetAttributes(
		attribute.String("Url", fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s&endDate=%s&format=csv&resampleFreq=daily", t.baseURL, symbol, begin.Format("2006-01-02"), end.Format("2006-01-02"))),
		attribute.String("Symbol", symbol),
	)

	body, err := t.breaker.Execute(func() (interface{}, error) {
		return t.download(ctx, symbol, begin, end)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		span.SetStatus(codes.Error, "circuit breaker open")
		subLog.Warn().Err(err).Msg("skipping tiingo request")
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, err)
	}

	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "tiingo request failed")
		}
		return nil, err
	}

	df, err := parsePriceCSV(ctx, symbol, body.([]byte))
	if err != nil {
		span.RecordError(err)
		msg := "could not parse tiingo csv"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}

	if df.Len() == 0 {
		return nil, ErrNotFound
	}

	return df, nil
}

func (t *Tiingo) download(ctx context.Context, symbol string, begin, end time.Time) ([]byte, error) {
	subLog := log.With().Str("Symbol", symbol).Logger()

	url := fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s&endDate=%s&format=csv&resampleFreq=daily&token=%s", t.baseURL, symbol, begin.Format("2006-01-02"), end.Format("2006-01-02"), t.apikey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		subLog.Warn().Err(err).Msg("failed to load eod prices")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		subLog.Warn().Err(err).Int("HTTPResponseStatusCode", resp.StatusCode).Msg("read eod price body failed")
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode >= 400 {
		subLog.Warn().Int("HTTPResponseStatusCode", resp.StatusCode).Bytes("Body", body).Msg("tiingo request failed")
		return nil, fmt.Errorf("HTTP request returned invalid status code: %d", resp.StatusCode)
	}

	return body, nil
}

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
	"time"

	"github.com/penny-vault/pv-analytics/data/database"
	"github.com/penny-vault/pv-analytics/dataframe"
	"github.com/penny-vault/pv-analytics/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PvDb reads adjusted closing prices from the eod table of the penny vault database
type PvDb struct {
}

// NewPvDb Create a new PVDB data provider
func NewPvDb() *PvDb {
	return &PvDb{}
}

func (p *PvDb) Name() string {
	return "pvdb"
}

// Prices returns the adjusted close of symbol for every trading day in [begin, end]
func (p *PvDb) Prices(ctx context.Context, symbol string, begin, end time.Time) (*dataframe.DataFrame[time.Time], error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.Prices")
	defer span.End()

	span.SetAttributes(attribute.String("Symbol", symbol))

	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	if end.Before(begin) {
		subLog.Warn().Stack().Msg("end before begin in call to Prices")
		return nil, ErrInvalidTimeRange
	}

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not begin transaction")
		subLog.Error().Stack().Err(err).Msg("could not get transaction when querying eod prices")
		return nil, err
	}

	rows, err := trx.Query(ctx, "SELECT event_date, adj_close FROM eod WHERE ticker=$1 AND event_date BETWEEN $2 AND $3 ORDER BY event_date", symbol, begin, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		subLog.Error().Stack().Err(err).Msg("could not query eod prices")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	points := make([]pricePoint, 0, 252)
	for rows.Next() {
		var dt time.Time
		var adjClose float64
		if err = rows.Scan(&dt, &adjClose); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not SCAN DB result")
			rows.Close()
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		points = append(points, pricePoint{date: dt, price: adjClose})
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reading rows failed")
		subLog.Error().Stack().Err(err).Msg("eod query read failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	if len(points) == 0 {
		subLog.Debug().Msg("no eod prices found")
		return nil, ErrNotFound
	}

	return newPriceFrame(symbol, points), nil
}

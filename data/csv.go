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
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/penny-vault/pv-analytics/common"
	"github.com/penny-vault/pv-analytics/dataframe"
	dfgo "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/rs/zerolog/log"
)

// priceColumns lists the accepted price column names in order of preference
var priceColumns = []string{"adjClose", "adj_close", "close"}

// CSVDir reads prices from <dir>/<SYMBOL>.csv. Each file has a `date` column (YYYY-MM-DD) and
// one of the columns adjClose, adj_close or close.
type CSVDir struct {
	dir string
}

// NewCSVDir Create a new CSV directory data provider
func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{dir: dir}
}

func (c *CSVDir) Name() string {
	return "csv"
}

func (c *CSVDir) Prices(ctx context.Context, symbol string, begin, end time.Time) (*dataframe.DataFrame[time.Time], error) {
	subLog := log.With().Str("Symbol", symbol).Str("Dir", c.dir).Logger()

	if end.Before(begin) {
		return nil, ErrInvalidTimeRange
	}

	fn := filepath.Join(c.dir, fmt.Sprintf("%s.csv", symbol))
	raw, err := os.ReadFile(fn)
	if errors.Is(err, os.ErrNotExist) {
		subLog.Debug().Str("FileName", fn).Msg("no price file for symbol")
		return nil, ErrNotFound
	}
	if err != nil {
		subLog.Error().Err(err).Str("FileName", fn).Msg("could not read price file")
		return nil, err
	}

	df, err := parsePriceCSV(ctx, symbol, raw)
	if err != nil {
		subLog.Error().Err(err).Str("FileName", fn).Msg("could not parse price file")
		return nil, err
	}

	df = df.Trim(StartOfDay(begin), MarketClose(end))
	if df.Len() == 0 {
		return nil, ErrNotFound
	}

	return df, nil
}

// parsePriceCSV converts a CSV document with a date column and a price column into a single
// column price frame named symbol
func parsePriceCSV(ctx context.Context, symbol string, raw []byte) (*dataframe.DataFrame[time.Time], error) {
	tz := common.GetTimezone()

	floatConverter := imports.Converter{
		ConcreteType: float64(0),
		ConverterFunc: func(in interface{}) (interface{}, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(in.(string)), 64)
			if err != nil {
				return math.NaN(), nil
			}
			return v, nil
		},
	}

	dictate := map[string]interface{}{
		"date": imports.Converter{
			ConcreteType: time.Time{},
			ConverterFunc: func(in interface{}) (interface{}, error) {
				dtStr := strings.TrimSpace(in.(string))
				if len(dtStr) > 10 {
					dtStr = dtStr[:10]
				}
				dt, err := time.ParseInLocation("2006-01-02", dtStr, tz)
				if err != nil {
					return nil, err
				}
				return dt.Add(time.Hour * 16), nil
			},
		},
	}
	for _, col := range priceColumns {
		dictate[col] = floatConverter
	}

	res, err := imports.LoadFromCSV(ctx, bytes.NewReader(raw), imports.CSVLoadOptions{
		TrimLeadingSpace: true,
		DictateDataType:  dictate,
	})
	if errors.Is(err, dfgo.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	timeSeriesIdx, err := res.NameToColumn("date")
	if err != nil {
		return nil, fmt.Errorf("%w: date", ErrMissingColumn)
	}

	valueSeriesIdx := -1
	for _, col := range priceColumns {
		if idx, err := res.NameToColumn(col); err == nil {
			valueSeriesIdx = idx
			break
		}
	}
	if valueSeriesIdx == -1 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(priceColumns, "|"))
	}

	nrows := res.NRows()
	points := make([]pricePoint, 0, nrows)
	for row := 0; row < nrows; row++ {
		dt, ok := res.Series[timeSeriesIdx].Value(row).(time.Time)
		if !ok {
			continue
		}
		price, ok := res.Series[valueSeriesIdx].Value(row).(float64)
		if !ok {
			continue
		}
		points = append(points, pricePoint{date: dt, price: price})
	}

	return newPriceFrame(symbol, points), nil
}

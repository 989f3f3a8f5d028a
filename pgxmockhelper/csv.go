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

package pgxmockhelper

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/pashagolub/pgxmock"
	"github.com/rs/zerolog/log"
)

// CSVRows holds a CSV fixture converted to typed values so it can be replayed as database rows
type CSVRows struct {
	rows    [][]any
	header  []string
	dateCol int
}

// NewCSVRows reads csvFn. typeMap assigns a type ("date" or "float64") to columns; all other
// columns are passed through as strings.
func NewCSVRows(csvFn string, typeMap map[string]string) *CSVRows {
	subLog := log.With().Str("CsvFn", csvFn).Logger()

	rows := &CSVRows{
		dateCol: -1,
		rows:    make([][]any, 0),
	}
	rawData, err := os.ReadFile(csvFn)
	if err != nil {
		subLog.Panic().Err(err).Msg("could not read file")
	}

	lines := strings.Split(strings.TrimRight(string(rawData), "\n"), "\n")
	if len(lines) < 1 || lines[0] == "" {
		subLog.Panic().Int("NumLines", len(lines)).Msg("input file is missing a header")
	}

	rows.header = strings.Split(strings.TrimSpace(lines[0]), ",")
	for _, ll := range lines[1:] {
		ll = strings.TrimSpace(ll)
		if ll == "" {
			continue
		}

		cols := make([]any, len(rows.header))
		for idx, val := range strings.Split(ll, ",") {
			colName := rows.header[idx]
			switch typeMap[colName] {
			case "date":
				parsed, err := time.Parse("2006-01-02", val)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to datetime of format 2006-01-02")
				}
				cols[idx] = parsed
				rows.dateCol = idx
			case "float64":
				parsed, err := strconv.ParseFloat(val, 64)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to float64")
				}
				cols[idx] = parsed
			default:
				cols[idx] = val
			}
		}
		rows.rows = append(rows.rows, cols)
	}

	return rows
}

// Between keeps rows whose date column falls within [a, b] by calendar day
func (csvRows *CSVRows) Between(a time.Time, b time.Time) *CSVRows {
	if len(csvRows.rows) == 0 {
		return csvRows
	}
	if csvRows.dateCol == -1 {
		log.Panic().Time("a", a).Time("b", b).Msg("no date column found")
	}

	first := a.Format("2006-01-02")
	last := b.Format("2006-01-02")
	newRows := make([][]any, 0, len(csvRows.rows))
	for _, row := range csvRows.rows {
		day := row[csvRows.dateCol].(time.Time).Format("2006-01-02")
		if day >= first && day <= last {
			newRows = append(newRows, row)
		}
	}
	csvRows.rows = newRows
	return csvRows
}

// Len returns the number of rows
func (csvRows *CSVRows) Len() int {
	return len(csvRows.rows)
}

func (csvRows *CSVRows) Rows() *pgxmock.Rows {
	r := pgxmock.NewRows(csvRows.header)
	for _, row := range csvRows.rows {
		r.AddRow(row...)
	}
	return r
}

// MockReadOnlyTrx expects the statements issued when a read-only transaction is opened
func MockReadOnlyTrx(db pgxmock.PgxConnIface) {
	db.ExpectBegin()
	db.ExpectExec("SET TRANSACTION READ ONLY").WillReturnResult(pgconn.CommandTag("SET"))
}

// MockDBEodQuery expects one adjusted close query answered from the fixture fn
func MockDBEodQuery(db pgxmock.PgxConnIface, fn string, begin, end time.Time) {
	MockReadOnlyTrx(db)
	db.ExpectQuery("SELECT event_date, adj_close FROM eod").WillReturnRows(
		NewCSVRows(fn, map[string]string{
			"event_date": "date",
			"adj_close":  "float64",
		}).Between(begin, end).Rows())
	db.ExpectCommit()
}

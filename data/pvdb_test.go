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

package data_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"
	"github.com/penny-vault/pv-analytics/data"
	"github.com/penny-vault/pv-analytics/data/database"
	"github.com/penny-vault/pv-analytics/pgxmockhelper"
)

var _ = Describe("PVDB tests", func() {
	var (
		dbPool pgxmock.PgxConnIface
		pvdb   *data.PvDb
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)
		pvdb = data.NewPvDb()
		ctx = context.Background()
	})

	Context("when interacting with pvdb", func() {
		It("fetches adjusted close prices", func() {
			begin := time.Date(2021, 1, 4, 0, 0, 0, 0, tz())
			end := time.Date(2021, 1, 8, 0, 0, 0, 0, tz())
			pgxmockhelper.MockDBEodQuery(dbPool, "testdata/eod_vti.csv", begin, end)

			df, err := pvdb.Prices(ctx, "VTI", begin, end)
			Expect(err).To(BeNil())
			Expect(df.ColNames).To(Equal([]string{"VTI"}))
			Expect(df.Len()).To(Equal(5))
			Expect(df.Index[0]).To(Equal(time.Date(2021, 1, 4, 16, 0, 0, 0, tz())))
			Expect(df.Vals[0]).To(Equal([]float64{190.25, 191.93, 193.78, 196.62, 197.76}))

			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
			Expect(database.OpenTransactionCount()).To(Equal(0))
		})

		It("returns not found when no rows match", func() {
			begin := time.Date(2021, 1, 1, 0, 0, 0, 0, tz())
			end := time.Date(2021, 1, 3, 0, 0, 0, 0, tz())
			pgxmockhelper.MockDBEodQuery(dbPool, "testdata/eod_vti.csv", begin, end)

			_, err := pvdb.Prices(ctx, "VTI", begin, end)
			Expect(err).To(MatchError(data.ErrNotFound))
		})

		It("rolls back when the query fails", func() {
			queryErr := errors.New("relation eod does not exist")
			pgxmockhelper.MockReadOnlyTrx(dbPool)
			dbPool.ExpectQuery("SELECT event_date, adj_close FROM eod").WillReturnError(queryErr)
			dbPool.ExpectRollback()

			_, err := pvdb.Prices(ctx, "VTI", time.Date(2021, 1, 4, 0, 0, 0, 0, tz()), time.Date(2021, 1, 8, 0, 0, 0, 0, tz()))
			Expect(err).To(MatchError(queryErr))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
			Expect(database.OpenTransactionCount()).To(Equal(0))
		})

		It("rejects an inverted range without touching the database", func() {
			_, err := pvdb.Prices(ctx, "VTI", time.Date(2021, 1, 8, 0, 0, 0, 0, tz()), time.Date(2021, 1, 4, 0, 0, 0, 0, tz()))
			Expect(err).To(MatchError(data.ErrInvalidTimeRange))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})
})

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

package database

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// PgxIface is the subset of a pgx pool used by the price provider; satisfied by *pgxpool.Pool and pgxmock
type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
}

var (
	ErrNoPool = errors.New("database pool has not been configured")
)

var (
	pool             PgxIface
	openTransactions = make(map[string]string)
	openTrxLock      sync.Mutex
)

// SetPool replaces the pool used by Trx
func SetPool(myPool PgxIface) {
	openTrxLock.Lock()
	openTransactions = make(map[string]string)
	openTrxLock.Unlock()
	pool = myPool
}

// Connect opens a pool against database.url and verifies the server is reachable
func Connect(ctx context.Context) error {
	myPool, err := pgxpool.Connect(ctx, viper.GetString("database.url"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return err
	}
	if err = myPool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		return err
	}
	SetPool(myPool)
	return nil
}

// Configured returns true once a pool has been set
func Configured() bool {
	return pool != nil
}

// LogOpenTransactions writes an INFO log for each open transaction
func LogOpenTransactions() {
	openTrxLock.Lock()
	defer openTrxLock.Unlock()
	for k, v := range openTransactions {
		log.Info().Str("TrxId", k).Str("Caller", v).Msg("open transaction")
	}
}

// OpenTransactionCount returns the number of transactions that have not been committed or rolled back
func OpenTransactionCount() int {
	openTrxLock.Lock()
	defer openTrxLock.Unlock()
	return len(openTransactions)
}

// Trx begins a read-only transaction. Price data is never written by this service so every
// transaction is marked read only before it is handed to the caller.
func Trx(ctx context.Context) (pgx.Tx, error) {
	if pool == nil {
		return nil, ErrNoPool
	}

	trx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	_, file, lineno, ok := runtime.Caller(1)
	caller := fmt.Sprintf("[%v] %s:%d", ok, file, lineno)
	trxID := uuid.New().String()

	openTrxLock.Lock()
	openTransactions[trxID] = caller
	openTrxLock.Unlock()

	wrappedTrx := &TrackedTx{
		id: trxID,
		tx: trx,
	}

	if _, err = wrappedTrx.Exec(ctx, "SET TRANSACTION READ ONLY"); err != nil {
		log.Error().Stack().Err(err).Msg("could not mark transaction read only")
		if err := wrappedTrx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	return wrappedTrx, nil
}

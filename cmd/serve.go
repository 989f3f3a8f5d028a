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
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-analytics/common"
	"github.com/penny-vault/pv-analytics/data"
	"github.com/penny-vault/pv-analytics/data/database"
	"github.com/penny-vault/pv-analytics/middleware"
	"github.com/penny-vault/pv-analytics/observability/metrics"
	"github.com/penny-vault/pv-analytics/observability/opentelemetry"
	"github.com/penny-vault/pv-analytics/router"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	viper.BindEnv("server.metrics_port", "PVA_METRICS_PORT")
	serveCmd.Flags().Int("metrics-port", 9090, "Port to expose prometheus metrics on; 0 disables the listener")
	viper.BindPFlag("server.metrics_port", serveCmd.Flags().Lookup("metrics-port"))

	viper.BindEnv("server.cors_origins", "PVA_CORS_ORIGINS")
	serveCmd.Flags().String("cors-origins", "*", "Comma separated list of origins allowed to call the API")
	viper.BindPFlag("server.cors_origins", serveCmd.Flags().Lookup("cors-origins"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pv-analytics server",
	Long:  `Run HTTP server that computes portfolio analytics on request`,
	Run: func(cmd *cobra.Command, args []string) {
		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create profile output file")
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				log.Fatal().Err(err).Msg("could not start cpu profile")
			}
			defer pprof.StopCPUProfile()
		}

		ctx := context.Background()

		shutdownTracing, err := opentelemetry.Setup()
		if err != nil {
			log.Fatal().Err(err).Msg("could not setup opentelemetry")
		}

		engine, manager := newEngine(ctx)

		// Create new Fiber instance
		app := fiber.New(fiber.Config{
			AppName:     common.ProgramName,
			JSONEncoder: json.Marshal,
		})

		// Configure CORS
		app.Use(cors.New(cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD",
		}))

		// Setup logging middleware
		app.Use(middleware.NewLogger())

		// Setup routes
		router.SetupRoutes(app, engine)

		var metricsServer *metrics.Server
		if port := viper.GetInt("server.metrics_port"); port > 0 {
			metricsServer = metrics.NewServer(port)
			metricsServer.Start()
		}

		// Keep cached benchmark series current
		scheduler := gocron.NewScheduler(common.GetTimezone())
		if _, err := scheduler.Every(1).Hours().Do(refreshBenchmarks, manager); err != nil {
			log.Fatal().Err(err).Msg("could not schedule benchmark refresh")
		}
		scheduler.StartAsync()

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			scheduler.Stop()
			if err := app.Shutdown(); err != nil {
				log.Error().Err(err).Msg("could not shutdown http server")
			}
		}()

		// Start server
		err = app.Listen(fmt.Sprintf(":%d", viper.GetInt("server.port")))
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}

		if database.Configured() {
			database.LogOpenTransactions()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("could not shutdown metrics server")
			}
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("could not flush traces")
		}
	},
}

func refreshBenchmarks(manager *data.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	count, err := manager.RefreshBenchmarks(ctx)
	if err != nil {
		log.Error().Err(err).Msg("benchmark refresh failed")
		return
	}
	log.Info().Int("NumRefreshed", count).Msg("refreshed benchmark series")
}

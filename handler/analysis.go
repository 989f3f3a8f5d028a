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

package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/penny-vault/pv-analytics/analytics"
	"github.com/penny-vault/pv-analytics/common"
	"github.com/penny-vault/pv-analytics/observability/opentelemetry"
	"github.com/penny-vault/pv-analytics/portfolio"
)

type PingResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"API is alive"`
	Version string `json:"version" example:"0.3.0-dev"`
	Time    string `json:"time" example:"2021-06-19T08:09:10.115924-05:00"`
}

// Ping reports that the server is alive
func Ping(c *fiber.Ctx) error {
	return c.JSON(PingResponse{
		Status:  "success",
		Message: "API is alive",
		Version: common.CurrentVersion.String(),
		Time:    time.Now().Format(time.RFC3339Nano),
	})
}

// Analytics serves portfolio analysis requests from a shared engine
type Analytics struct {
	engine *analytics.Engine
}

func NewAnalytics(engine *analytics.Engine) *Analytics {
	return &Analytics{engine: engine}
}

// Analyze computes the full analysis of the portfolio in the request body. The optional
// `benchmark` query parameter overrides the benchmark named in the body.
func (h *Analytics) Analyze(c *fiber.Ctx) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), "handler.Analyze",
		trace.WithAttributes(opentelemetry.SpanAttributesFromFiber(c)...))
	defer span.End()

	p, err := parsePortfolio(c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad portfolio")
		return err
	}

	res, err := h.engine.Analyze(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		if errors.Is(err, portfolio.ErrInvalidPortfolio) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		log.Error().Stack().Err(err).Str("PortfolioName", p.Name).Msg("portfolio analysis failed")
		return fiber.ErrInternalServerError
	}

	span.SetAttributes(attribute.String("Source", res.Source), attribute.Int("NumExcluded", len(res.Excluded)))
	return c.JSON(res)
}

// Factors computes only the factor exposure of the portfolio in the request body
func (h *Analytics) Factors(c *fiber.Ctx) error {
	p, err := parsePortfolio(c)
	if err != nil {
		return err
	}

	benchmark := p.Benchmark
	if benchmark == "" {
		benchmark = h.engine.Config().Benchmark
	}

	res := h.engine.Factors(p.Normalized(), benchmark)
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "no factor loadings available for portfolio")
	}

	return c.JSON(analytics.FormatFactors(res))
}

func parsePortfolio(c *fiber.Ctx) (*portfolio.Portfolio, error) {
	p, err := portfolio.Parse(c.Body(), portfolio.FormatJSON)
	if err != nil {
		log.Warn().Err(err).Msg("bad portfolio in request")
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if benchmark := c.Query("benchmark"); benchmark != "" {
		p.Benchmark = common.NormalizeSymbol(benchmark)
	}

	return p, nil
}

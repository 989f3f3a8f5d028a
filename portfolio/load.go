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

package portfolio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	FormatJSON = "json"
	FormatTOML = "toml"
)

// LoadFile reads a portfolio definition from a .toml or .json file
func LoadFile(fn string) (*Portfolio, error) {
	subLog := log.With().Str("FileName", fn).Logger()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(fn)), ".")
	if format != FormatJSON && format != FormatTOML {
		subLog.Error().Str("Format", format).Msg("unsupported portfolio file extension")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	raw, err := os.ReadFile(fn)
	if err != nil {
		subLog.Error().Err(err).Msg("could not read portfolio file")
		return nil, err
	}

	return Parse(raw, format)
}

// Parse decodes a portfolio definition in the given format, normalizes symbols and validates it
func Parse(raw []byte, format string) (*Portfolio, error) {
	p := &Portfolio{}

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(raw, p)
	case FormatTOML:
		err = toml.Unmarshal(raw, p)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err != nil {
		log.Error().Err(err).Str("Format", format).Msg("could not decode portfolio definition")
		return nil, fmt.Errorf("%w: %s", ErrInvalidPortfolio, err)
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

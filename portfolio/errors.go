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

import "errors"

var (
	ErrInvalidPortfolio  = errors.New("invalid portfolio")
	ErrNoInstruments     = errors.New("portfolio has no instruments")
	ErrEmptySymbol       = errors.New("instrument symbol is empty")
	ErrDuplicateSymbol   = errors.New("instrument symbol appears more than once")
	ErrInvalidWeight     = errors.New("instrument weight must be a finite, non-negative number")
	ErrZeroWeight        = errors.New("portfolio weights sum to zero")
	ErrUnsupportedFormat = errors.New("unsupported portfolio file format")
	ErrGenerateHash      = errors.New("could not generate fingerprint")
)

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

package factor

import "errors"

var (
	ErrAsymmetricCovariance = errors.New("covariance matrix is not symmetric")
	ErrEmptyCovariance      = errors.New("covariance matrix has no factors")
	ErrInvalidCovariance    = errors.New("covariance value is not a finite number")
	ErrUnsupportedFormat    = errors.New("unsupported factor table format")
)

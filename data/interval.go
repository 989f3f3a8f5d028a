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
	"time"

	"github.com/rs/zerolog"
)

// Interval is a closed date range [Begin, End]
type Interval struct {
	Begin time.Time
	End   time.Time
}

// NewInterval returns a validated interval
func NewInterval(begin, end time.Time) (*Interval, error) {
	interval := &Interval{Begin: begin, End: end}
	if err := interval.Valid(); err != nil {
		return nil, err
	}
	return interval, nil
}

// Contains returns true if interval completely contains other
func (interval *Interval) Contains(other *Interval) bool {
	return !other.Begin.Before(interval.Begin) && !other.End.After(interval.End)
}

// Overlaps returns true if interval and other share at least one instant
func (interval *Interval) Overlaps(other *Interval) bool {
	return !other.Begin.After(interval.End) && !other.End.Before(interval.Begin)
}

// Union returns the smallest interval covering both interval and other
func (interval *Interval) Union(other *Interval) *Interval {
	begin := interval.Begin
	if other.Begin.Before(begin) {
		begin = other.Begin
	}
	end := interval.End
	if other.End.After(end) {
		end = other.End
	}
	return &Interval{Begin: begin, End: end}
}

// CalendarDays returns the number of calendar days spanned by the interval
func (interval *Interval) CalendarDays() int {
	return int(interval.End.Sub(interval.Begin).Hours() / 24)
}

// Valid checks if the given interval is valid range and returns an error if not
func (interval *Interval) Valid() error {
	if interval.Begin.After(interval.End) {
		return ErrBeginAfterEnd
	}

	return nil
}

// MarshalZerologObject implement the log marshaller interface for zerolog
func (interval *Interval) MarshalZerologObject(e *zerolog.Event) {
	e.Time("Begin", interval.Begin).Time("End", interval.End)
}

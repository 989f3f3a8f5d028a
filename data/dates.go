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

	"github.com/penny-vault/pv-analytics/common"
)

// MarketClose returns the calendar date of t at 16:00 New York time, the timestamp used for all
// end-of-day observations
func MarketClose(t time.Time) time.Time {
	tz := common.GetTimezone()
	return time.Date(t.Year(), t.Month(), t.Day(), 16, 0, 0, 0, tz)
}

// StartOfDay returns midnight New York time of the calendar date of t
func StartOfDay(t time.Time) time.Time {
	tz := common.GetTimezone()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tz)
}

// IsBusinessDay returns true for Monday through Friday
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDays lists every weekday between begin and end (inclusive) at market close. Exchange
// holidays are not removed.
func BusinessDays(begin, end time.Time) []time.Time {
	days := make([]time.Time, 0, 262)
	if end.Before(begin) {
		return days
	}

	last := MarketClose(end)
	for dt := MarketClose(begin); !dt.After(last); dt = dt.AddDate(0, 0, 1) {
		if IsBusinessDay(dt) {
			days = append(days, dt)
		}
	}

	return days
}

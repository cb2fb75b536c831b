// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package catalogue

import (
	"fmt"
	"time"
)

// Well-known measurement names.
const (
	Evaporation   = "evaporation"
	Precipitation = "precipitation"
)

// dateLayout is the text representation of a Date
const dateLayout = time.DateOnly

// Date is a calendar day, stored as the number of days since the Unix epoch.
type Date int64

// Observation is one dated, named measurement of a station.
type Observation struct {
	StationID string  `json:"station_id"`
	Date      Date    `json:"date"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
}

// observationKey is the deduplication key of an Observation.
type observationKey struct {
	stationID string
	date      Date
	name      string
}

func (o Observation) key() observationKey {
	return observationKey{stationID: o.StationID, date: o.Date, name: o.Name}
}

// NewDate returns the calendar day of t. The day is taken in t's own location.
func NewDate(t time.Time) Date {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Date(day.Unix() / 86400)
}

// ParseDate parses a date in the YYYY-MM-DD notation.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse date %q: %w", value, err)
	}
	return NewDate(t), nil
}

// Time returns the day as UTC midnight.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// AddDays returns the date n days after d. n may be negative.
func (d Date) AddDays(n int) Date {
	return d + Date(n)
}

// String returns the date in the YYYY-MM-DD notation.
func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

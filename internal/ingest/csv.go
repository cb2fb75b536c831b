// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/wneessen/stationgrid/internal/catalogue"
	"github.com/wneessen/stationgrid/internal/geo"
)

// Separator is the field separator of the CSV sources
const Separator = ';'

// ErrMalformedRecord is returned if a CSV source contains a record that cannot be decoded.
var ErrMalformedRecord = errors.New("malformed CSV record")

type stationRecord struct {
	ID        string  `csv:"id"`
	Name      string  `csv:"name"`
	ShortName string  `csv:"short_name"`
	Lat       float64 `csv:"lat"`
	Lon       float64 `csv:"lon"`
}

type observationRecord struct {
	StationID string         `csv:"station_id"`
	Date      catalogue.Date `csv:"date"`
	Name      string         `csv:"name"`
	Value     float64        `csv:"value"`
}

// ReadStations decodes a station list with the header "id;name;short_name;lat;lon".
func ReadStations(r io.Reader) ([]catalogue.Station, error) {
	records, err := decodeAll[stationRecord](r)
	if err != nil {
		return nil, err
	}
	stations := make([]catalogue.Station, 0, len(records))
	for _, record := range records {
		stations = append(stations, catalogue.Station{
			ID:         record.ID,
			Name:       record.Name,
			ShortName:  record.ShortName,
			Coordinate: geo.NewCoordinate(record.Lat, record.Lon),
		})
	}
	return stations, nil
}

// ReadObservations decodes a station history with the header "station_id;date;name;value".
func ReadObservations(r io.Reader) ([]catalogue.Observation, error) {
	records, err := decodeAll[observationRecord](r)
	if err != nil {
		return nil, err
	}
	observations := make([]catalogue.Observation, 0, len(records))
	for _, record := range records {
		observations = append(observations, catalogue.Observation(record))
	}
	return observations, nil
}

func decodeAll[T any](r io.Reader) ([]T, error) {
	reader := csv.NewReader(r)
	reader.Comma = Separator
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	decoder, err := csvutil.NewDecoder(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var records []T
	for {
		var record T
		if err = decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: record %d: %w", ErrMalformedRecord, len(records)+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}

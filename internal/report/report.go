// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package report renders query and interpolation results as aligned text tables or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/Xuanwo/go-locale"
	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"golang.org/x/text/language"

	"github.com/wneessen/stationgrid/internal/catalogue"
	"github.com/wneessen/stationgrid/internal/geo"
	"github.com/wneessen/stationgrid/internal/grid"
	"github.com/wneessen/stationgrid/internal/ingest"
	"github.com/wneessen/stationgrid/internal/interpolate"
)

// Format selects the output representation of a Reporter.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Reporter writes reports to an io.Writer.
type Reporter struct {
	out       io.Writer
	format    Format
	humanizer *humanize.Humanizer
}

// New returns a Reporter writing to out. An empty loc detects the locale of the environment and
// falls back to English.
func New(out io.Writer, format Format, loc string) *Reporter {
	tag := language.Make(loc)
	if loc == "" {
		detected, err := locale.Detect()
		if err != nil {
			detected = language.English // Unable to detect locale, fallback to English
		}
		tag = detected
	}
	if format == "" {
		format = FormatText
	}
	collection := humanize.MustNew(humanize.WithLocale(de.New()))
	return &Reporter{
		out:       out,
		format:    format,
		humanizer: collection.CreateHumanizer(tag),
	}
}

// Neighbours reports the stations found around center.
func (r *Reporter) Neighbours(center geo.Coordinate, radiusKm float64, neighbours []catalogue.Neighbour) error {
	if r.format == FormatJSON {
		return r.json(struct {
			Center   geo.Coordinate        `json:"center"`
			Radius   float64               `json:"radius_km"`
			Stations []catalogue.Neighbour `json:"stations"`
		}{center, radiusKm, neighbours})
	}

	if _, err := fmt.Fprintf(r.out, "%d stations within %.1f km of %s\n\n", len(neighbours), radiusKm,
		center); err != nil {
		return err
	}
	tab := newTable("ID", "Name", "Short", "Coordinate", "Distance")
	tab.alignRight(4)
	for _, n := range neighbours {
		tab.add(n.Station.ID, n.Station.Name, n.Station.ShortName, n.Station.Coordinate.String(),
			formatFloat(n.Distance, 1)+" km")
	}
	return tab.write(r.out)
}

// History reports the observations of a station in date order.
func (r *Reporter) History(station catalogue.Station, name string, observations []catalogue.Observation) error {
	if r.format == FormatJSON {
		return r.json(struct {
			Station      catalogue.Station       `json:"station"`
			Name         string                  `json:"name"`
			Observations []catalogue.Observation `json:"observations"`
		}{station, name, observations})
	}

	if _, err := fmt.Fprintf(r.out, "%s history of %s (%s)\n\n", name, station.Name, station.ID); err != nil {
		return err
	}
	tab := newTable("Date", "Day", "Value")
	tab.alignRight(2)
	for _, obs := range observations {
		tab.add(obs.Date.String(), r.humanizer.FormatTime(obs.Date.Time(), humanize.DateFormat),
			formatFloat(obs.Value, 2))
	}
	return tab.write(r.out)
}

// Estimate reports an interpolated value together with the weights of the contributing stations.
func (r *Reporter) Estimate(point geo.Coordinate, name string, value float64,
	contributions []interpolate.Contribution,
) error {
	if r.format == FormatJSON {
		return r.json(struct {
			Point         geo.Coordinate             `json:"point"`
			Name          string                     `json:"name"`
			Value         float64                    `json:"value"`
			Contributions []interpolate.Contribution `json:"contributions"`
		}{point, name, value, contributions})
	}

	if _, err := fmt.Fprintf(r.out, "%s at %s: %s (%d stations)\n\n", name, point, formatFloat(value, 2),
		len(contributions)); err != nil {
		return err
	}
	tab := newTable("Station", "Distance", "Value", "Weight")
	tab.alignRight(1, 2, 3)
	for _, c := range contributions {
		tab.add(c.StationID, formatFloat(c.Distance, 1)+" km", formatFloat(c.Value, 2),
			formatFloat(c.Weight*100, 1)+" %")
	}
	return tab.write(r.out)
}

// Grid reports the samples of an interpolated grid. Samples without a value are shown as "-".
func (r *Reporter) Grid(name string, samples []grid.Sample) error {
	if r.format == FormatJSON {
		return r.json(struct {
			Name    string        `json:"name"`
			Samples []grid.Sample `json:"samples"`
		}{name, samples})
	}

	tab := newTable("Latitude", "Longitude", "Stations", name)
	tab.alignRight(0, 1, 2, 3)
	for _, s := range samples {
		value := "-"
		if s.OK {
			value = formatFloat(s.Value, 2)
		}
		tab.add(formatFloat(s.Coordinate.Lat, 4), formatFloat(s.Coordinate.Lon, 4), strconv.Itoa(s.Stations), value)
	}
	return tab.write(r.out)
}

// Import reports the summary of an import run.
func (r *Reporter) Import(result ingest.Result) error {
	if r.format == FormatJSON {
		return r.json(result)
	}
	tab := newTable("Stations", "Added", "Duplicates", "Rejected")
	tab.alignRight(0, 1, 2, 3)
	tab.add(strconv.Itoa(result.Stations), strconv.Itoa(result.Added), strconv.Itoa(result.Duplicates),
		strconv.Itoa(result.Rejected))
	return tab.write(r.out)
}

func (r *Reporter) json(v any) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

func formatFloat(val float64, precision int) string {
	return strconv.FormatFloat(val, 'f', precision, 64)
}

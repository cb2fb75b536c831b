// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package catalogue

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wneessen/stationgrid/internal/geo"
)

var (
	testStationA = Station{ID: "A", Name: "Station A", ShortName: "A", Coordinate: geo.Coordinate{Lat: 51.0, Lon: 6.0}}
	testStationB = Station{ID: "B", Name: "Station B", ShortName: "B", Coordinate: geo.Coordinate{Lat: 51.1, Lon: 6.1}}
	testStationC = Station{ID: "C", Name: "Berlin", ShortName: "BER", Coordinate: geo.Coordinate{Lat: 52.52, Lon: 13.405}}
)

// memPersister keeps the last saved snapshot in memory
type memPersister struct {
	mu      sync.Mutex
	snap    *Snapshot
	saveErr error
	loadErr error
	saves   int
}

func (p *memPersister) Load(context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	if p.snap == nil {
		return nil, ErrNoArtifact
	}
	return p.snap, nil
}

func (p *memPersister) Save(_ context.Context, snap *Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.snap = snap
	p.saves++
	return nil
}

func (p *memPersister) Location() string { return "memory" }

func testDate(t *testing.T, value string) Date {
	t.Helper()
	d, err := ParseDate(value)
	if err != nil {
		t.Fatalf("failed to parse test date: %s", err)
	}
	return d
}

func newTestCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	c := New(&memPersister{}, nil)
	for _, s := range []Station{testStationA, testStationB, testStationC} {
		if err := c.UpsertStation(s); err != nil {
			t.Fatalf("failed to upsert station: %s", err)
		}
	}
	return c
}

func TestCatalogue_UpsertStation(t *testing.T) {
	t.Run("upserting the same id twice keeps one entry with the latest attributes", func(t *testing.T) {
		c := newTestCatalogue(t)
		size := c.Size()
		updated := testStationA
		updated.Name = "Renamed"
		updated.Coordinate = geo.Coordinate{Lat: 50.5, Lon: 7.0}
		if err := c.UpsertStation(updated); err != nil {
			t.Fatalf("failed to upsert station: %s", err)
		}
		if c.Size() != size {
			t.Errorf("expected size to stay %d, got %d", size, c.Size())
		}
		got, ok := c.ByID("A")
		if !ok {
			t.Fatal("expected station A to exist")
		}
		if got != updated {
			t.Errorf("expected station to be %+v, got %+v", updated, got)
		}
		ids := c.IDs()
		if len(ids) != 3 || ids[0] != "A" || ids[1] != "B" || ids[2] != "C" {
			t.Errorf("expected catalogue order to be unchanged, got %v", ids)
		}
	})
	t.Run("invalid stations are rejected", func(t *testing.T) {
		c := New(nil, nil)
		tests := []struct {
			name    string
			station Station
		}{
			{"empty id", Station{Name: "no id"}},
			{"invalid coordinate", Station{ID: "X", Coordinate: geo.Coordinate{Lat: 91}}},
			{"NaN latitude", Station{ID: "X", Coordinate: geo.Coordinate{Lat: math.NaN(), Lon: 6}}},
			{"infinite latitude", Station{ID: "X", Coordinate: geo.Coordinate{Lat: math.Inf(1), Lon: 6}}},
			{"infinite longitude", Station{ID: "X", Coordinate: geo.Coordinate{Lat: 51, Lon: math.Inf(-1)}}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				err := c.UpsertStation(tc.station)
				if !errors.Is(err, ErrInvalidStation) {
					t.Errorf("expected error to be %s, got %v", ErrInvalidStation, err)
				}
			})
		}
		if c.Size() != 0 {
			t.Errorf("expected catalogue to be empty, got %d stations", c.Size())
		}
	})
}

func TestCatalogue_ByID(t *testing.T) {
	c := newTestCatalogue(t)
	t.Run("existing station is returned", func(t *testing.T) {
		got, ok := c.ByID("C")
		if !ok {
			t.Fatal("expected station C to exist")
		}
		if got != testStationC {
			t.Errorf("expected %+v, got %+v", testStationC, got)
		}
	})
	t.Run("missing station returns zero value", func(t *testing.T) {
		got, ok := c.ByID("missing")
		if ok {
			t.Error("expected missing station not to be found")
		}
		if got != (Station{}) {
			t.Errorf("expected zero station, got %+v", got)
		}
	})
}

func TestCatalogue_Stations(t *testing.T) {
	c := newTestCatalogue(t)
	stations := c.Stations()
	if len(stations) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(stations))
	}
	stations[0].Name = "modified"
	if got, _ := c.ByID("A"); got.Name != testStationA.Name {
		t.Error("expected returned stations to be a copy")
	}
}

func TestCatalogue_AddObservation(t *testing.T) {
	t.Run("duplicate observations are ignored", func(t *testing.T) {
		c := newTestCatalogue(t)
		obs := Observation{StationID: "A", Date: testDate(t, "2018-07-01"), Name: Evaporation, Value: 2.5}
		added, err := c.AddObservation(obs)
		if err != nil {
			t.Fatalf("failed to add observation: %s", err)
		}
		if !added {
			t.Fatal("expected first observation to be added")
		}
		dup := obs
		dup.Value = 9.9
		added, err = c.AddObservation(dup)
		if err != nil {
			t.Fatalf("failed to add duplicate observation: %s", err)
		}
		if added {
			t.Error("expected duplicate observation to be ignored")
		}
		history := c.ObservationsForStation("A", Evaporation)
		if len(history) != 1 {
			t.Fatalf("expected exactly one observation, got %d", len(history))
		}
		if history[0].Value != 2.5 {
			t.Errorf("expected first value to be kept, got %f", history[0].Value)
		}
	})
	t.Run("same date with different names are distinct", func(t *testing.T) {
		c := newTestCatalogue(t)
		date := testDate(t, "2018-07-01")
		for _, name := range []string{Evaporation, Precipitation} {
			added, err := c.AddObservation(Observation{StationID: "A", Date: date, Name: name, Value: 1})
			if err != nil || !added {
				t.Fatalf("expected %s observation to be added, got %t, %v", name, added, err)
			}
		}
		if c.ObservationCount() != 2 {
			t.Errorf("expected 2 observations, got %d", c.ObservationCount())
		}
	})
	t.Run("observation of unknown station fails", func(t *testing.T) {
		c := newTestCatalogue(t)
		_, err := c.AddObservation(Observation{StationID: "missing", Name: Evaporation})
		if !errors.Is(err, ErrStationNotFound) {
			t.Errorf("expected error to be %s, got %v", ErrStationNotFound, err)
		}
	})
	t.Run("observation without name fails", func(t *testing.T) {
		c := newTestCatalogue(t)
		_, err := c.AddObservation(Observation{StationID: "A"})
		if !errors.Is(err, ErrInvalidObservation) {
			t.Errorf("expected error to be %s, got %v", ErrInvalidObservation, err)
		}
	})
	t.Run("observation with non-finite value fails", func(t *testing.T) {
		c := newTestCatalogue(t)
		for _, value := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			obs := Observation{StationID: "A", Date: testDate(t, "2024-07-01"), Name: Evaporation, Value: value}
			added, err := c.AddObservation(obs)
			if !errors.Is(err, ErrInvalidObservation) {
				t.Errorf("value %v: expected error to be %s, got %v", value, ErrInvalidObservation, err)
			}
			if added {
				t.Errorf("value %v: expected observation not to be added", value)
			}
		}
		if c.ObservationCount() != 0 {
			t.Errorf("expected no observations, got %d", c.ObservationCount())
		}
		obs := Observation{StationID: "A", Date: testDate(t, "2024-07-01"), Name: Evaporation, Value: 3.4}
		if added, err := c.AddObservation(obs); err != nil || !added {
			t.Errorf("expected valid observation of the same day to be added, got %t, %v", added, err)
		}
	})
	t.Run("concurrent additions of the same key succeed exactly once", func(t *testing.T) {
		c := newTestCatalogue(t)
		obs := Observation{StationID: "B", Date: testDate(t, "2018-07-02"), Name: Evaporation, Value: 3}
		var wg sync.WaitGroup
		var count atomic.Int32
		for range 64 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				added, err := c.AddObservation(obs)
				if err != nil {
					t.Errorf("failed to add observation: %s", err)
				}
				if added {
					count.Add(1)
				}
			}()
		}
		wg.Wait()
		if count.Load() != 1 {
			t.Errorf("expected exactly one successful addition, got %d", count.Load())
		}
		if c.ObservationCount() != 1 {
			t.Errorf("expected one observation, got %d", c.ObservationCount())
		}
	})
}

func TestCatalogue_ObservationsForStation(t *testing.T) {
	c := newTestCatalogue(t)
	for _, d := range []string{"2018-07-03", "2018-07-01", "2018-07-02"} {
		if _, err := c.AddObservation(Observation{StationID: "A", Date: testDate(t, d), Name: Evaporation,
			Value: 1}); err != nil {
			t.Fatalf("failed to add observation: %s", err)
		}
	}
	if _, err := c.AddObservation(Observation{StationID: "A", Date: testDate(t, "2018-06-30"),
		Name: Precipitation, Value: 4}); err != nil {
		t.Fatalf("failed to add observation: %s", err)
	}

	t.Run("observations are ordered by date and filtered by name", func(t *testing.T) {
		history := c.ObservationsForStation("A", Evaporation)
		if len(history) != 3 {
			t.Fatalf("expected 3 observations, got %d", len(history))
		}
		want := []string{"2018-07-01", "2018-07-02", "2018-07-03"}
		for i, obs := range history {
			if obs.Date.String() != want[i] {
				t.Errorf("expected observation %d to be from %s, got %s", i, want[i], obs.Date)
			}
		}
	})
	t.Run("results are recomputed on every call", func(t *testing.T) {
		first := c.ObservationsForStation("A", Evaporation)
		first[0].Value = 100
		second := c.ObservationsForStation("A", Evaporation)
		if second[0].Value == 100 {
			t.Error("expected a fresh result on every call")
		}
	})
	t.Run("unknown station yields empty result", func(t *testing.T) {
		if history := c.ObservationsForStation("missing", Evaporation); len(history) != 0 {
			t.Errorf("expected no observations, got %d", len(history))
		}
	})
}

func TestCatalogue_MeanByStation(t *testing.T) {
	c := newTestCatalogue(t)
	values := map[string][]float64{"A": {1, 2, 3}, "B": {4}}
	for id, vals := range values {
		for i, v := range vals {
			obs := Observation{StationID: id, Date: testDate(t, "2018-07-01").AddDays(i), Name: Evaporation, Value: v}
			if _, err := c.AddObservation(obs); err != nil {
				t.Fatalf("failed to add observation: %s", err)
			}
		}
	}
	means := c.MeanByStation(Evaporation)
	if len(means) != 2 {
		t.Fatalf("expected means for 2 stations, got %d", len(means))
	}
	if means["A"] != 2 {
		t.Errorf("expected mean of A to be 2, got %f", means["A"])
	}
	if means["B"] != 4 {
		t.Errorf("expected mean of B to be 4, got %f", means["B"])
	}
	if _, ok := means["C"]; ok {
		t.Error("expected station without observations to be absent")
	}

	t.Run("mean value accessor", func(t *testing.T) {
		valueOf := c.MeanValue(Evaporation)
		if v, ok := valueOf(testStationA); !ok || v != 2 {
			t.Errorf("expected mean value 2 for A, got %f, %t", v, ok)
		}
		if _, ok := valueOf(testStationC); ok {
			t.Error("expected no mean value for C")
		}
	})
	t.Run("value on accessor", func(t *testing.T) {
		valueOf := c.ValueOn(Evaporation, testDate(t, "2018-07-02"))
		if v, ok := valueOf(testStationA); !ok || v != 2 {
			t.Errorf("expected value 2 for A, got %f, %t", v, ok)
		}
		if _, ok := valueOf(testStationB); ok {
			t.Error("expected no value for B on 2018-07-02")
		}
	})
}

func TestCatalogue_WithinRadius(t *testing.T) {
	c := newTestCatalogue(t)
	center := geo.Coordinate{Lat: 51.05, Lon: 6.05}

	t.Run("never returns stations at or beyond the radius", func(t *testing.T) {
		for _, radius := range []float64{0, 1, 5, 10, 50, 500, 1000} {
			for _, n := range c.WithinRadius(center, radius) {
				if n.Distance >= radius {
					t.Errorf("station %s at %f km returned for radius %f", n.Station.ID, n.Distance, radius)
				}
				if n.Distance != geo.Distance(center, n.Station.Coordinate) {
					t.Errorf("expected recorded distance to match the computed one for %s", n.Station.ID)
				}
			}
		}
	})
	t.Run("larger radius yields a superset", func(t *testing.T) {
		prev := map[string]bool{}
		for _, radius := range []float64{5, 10, 50, 500, 1000} {
			found := map[string]bool{}
			for _, n := range c.WithinRadius(center, radius) {
				found[n.Station.ID] = true
			}
			for id := range prev {
				if !found[id] {
					t.Errorf("station %s missing at radius %f", id, radius)
				}
			}
			prev = found
		}
		if len(prev) != 3 {
			t.Errorf("expected all stations within 1000km, got %d", len(prev))
		}
	})
	t.Run("station exactly on the boundary is excluded", func(t *testing.T) {
		radius := geo.Distance(center, testStationB.Coordinate)
		for _, n := range c.WithinRadius(center, radius) {
			if n.Station.ID == "B" {
				t.Error("expected station on the boundary to be excluded")
			}
		}
	})
	t.Run("result follows catalogue order and sorts by distance", func(t *testing.T) {
		result := c.WithinRadius(testStationC.Coordinate, 1000)
		if len(result) != 3 || result[0].Station.ID != "A" || result[2].Station.ID != "C" {
			t.Fatalf("expected catalogue order A, B, C, got %+v", result)
		}
		SortByDistance(result)
		if result[0].Station.ID != "C" || result[0].Distance != 0 {
			t.Errorf("expected C to be nearest after sorting, got %s", result[0].Station.ID)
		}
	})
}

func TestCatalogue_LoadPersist(t *testing.T) {
	t.Run("round trip reproduces stations and observations", func(t *testing.T) {
		persister := &memPersister{}
		c := New(persister, nil)
		for _, s := range []Station{testStationA, testStationB, testStationC} {
			if err := c.UpsertStation(s); err != nil {
				t.Fatalf("failed to upsert station: %s", err)
			}
		}
		for i := range 5 {
			for _, id := range []string{"A", "B"} {
				obs := Observation{StationID: id, Date: testDate(t, "2018-07-01").AddDays(i), Name: Evaporation,
					Value: float64(i) + 0.5}
				if _, err := c.AddObservation(obs); err != nil {
					t.Fatalf("failed to add observation: %s", err)
				}
			}
		}
		if !c.Dirty() {
			t.Error("expected catalogue to be dirty before persisting")
		}
		if err := c.Persist(t.Context()); err != nil {
			t.Fatalf("failed to persist catalogue: %s", err)
		}
		if c.Dirty() {
			t.Error("expected catalogue not to be dirty after persisting")
		}

		fresh := New(persister, nil)
		if err := fresh.Load(t.Context()); err != nil {
			t.Fatalf("failed to load catalogue: %s", err)
		}
		if fresh.Size() != 3 {
			t.Errorf("expected 3 stations, got %d", fresh.Size())
		}
		if fresh.ObservationCount() != 10 {
			t.Errorf("expected 10 observations, got %d", fresh.ObservationCount())
		}
		for _, id := range []string{"A", "B"} {
			want := c.ObservationsForStation(id, Evaporation)
			got := fresh.ObservationsForStation(id, Evaporation)
			if len(want) != len(got) {
				t.Fatalf("expected %d observations for %s, got %d", len(want), id, len(got))
			}
			for i := range want {
				if want[i] != got[i] {
					t.Errorf("expected observation %+v, got %+v", want[i], got[i])
				}
			}
		}
		if fresh.Dirty() {
			t.Error("expected freshly loaded catalogue not to be dirty")
		}
	})
	t.Run("load without artifact starts empty", func(t *testing.T) {
		c := New(&memPersister{}, nil)
		if err := c.Load(t.Context()); err != nil {
			t.Fatalf("expected load without artifact to succeed, got %s", err)
		}
		if c.Size() != 0 {
			t.Errorf("expected empty catalogue, got %d stations", c.Size())
		}
	})
	t.Run("load of malformed artifact fails and keeps the catalogue", func(t *testing.T) {
		persister := &memPersister{snap: &Snapshot{
			Stations:     []Station{testStationA},
			Observations: []Observation{{StationID: "unknown", Name: Evaporation}},
		}}
		c := newTestCatalogue(t)
		c.persister = persister
		err := c.Load(t.Context())
		if !errors.Is(err, ErrPersistence) {
			t.Errorf("expected error to be %s, got %v", ErrPersistence, err)
		}
		if c.Size() != 3 {
			t.Errorf("expected catalogue to keep its 3 stations, got %d", c.Size())
		}
	})
	t.Run("persister errors are returned", func(t *testing.T) {
		intentional := errors.New("intentionally failing")
		c := New(&memPersister{saveErr: intentional, loadErr: intentional}, nil)
		if err := c.Persist(t.Context()); !errors.Is(err, intentional) {
			t.Errorf("expected persist error, got %v", err)
		}
		if err := c.Load(t.Context()); !errors.Is(err, intentional) {
			t.Errorf("expected load error, got %v", err)
		}
	})
	t.Run("catalogue without persister", func(t *testing.T) {
		c := New(nil, nil)
		if err := c.Load(t.Context()); !errors.Is(err, ErrNoPersister) {
			t.Errorf("expected error to be %s, got %v", ErrNoPersister, err)
		}
		if err := c.Persist(t.Context()); !errors.Is(err, ErrNoPersister) {
			t.Errorf("expected error to be %s, got %v", ErrNoPersister, err)
		}
	})
	t.Run("persist during concurrent upserts writes complete snapshots", func(t *testing.T) {
		persister := &memPersister{}
		c := New(persister, nil)
		ctx, cancel := context.WithTimeout(t.Context(), time.Second)
		defer cancel()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				id := string(rune('a' + i%26))
				station := Station{ID: id, Coordinate: geo.Coordinate{Lat: 50, Lon: 7}}
				if err := c.UpsertStation(station); err != nil {
					t.Errorf("failed to upsert station: %s", err)
					return
				}
				if _, err := c.AddObservation(Observation{StationID: id, Date: Date(i), Name: Evaporation}); err != nil {
					t.Errorf("failed to add observation: %s", err)
					return
				}
			}
		}()
		for range 20 {
			if err := c.Persist(ctx); err != nil {
				t.Fatalf("failed to persist catalogue: %s", err)
			}
			snap := persister.snap
			known := make(map[string]bool)
			for _, s := range snap.Stations {
				known[s.ID] = true
			}
			for _, o := range snap.Observations {
				if !known[o.StationID] {
					t.Fatalf("snapshot contains observation of unknown station %q", o.StationID)
				}
			}
		}
		wg.Wait()
	})
}

func TestDate(t *testing.T) {
	t.Run("parse and format round trip", func(t *testing.T) {
		d := testDate(t, "2018-07-15")
		if d.String() != "2018-07-15" {
			t.Errorf("expected 2018-07-15, got %s", d)
		}
		if !d.Time().Equal(time.Date(2018, 7, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected time for date: %s", d.Time())
		}
	})
	t.Run("new date truncates to the calendar day", func(t *testing.T) {
		d := NewDate(time.Date(2018, 7, 15, 23, 59, 59, 0, time.UTC))
		if d.String() != "2018-07-15" {
			t.Errorf("expected 2018-07-15, got %s", d)
		}
		if d.AddDays(1).String() != "2018-07-16" {
			t.Errorf("expected next day to be 2018-07-16, got %s", d.AddDays(1))
		}
	})
	t.Run("invalid date fails", func(t *testing.T) {
		if _, err := ParseDate("15.07.2018"); err == nil {
			t.Error("expected error, but didn't get one")
		}
		var d Date
		if err := d.UnmarshalText([]byte("invalid")); err == nil {
			t.Error("expected error, but didn't get one")
		}
	})
	t.Run("text marshalling", func(t *testing.T) {
		var d Date
		if err := d.UnmarshalText([]byte("2019-01-02")); err != nil {
			t.Fatalf("failed to unmarshal date: %s", err)
		}
		text, err := d.MarshalText()
		if err != nil {
			t.Fatalf("failed to marshal date: %s", err)
		}
		if string(text) != "2019-01-02" {
			t.Errorf("expected 2019-01-02, got %s", text)
		}
	})
}

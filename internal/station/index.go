package station

import (
	"sync"

	"FuelStream/internal/event"
)

// Index is the authoritative in-memory store mapping stationKey to Station.
// It is written only by the drain goroutine through Apply; concurrent readers
// go through Snapshot, which returns copied values under the read lock so a
// reader never observes a half-applied station.
type Index struct {
	mu       sync.RWMutex
	stations map[string]*Station
}

// Entry is one (Station, FuelPrice) pair in a snapshot. The station is a
// deep copy; mutating it has no effect on the index.
type Entry struct {
	Station Station
	Price   FuelPrice
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{stations: make(map[string]*Station)}
}

// Apply upserts one event. The station is created on first sight of its key;
// the fuel price entry is overwritten unconditionally with the incoming
// values (last-write-wins by arrival order, deliberately not by comparing
// PriceUpdatedDate). Events failing validation are rejected without touching
// the index. Apply never panics on a partially-filled event.
func (ix *Index) Apply(e *event.PriceUpdateEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	key := e.StationKey()
	st := ix.stations[key]
	if st == nil {
		st = &Station{
			Key:        key,
			Name:       e.ServiceStationName,
			Address:    e.Address,
			Suburb:     e.Suburb,
			Postcode:   e.Postcode,
			Brand:      e.Brand,
			Latitude:   *e.Latitude,
			Longitude:  *e.Longitude,
			FuelPrices: make(map[string]FuelPrice),
		}
		ix.stations[key] = st
	}

	// A valid event with no fuel data still registers the station; the price
	// map is only touched when both fuel code and price are present.
	if e.FuelCode != "" && e.Price != nil {
		st.FuelPrices[e.FuelCode] = FuelPrice{
			FuelCode:         e.FuelCode,
			Price:            *e.Price,
			PriceUpdatedDate: e.PriceUpdatedDate,
		}
	}

	return nil
}

// Snapshot returns the stations that have a recorded price for fuelCode and
// valid coordinates, paired with that price. Iteration order is unspecified;
// rendering imposes its own order if it needs one.
func (ix *Index) Snapshot(fuelCode string) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	entries := make([]Entry, 0, len(ix.stations))
	for _, st := range ix.stations {
		fp, ok := st.FuelPrices[fuelCode]
		if !ok {
			continue
		}
		if st.Latitude < -90 || st.Latitude > 90 || st.Longitude < -180 || st.Longitude > 180 {
			continue
		}
		entries = append(entries, Entry{Station: st.clone(), Price: fp})
	}
	return entries
}

// Get returns a copy of the station for key, if present.
func (ix *Index) Get(key string) (Station, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	st, ok := ix.stations[key]
	if !ok {
		return Station{}, false
	}
	return st.clone(), true
}

// Len returns the number of stations in the index.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.stations)
}

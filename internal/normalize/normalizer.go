// Package normalize turns the upstream API's raw nested payload into a
// deduplicated, validated, ordered sequence of canonical price-update events.
// Everything here is pure and synchronous: identical input yields an
// identical event sequence, and no I/O happens on this path.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"FuelStream/internal/event"
	"FuelStream/internal/fuelapi"
)

// UnknownPlace is the sentinel for a suburb or postcode that could not be
// derived from the address.
const UnknownPlace = "Unknown"

// Drop rule names, used as metric labels.
const (
	RuleUnmatchedStation = "unmatched_station"
	RuleMissingField     = "missing_field"
	RuleOutOfRange       = "out_of_range"
	RuleDuplicate        = "duplicate"
)

// Stats summarizes one normalization run.
type Stats struct {
	RawStations int
	RawPrices   int
	Events      int
	Dropped     map[string]int
}

func (s *Stats) drop(rule string) {
	if s.Dropped == nil {
		s.Dropped = make(map[string]int)
	}
	s.Dropped[rule]++
}

// stationAttrs is the joined per-code lookup built from the stations block.
type stationAttrs struct {
	name      string
	address   string
	brand     string
	latitude  *float64
	longitude *float64
}

type dedupKey struct {
	name     string
	fuelCode string
	lat      float64
	lon      float64
}

// Normalize joins price entries to station attributes, applies the cleaning
// rules in order, and returns the surviving rows as canonical events in the
// cleaned-row order. Rules only filter; none reorders survivors.
func Normalize(resp *fuelapi.PriceResponse) ([]event.PriceUpdateEvent, Stats) {
	stats := Stats{}
	if resp == nil {
		return nil, stats
	}
	stats.RawStations = len(resp.Stations)
	stats.RawPrices = len(resp.Prices)

	// Code → attributes lookup. Later duplicates of a code overwrite earlier
	// ones, matching upstream semantics.
	lookup := make(map[string]stationAttrs, len(resp.Stations))
	for _, st := range resp.Stations {
		lookup[st.Code] = stationAttrs{
			name:      st.Name,
			address:   st.Address,
			brand:     st.Brand,
			latitude:  coerceFloat(st.Location.Latitude),
			longitude: coerceFloat(st.Location.Longitude),
		}
	}

	events := make([]event.PriceUpdateEvent, 0, len(resp.Prices))
	seen := make(map[dedupKey]struct{}, len(resp.Prices))

	for _, p := range resp.Prices {
		attrs, ok := lookup[p.StationCode]
		if !ok {
			// Data inconsistency, not an error: a price without station
			// attributes cannot be placed on the map.
			stats.drop(RuleUnmatchedStation)
			continue
		}

		suburb, postcode := SplitSuburbPostcode(attrs.address)

		e := event.PriceUpdateEvent{
			ServiceStationName: attrs.name,
			Address:            attrs.address,
			Suburb:             suburb,
			Postcode:           postcode,
			Brand:              attrs.brand,
			FuelCode:           p.FuelType,
			Price:              coerceFloat(p.Price),
			PriceUpdatedDate:   p.LastUpdated,
			Latitude:           attrs.latitude,
			Longitude:          attrs.longitude,
		}

		// Rule: drop rows missing any critical column.
		if e.ServiceStationName == "" || e.FuelCode == "" || e.PriceUpdatedDate == "" ||
			e.Latitude == nil || e.Longitude == nil || e.Price == nil {
			stats.drop(RuleMissingField)
			continue
		}

		// Rule: drop physically impossible values.
		if *e.Price < 0 ||
			*e.Latitude < -90 || *e.Latitude > 90 ||
			*e.Longitude < -180 || *e.Longitude > 180 {
			stats.drop(RuleOutOfRange)
			continue
		}

		// Rule: de-duplicate on (name, fuelCode, lat, lon), keeping the first
		// occurrence. The key uses the pre-casing fuel code.
		key := dedupKey{name: e.ServiceStationName, fuelCode: e.FuelCode, lat: *e.Latitude, lon: *e.Longitude}
		if _, dup := seen[key]; dup {
			stats.drop(RuleDuplicate)
			continue
		}
		seen[key] = struct{}{}

		// Rule: standardize text fields.
		e.Brand = TitleCase(e.Brand)
		e.Suburb = TitleCase(e.Suburb)
		e.FuelCode = strings.ToUpper(e.FuelCode)

		events = append(events, e)
	}

	stats.Events = len(events)
	return events, stats
}

// SplitSuburbPostcode derives suburb and postcode from the address's trailing
// comma-separated component: the last whitespace token is the postcode and
// everything before the final two tokens is the suburb ("Town NSW 2000" →
// "Town", "2000"). Any parse failure yields the Unknown sentinel for both
// rather than failing the record.
func SplitSuburbPostcode(address string) (suburb, postcode string) {
	if address == "" {
		return UnknownPlace, UnknownPlace
	}

	parts := strings.Split(address, ", ")
	tokens := strings.Fields(parts[len(parts)-1])
	switch {
	case len(tokens) >= 3:
		return strings.Join(tokens[:len(tokens)-2], " "), tokens[len(tokens)-1]
	case len(tokens) == 2:
		return tokens[0], tokens[1]
	default:
		return UnknownPlace, UnknownPlace
	}
}

// TitleCase upper-cases the first letter of each word and lower-cases the
// rest, the same normalization the cleaning pipeline applies to brand and
// suburb values.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// coerceFloat converts the loosely-typed numeric values the upstream emits
// (JSON numbers, numeric strings) to a float. Anything non-numeric becomes
// missing (nil), never an error.
func coerceFloat(v interface{}) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return &x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PriceUpdateEvent is one normalized price observation in transit from the
// feeder to the station index. The JSON keys are the wire contract and are
// case-sensitive; numeric fields are pointers so that a missing value can be
// told apart from zero.
type PriceUpdateEvent struct {
	ServiceStationName string   `json:"ServiceStationName"`
	Address            string   `json:"Address"`
	Suburb             string   `json:"Suburb"`
	Postcode           string   `json:"Postcode"`
	Brand              string   `json:"Brand"`
	FuelCode           string   `json:"FuelCode"`
	Price              *float64 `json:"Price"`
	PriceUpdatedDate   string   `json:"PriceUpdatedDate"`
	Latitude           *float64 `json:"Latitude"`
	Longitude          *float64 `json:"Longitude"`
}

// Validation errors. The data path drops and continues on all of these;
// none of them is ever fatal.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrIncompleteRecord = errors.New("incomplete record")
	ErrOutOfRangeValue  = errors.New("out of range value")
)

// StationKey derives the join key for the physical station: the exact,
// case-sensitive concatenation of station name and address. The key is never
// transmitted on the wire.
func (e *PriceUpdateEvent) StationKey() string {
	return e.ServiceStationName + e.Address
}

// Validate reports whether the event may be applied to the station index.
// An event lacking station name, address, or either coordinate is incomplete;
// coordinates and price outside their physical ranges are rejected.
func (e *PriceUpdateEvent) Validate() error {
	switch {
	case e.ServiceStationName == "":
		return fmt.Errorf("%w: missing ServiceStationName", ErrIncompleteRecord)
	case e.Address == "":
		return fmt.Errorf("%w: missing Address", ErrIncompleteRecord)
	case e.Latitude == nil:
		return fmt.Errorf("%w: missing Latitude", ErrIncompleteRecord)
	case e.Longitude == nil:
		return fmt.Errorf("%w: missing Longitude", ErrIncompleteRecord)
	}

	if *e.Latitude < -90 || *e.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrOutOfRangeValue, *e.Latitude)
	}
	if *e.Longitude < -180 || *e.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrOutOfRangeValue, *e.Longitude)
	}
	if e.Price != nil && *e.Price < 0 {
		return fmt.Errorf("%w: price %v", ErrOutOfRangeValue, *e.Price)
	}

	return nil
}

// Decode parses a wire payload into an event. Undecodable payloads are
// classified as ErrMalformedPayload so the transport callback can drop them
// without touching the queue.
func Decode(data []byte) (*PriceUpdateEvent, error) {
	var e PriceUpdateEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &e, nil
}

// Encode serializes the event for publishing.
func (e *PriceUpdateEvent) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

// FuelCodes lists the fuel types the pipeline recognizes.
var FuelCodes = []string{"DL", "E10", "P95", "P98", "U91", "PDL", "EV", "LPG", "E85", "B20"}

// KnownFuelCode reports whether code is in the supported catalogue.
func KnownFuelCode(code string) bool {
	for _, c := range FuelCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Float returns a pointer to v. Convenience for constructing events.
func Float(v float64) *float64 { return &v }

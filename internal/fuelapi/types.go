package fuelapi

// PriceResponse is the raw nested payload returned by both price endpoints:
// station attributes keyed by an opaque code, plus price entries referencing
// that code.
type PriceResponse struct {
	Stations []RawStation `json:"stations"`
	Prices   []RawPrice   `json:"prices"`
}

// RawStation carries one station's attributes as delivered by the API.
type RawStation struct {
	Code     string      `json:"code"`
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	Brand    string      `json:"brand"`
	Location RawLocation `json:"location"`
}

// RawLocation holds coordinates as loosely-typed values; the upstream is not
// consistent about numbers versus numeric strings, so coercion happens in the
// normalizer.
type RawLocation struct {
	Latitude  interface{} `json:"latitude"`
	Longitude interface{} `json:"longitude"`
}

// RawPrice is one price observation referencing a station by code.
type RawPrice struct {
	StationCode string      `json:"stationcode"`
	FuelType    string      `json:"fueltype"`
	Price       interface{} `json:"price"`
	LastUpdated string      `json:"lastupdated"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

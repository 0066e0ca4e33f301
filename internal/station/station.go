package station

// Station is the aggregate root for one physical fuel retail location,
// identified by name+address. Stations are created on the first valid event
// for their key and never deleted during a session.
type Station struct {
	Key        string
	Name       string
	Address    string
	Suburb     string
	Postcode   string
	Brand      string
	Latitude   float64
	Longitude  float64
	FuelPrices map[string]FuelPrice
}

// FuelPrice is the latest known price for one fuel code at one station.
// Updates are last-write-wins by arrival order.
type FuelPrice struct {
	FuelCode         string
	Price            float64
	PriceUpdatedDate string
}

// clone returns a deep copy safe to hand to readers.
func (s *Station) clone() Station {
	out := *s
	out.FuelPrices = make(map[string]FuelPrice, len(s.FuelPrices))
	for code, fp := range s.FuelPrices {
		out.FuelPrices[code] = fp
	}
	return out
}

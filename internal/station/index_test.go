package station_test

import (
	"errors"
	"testing"

	"FuelStream/internal/event"
	"FuelStream/internal/station"
)

func priceEvent(t *testing.T, name, address, fuelCode string, price float64) *event.PriceUpdateEvent {
	t.Helper()
	return &event.PriceUpdateEvent{
		ServiceStationName: name,
		Address:            address,
		Suburb:             "Town",
		Postcode:           "2000",
		Brand:              "Acme",
		FuelCode:           fuelCode,
		Price:              event.Float(price),
		PriceUpdatedDate:   "2024-01-01",
		Latitude:           event.Float(-33.8),
		Longitude:          event.Float(151.2),
	}
}

func TestApply_CreatesStationOnFirstSight(t *testing.T) {
	ix := station.NewIndex()

	if err := ix.Apply(priceEvent(t, "Acme", "1 Rd", "E10", 1.55)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if ix.Len() != 1 {
		t.Fatalf("len: got %d, want 1", ix.Len())
	}
	st, ok := ix.Get("Acme1 Rd")
	if !ok {
		t.Fatal("station not found by key")
	}
	fp, ok := st.FuelPrices["E10"]
	if !ok || fp.Price != 1.55 {
		t.Errorf("fuel price: got %+v", fp)
	}
}

func TestApply_LastWriteWinsByArrival(t *testing.T) {
	ix := station.NewIndex()

	first := priceEvent(t, "Acme", "1 Rd", "E10", 1.55)
	first.PriceUpdatedDate = "2024-06-01"
	if err := ix.Apply(first); err != nil {
		t.Fatalf("apply first: %v", err)
	}

	// The second arrival carries an older source timestamp but still wins:
	// ordering is by arrival, not by PriceUpdatedDate.
	second := priceEvent(t, "Acme", "1 Rd", "E10", 1.42)
	second.PriceUpdatedDate = "2024-01-01"
	if err := ix.Apply(second); err != nil {
		t.Fatalf("apply second: %v", err)
	}

	st, _ := ix.Get("Acme1 Rd")
	fp := st.FuelPrices["E10"]
	if fp.Price != 1.42 || fp.PriceUpdatedDate != "2024-01-01" {
		t.Errorf("last arrival should win: got %+v", fp)
	}
	if ix.Len() != 1 {
		t.Errorf("len: got %d, want 1", ix.Len())
	}
}

func TestApply_Idempotent(t *testing.T) {
	ix := station.NewIndex()
	e := priceEvent(t, "Acme", "1 Rd", "E10", 1.55)

	for i := 0; i < 3; i++ {
		if err := ix.Apply(e); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}

	st, _ := ix.Get("Acme1 Rd")
	if ix.Len() != 1 || len(st.FuelPrices) != 1 {
		t.Errorf("redelivery changed state: %d stations, %d prices", ix.Len(), len(st.FuelPrices))
	}
}

func TestApply_DistinctFuelCodesAccumulate(t *testing.T) {
	ix := station.NewIndex()

	for _, e := range []*event.PriceUpdateEvent{
		priceEvent(t, "Acme", "1 Rd", "E10", 1.55),
		priceEvent(t, "Acme", "1 Rd", "P95", 1.95),
		priceEvent(t, "Acme", "1 Rd", "DL", 1.80),
	} {
		if err := ix.Apply(e); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	st, _ := ix.Get("Acme1 Rd")
	if len(st.FuelPrices) != 3 {
		t.Errorf("fuel prices: got %d, want 3", len(st.FuelPrices))
	}
}

func TestApply_RejectsInvalidWithoutMutation(t *testing.T) {
	ix := station.NewIndex()

	bad := priceEvent(t, "", "1 Rd", "E10", 1.55)
	err := ix.Apply(bad)
	if !errors.Is(err, event.ErrIncompleteRecord) {
		t.Errorf("got %v, want ErrIncompleteRecord", err)
	}
	if ix.Len() != 0 {
		t.Errorf("invalid event mutated the index: len %d", ix.Len())
	}
}

func TestApply_NoFuelDataRegistersStationOnly(t *testing.T) {
	ix := station.NewIndex()

	e := priceEvent(t, "Acme", "1 Rd", "", 0)
	e.FuelCode = ""
	e.Price = nil
	if err := ix.Apply(e); err != nil {
		t.Fatalf("apply: %v", err)
	}

	st, ok := ix.Get("Acme1 Rd")
	if !ok {
		t.Fatal("station should be registered")
	}
	if len(st.FuelPrices) != 0 {
		t.Errorf("price map should be empty, got %d entries", len(st.FuelPrices))
	}
}

func TestSnapshot_FiltersByFuelCode(t *testing.T) {
	ix := station.NewIndex()
	if err := ix.Apply(priceEvent(t, "A", "1 Rd", "E10", 1.50)); err != nil {
		t.Fatal(err)
	}
	if err := ix.Apply(priceEvent(t, "B", "2 Rd", "P95", 1.90)); err != nil {
		t.Fatal(err)
	}

	entries := ix.Snapshot("E10")
	if len(entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries))
	}
	if entries[0].Station.Name != "A" || entries[0].Price.Price != 1.50 {
		t.Errorf("entry: got %+v", entries[0])
	}

	if got := ix.Snapshot("LPG"); len(got) != 0 {
		t.Errorf("unknown code should yield empty snapshot, got %d", len(got))
	}
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	ix := station.NewIndex()
	if err := ix.Apply(priceEvent(t, "A", "1 Rd", "E10", 1.50)); err != nil {
		t.Fatal(err)
	}

	entries := ix.Snapshot("E10")
	entries[0].Station.Name = "mutated"
	entries[0].Station.FuelPrices["E10"] = station.FuelPrice{FuelCode: "E10", Price: 0.01}

	st, _ := ix.Get("A1 Rd")
	if st.Name != "A" {
		t.Errorf("snapshot mutation leaked into index name: %q", st.Name)
	}
	if st.FuelPrices["E10"].Price != 1.50 {
		t.Errorf("snapshot mutation leaked into index price: %v", st.FuelPrices["E10"].Price)
	}
}

func TestIndex_MonotonicGrowth(t *testing.T) {
	ix := station.NewIndex()
	names := []string{"A", "B", "C", "A", "B"}

	prev := 0
	for _, name := range names {
		if err := ix.Apply(priceEvent(t, name, "1 Rd", "E10", 1.50)); err != nil {
			t.Fatal(err)
		}
		if ix.Len() < prev {
			t.Fatalf("station count shrank: %d -> %d", prev, ix.Len())
		}
		prev = ix.Len()
	}
	if ix.Len() != 3 {
		t.Errorf("len: got %d, want 3", ix.Len())
	}
}

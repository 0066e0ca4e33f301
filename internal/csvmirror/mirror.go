// Package csvmirror keeps an optional append-only CSV copy of cleaned
// events. It is a convenience for offline inspection, not part of the
// pipeline's contract; the core never reads it back.
package csvmirror

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"FuelStream/internal/event"
)

var header = []string{
	"ServiceStationName", "Address", "Suburb", "Postcode", "Brand",
	"FuelCode", "Price", "PriceUpdatedDate", "Latitude", "Longitude",
}

// Mirror appends cleaned events to a CSV file.
type Mirror struct {
	mu   sync.Mutex
	path string
}

// Open prepares the mirror at path, creating the file and writing the header
// row if the file does not exist or is empty.
func Open(path string) (*Mirror, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open mirror %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat mirror %s: %w", path, err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, fmt.Errorf("write mirror header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("write mirror header: %w", err)
		}
	}

	return &Mirror{path: path}, nil
}

// Append writes one row per event. The file is reopened per batch so an
// external rotation between cycles is harmless.
func (m *Mirror) Append(events []event.PriceUpdateEvent) error {
	if len(events) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mirror %s: %w", m.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i := range events {
		if err := w.Write(record(&events[i])); err != nil {
			return fmt.Errorf("write mirror row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush mirror: %w", err)
	}
	return nil
}

func record(e *event.PriceUpdateEvent) []string {
	return []string{
		e.ServiceStationName,
		e.Address,
		e.Suburb,
		e.Postcode,
		e.Brand,
		e.FuelCode,
		formatFloat(e.Price),
		e.PriceUpdatedDate,
		formatFloat(e.Latitude),
		formatFloat(e.Longitude),
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

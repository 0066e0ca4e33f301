// Package server exposes the rendering-layer boundary over HTTP: filtered
// read-consistent snapshots of the station index, the persisted viewport
// state, and health probes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"FuelStream/internal/event"
	"FuelStream/internal/observability"
	"FuelStream/internal/session"
	"FuelStream/internal/station"
)

// Server is the consumer's HTTP surface.
type Server struct {
	addr    string
	session *session.Session
	health  *observability.HealthChecker
	logger  zerolog.Logger
}

// New creates the HTTP server for the given session.
func New(addr string, sess *session.Session, health *observability.HealthChecker, logger zerolog.Logger) *Server {
	return &Server{
		addr:    addr,
		session: sess,
		health:  health,
		logger:  logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /v1/fuelcodes", s.handleFuelCodes)
	mux.HandleFunc("GET /v1/viewport", s.handleGetViewport)
	mux.HandleFunc("PUT /v1/viewport", s.handlePutViewport)
	mux.HandleFunc("DELETE /v1/viewport", s.handleResetViewport)
	mux.HandleFunc("GET /healthz", s.health.LivenessHandler)
	mux.HandleFunc("GET /readyz", s.health.ReadinessHandler)

	return mux
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.logger.Info().Str("addr", s.addr).Msg("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// snapshotStation is the JSON shape handed to the rendering layer: the
// station, the price for the requested fuel code, and the full price table
// for popups.
type snapshotStation struct {
	Name             string                   `json:"name"`
	Address          string                   `json:"address"`
	Suburb           string                   `json:"suburb"`
	Postcode         string                   `json:"postcode"`
	Brand            string                   `json:"brand"`
	Latitude         float64                  `json:"latitude"`
	Longitude        float64                  `json:"longitude"`
	Price            float64                  `json:"price"`
	PriceUpdatedDate string                   `json:"priceUpdatedDate"`
	AllPrices        map[string]snapshotPrice `json:"allPrices"`
}

type snapshotPrice struct {
	Price            float64 `json:"price"`
	PriceUpdatedDate string  `json:"priceUpdatedDate"`
}

type snapshotResponse struct {
	FuelCode string            `json:"fuelCode"`
	Count    int               `json:"count"`
	Stations []snapshotStation `json:"stations"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	fuelCode := r.URL.Query().Get("fuel")
	if fuelCode == "" {
		writeError(w, http.StatusBadRequest, "missing fuel query parameter")
		return
	}

	// An unknown code is not an error: it yields an empty snapshot, the same
	// as a known code nobody has reported prices for yet.
	entries := s.session.Snapshot(fuelCode)

	resp := snapshotResponse{
		FuelCode: fuelCode,
		Count:    len(entries),
		Stations: make([]snapshotStation, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Stations = append(resp.Stations, toSnapshotStation(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

func toSnapshotStation(e station.Entry) snapshotStation {
	all := make(map[string]snapshotPrice, len(e.Station.FuelPrices))
	for code, fp := range e.Station.FuelPrices {
		all[code] = snapshotPrice{Price: fp.Price, PriceUpdatedDate: fp.PriceUpdatedDate}
	}
	return snapshotStation{
		Name:             e.Station.Name,
		Address:          e.Station.Address,
		Suburb:           e.Station.Suburb,
		Postcode:         e.Station.Postcode,
		Brand:            e.Station.Brand,
		Latitude:         e.Station.Latitude,
		Longitude:        e.Station.Longitude,
		Price:            e.Price.Price,
		PriceUpdatedDate: e.Price.PriceUpdatedDate,
		AllPrices:        all,
	}
}

func (s *Server) handleFuelCodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"fuelCodes": event.FuelCodes})
}

func (s *Server) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Viewport())
}

func (s *Server) handlePutViewport(w http.ResponseWriter, r *http.Request) {
	var v session.Viewport
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid viewport body")
		return
	}
	if v.CenterLat < -90 || v.CenterLat > 90 || v.CenterLng < -180 || v.CenterLng > 180 {
		writeError(w, http.StatusBadRequest, "viewport center out of range")
		return
	}
	s.session.SetViewport(v)
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleResetViewport(w http.ResponseWriter, r *http.Request) {
	s.session.ResetViewport()
	writeJSON(w, http.StatusOK, s.session.Viewport())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

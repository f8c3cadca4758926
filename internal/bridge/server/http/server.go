package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carbridge-io/carbridge/internal/bridge/remote"
	"github.com/carbridge-io/carbridge/internal/vehicle"
	"github.com/carbridge-io/carbridge/pkg/log"
	"github.com/carbridge-io/carbridge/pkg/options"
)

// Service is the bridge surface the HTTP API exposes. It is the same dispatch
// path the MQTT command ingress uses.
type Service interface {
	// VehicleState returns the stored data and the reconciled published view.
	VehicleState(vin string) (vehicle.Data, vehicle.ReportedState, bool)

	// RequestRefresh asks for a debounced forced poll. False means the VIN
	// is not configured.
	RequestRefresh(vin string) bool

	// DispatchCommand routes a remote-control command to the vehicle cloud.
	DispatchCommand(ctx context.Context, vin, command string, params map[string]any) error
}

// Server exposes health, metrics and the v1 vehicle API.
type Server struct {
	server  *http.Server
	options *options.HttpOptions
	svc     Service
	ready   func() bool
}

// NewServer builds the HTTP server and its routes. ready reports whether the
// bridge has an MQTT connection and is serving state.
func NewServer(opts *options.HttpOptions, svc Service, ready func() bool) *Server {
	s := &Server{
		options: opts,
		svc:     svc,
		ready:   ready,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/vehicles/{vin}/state", s.state).Methods(http.MethodGet)
	v1.HandleFunc("/vehicles/{vin}/refresh", s.refresh).Methods(http.MethodPost)
	v1.HandleFunc("/vehicles/{vin}/commands/{name}", s.command).Methods(http.MethodPost)

	s.server = &http.Server{
		Handler:      r,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	}
	return s
}

func (s *Server) Name() string { return "http" }

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}

	log.Info("Starting HTTP Server", "addr", s.options.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.server.Shutdown(context.Background())
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if !s.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type stateResponse struct {
	vehicle.Data
	Reported vehicle.ReportedState `json:"reported"`
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	vin := mux.Vars(r)["vin"]

	data, view, ok := s.svc.VehicleState(vin)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown vehicle"})
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{Data: data, Reported: view})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	vin := mux.Vars(r)["vin"]

	if !s.svc.RequestRefresh(vin) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown vehicle"})
		return
	}

	// Accepted, not done: the poll loop picks the request up and the
	// cooldown may coalesce it with a recent one.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
}

func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	vin, name := vars["vin"], vars["name"]

	// An empty body is a command without parameters.
	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	err := s.svc.DispatchCommand(r.Context(), vin, name, params)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "command dispatched"})
	case errors.Is(err, vehicle.ErrUnknownVehicle):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, remote.ErrUnknownCommand):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, remote.ErrExperimentalDisabled):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		log.Error(err, "Command dispatch failed", "vin", vin, "command", name)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error(err, "Failed to write HTTP response")
	}
}

/*
Copyright © 2024 the gaden player authors.
This file is part of the gaden player.

The gaden player is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

The gaden player is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with the gaden player.  If not, see <http://www.gnu.org/licenses/>.
*/

package gadenutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Herwich012/gaden"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// PointsRequest holds the coordinates of a batch of query points.
type PointsRequest struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
	Z []float64 `json:"z"`
}

func (r *PointsRequest) points() ([][3]float64, error) {
	if len(r.X) != len(r.Y) || len(r.X) != len(r.Z) {
		return nil, fmt.Errorf("gaden: x, y and z have lengths %d, %d and %d; they must be equal",
			len(r.X), len(r.Y), len(r.Z))
	}
	o := make([][3]float64, len(r.X))
	for i := range o {
		o[i] = [3]float64{r.X[i], r.Y[i], r.Z[i]}
	}
	return o, nil
}

// OdorPosition is the reading at one point of an OdorResponse.
type OdorPosition struct {
	// Concentration holds one value [ppm] per entry of OdorResponse.GasType.
	Concentration []float64 `json:"concentration"`
	Error         string    `json:"error,omitempty"`
}

// OdorResponse is the answer to a concentration request.
type OdorResponse struct {
	Iteration int            `json:"iteration"`
	GasType   []string       `json:"gas_type"`
	Positions []OdorPosition `json:"positions"`
}

// WindResponse is the answer to a wind request.
type WindResponse struct {
	Iteration int       `json:"iteration"`
	U         []float64 `json:"u"`
	V         []float64 `json:"v"`
	W         []float64 `json:"w"`
	Error     []string  `json:"error"`
}

func odorResponse(r *gaden.QueryResult) *OdorResponse {
	o := &OdorResponse{
		Iteration: r.Iteration,
		GasType:   r.GasTypes,
		Positions: make([]OdorPosition, len(r.Readings)),
	}
	for i, rd := range r.Readings {
		p := &o.Positions[i]
		p.Concentration = make([]float64, len(r.GasTypes))
		if rd.Err != nil {
			p.Error = rd.Err.Error()
			continue
		}
		for j, g := range r.GasTypes {
			p.Concentration[j] = rd.Concentration[g]
		}
	}
	return o
}

func windResponse(r *gaden.QueryResult) *WindResponse {
	n := len(r.Readings)
	o := &WindResponse{
		Iteration: r.Iteration,
		U:         make([]float64, n),
		V:         make([]float64, n),
		W:         make([]float64, n),
		Error:     make([]string, n),
	}
	for i, rd := range r.Readings {
		if rd.Err != nil {
			o.Error[i] = rd.Err.Error()
			continue
		}
		o.U[i], o.V[i], o.W[i] = rd.U, rd.V, rd.W
	}
	return o
}

// Server serves concentration and wind queries over HTTP.
type Server struct {
	d        *gaden.Dispatcher
	mux      *http.ServeMux
	upgrader websocket.Upgrader

	Log logrus.FieldLogger
}

// NewServer returns a server answering queries through d.
//
// Endpoints:
//
//	POST /odor_value  {"x":[],"y":[],"z":[]} -> OdorResponse
//	POST /wind_value  {"x":[],"y":[],"z":[]} -> WindResponse
//	GET  /ws          websocket; the client sends one points request and
//	                  receives an OdorResponse after every loaded frame.
func NewServer(d *gaden.Dispatcher, log logrus.FieldLogger) *Server {
	s := &Server{
		d:   d,
		mux: http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		Log: log,
	}
	s.mux.HandleFunc("/odor_value", s.handleQuery(false))
	s.mux.HandleFunc("/wind_value", s.handleQuery(true))
	s.mux.HandleFunc("/ws", s.handleSubscribe)
	return s
}

// NewHTTPServer returns an HTTP server on addr with the timeouts used for
// the player.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleQuery(wind bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req PointsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("gaden: decoding request: %v", err), http.StatusBadRequest)
			return
		}
		points, err := req.points()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, err := s.d.Query(r.Context(), points, wind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		var resp interface{}
		if wind {
			resp = windResponse(result)
		} else {
			resp = odorResponse(result)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			s.Log.WithError(err).Warn("writing response")
		}
	}
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.WithError(err).Warn("upgrading connection")
		return
	}
	defer conn.Close()
	log := s.Log.WithField("remote", r.RemoteAddr)

	var req PointsRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.WithError(err).Warn("reading subscription request")
		return
	}
	points, err := req.points()
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	sub, err := s.d.Subscribe(r.Context(), points)
	if err != nil {
		log.WithError(err).Warn("subscribing")
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.d.Unsubscribe(ctx, sub); err != nil {
			log.WithError(err).Warn("unsubscribing")
		}
	}()
	log.WithField("points", len(points)).Info("new subscription")

	// The client only sends close messages from here on.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case res, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(odorResponse(res)); err != nil {
				log.WithError(err).Debug("subscriber went away")
				return
			}
		case <-closed:
			log.Debug("subscriber closed the connection")
			return
		}
	}
}

// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"majordomo/internal/logger"
	"majordomo/internal/mdp"
)

// Server is the introspection HTTP API. Every handler except login and
// the worker-kick endpoint reads via broker.Snapshot and never touches
// routing state; kicking a worker is the one operator action exposed,
// proxied through Broker.Disconnect rather than any direct state access.
type Server struct {
	broker   *mdp.Broker
	jwt      *JWTService
	passwd   *PasswordService
	user     string
	passHash string
	log      zerolog.Logger
	http     *http.Server
}

// Config configures the admin server.
type Config struct {
	Bind      string
	JWTSecret string
	Issuer    string
	User      string
	PassHash  string
}

// NewServer builds an admin Server bound to broker's Snapshot method.
func NewServer(broker *mdp.Broker, cfg Config) *Server {
	return &Server{
		broker:   broker,
		jwt:      NewJWTService(cfg.JWTSecret, cfg.Issuer, time.Hour),
		passwd:   NewPasswordService(),
		user:     cfg.User,
		passHash: cfg.PassHash,
		log:      logger.Component("admin"),
	}
}

// Handler builds the mux router backing the admin API. Exported
// separately from Start so tests can drive it through httptest without
// binding a real listener.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/login", s.handleLogin).Methods("POST")
	api.Handle("/stats", s.jwt.RequireAuth(http.HandlerFunc(s.handleStats))).Methods("GET")
	api.Handle("/services", s.jwt.RequireAuth(http.HandlerFunc(s.handleServices))).Methods("GET")
	api.Handle("/workers", s.jwt.RequireAuth(http.HandlerFunc(s.handleWorkers))).Methods("GET")
	api.Handle("/workers/{id}", s.jwt.RequireAuth(http.HandlerFunc(s.handleKickWorker))).Methods("DELETE")

	return router
}

// Start binds and serves the admin API. It blocks until the server stops.
func (s *Server) Start(bind string) error {
	s.http = &http.Server{Addr: bind, Handler: s.Handler()}
	s.log.Info().Str("bind", bind).Msg("admin API listening")
	return s.http.ListenAndServe()
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown() error {
	if s.http == nil {
		return nil
	}
	return s.http.Close()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("admin request")
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username != s.user {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	ok, err := s.passwd.VerifyPassword(req.Password, s.passHash)
	if err != nil || !ok {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.jwt.GenerateToken(req.Username)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.broker.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "failed to read broker state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap.Stats)
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	snap, err := s.broker.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "failed to read broker state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap.Services)
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	snap, err := s.broker.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "failed to read broker state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap.Workers)
}

// handleKickWorker forces a worker off the broker, e.g. an operator
// pulling a misbehaving worker rather than waiting out its liveness
// window. It is the one admin endpoint that mutates routing state, and
// it still never touches that state directly: the request is proxied
// through Broker.Disconnect, which runs the actual removal on the
// broker's own event-loop goroutine.
func (s *Server) handleKickWorker(w http.ResponseWriter, r *http.Request) {
	wid := mux.Vars(r)["id"]
	if wid == "" {
		http.Error(w, "missing worker id", http.StatusBadRequest)
		return
	}
	if err := s.broker.Disconnect(r.Context(), wid); err != nil {
		http.Error(w, "failed to disconnect worker", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

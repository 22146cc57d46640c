// Package server exposes the auth and publish flows over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"crosspost/internal"
	"crosspost/internal/auth"
	"crosspost/internal/credstore"
	"crosspost/internal/logging"
	"crosspost/internal/model"
	"crosspost/internal/publisher"
)

// LoginFunc runs an interactive cookie-harvest login for a platform.
type LoginFunc func(ctx context.Context, p model.Platform) (model.Credential, error)

// ProbeFunc checks whether a stored cookie jar still authenticates.
type ProbeFunc func(p model.Platform, cookies []model.Cookie) (bool, error)

type Server struct {
	cfg     internal.Config
	log     *logging.Logger
	store   credstore.Store
	google  *auth.GoogleAuthenticator // nil when OAuth config is missing
	login   LoginFunc
	probe   ProbeFunc
	drivers map[model.Platform]publisher.Driver
	pub     *publisher.Publisher
}

func New(cfg internal.Config, log *logging.Logger, store credstore.Store, google *auth.GoogleAuthenticator, login LoginFunc, pub *publisher.Publisher) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		store:   store,
		google:  google,
		login:   login,
		probe:   auth.ProbeSession,
		drivers: make(map[model.Platform]publisher.Driver),
		pub:     pub,
	}
	return s
}

// RegisterDriver makes a driver available to the single-platform
// /publish endpoint.
func (s *Server) RegisterDriver(d publisher.Driver) {
	s.drivers[d.Platform()] = d
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/auth/authorize-url", s.handleAuthorizeURL).Methods(http.MethodGet)
	r.HandleFunc("/auth/exchange-code", s.handleExchangeCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/session/login", s.handleSessionLogin).Methods(http.MethodGet)
	r.HandleFunc("/session/status", s.handleSessionStatus).Methods(http.MethodGet)
	r.HandleFunc("/publish", s.handlePublish).Methods(http.MethodPost)
	r.HandleFunc("/publish/batch", s.handlePublishBatch).Methods(http.MethodPost)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

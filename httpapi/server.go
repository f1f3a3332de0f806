// Package httpapi wires spec §6's HTTP surface onto the core engines:
// magiclink, token, refresh, sharedsecret, signedenvelope and
// middleware. It owns no business logic of its own beyond request
// decoding, response signing, and routing.
package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/logger"
	"github.com/arkaitz-dev/hashrand/magiclink"
	"github.com/arkaitz-dev/hashrand/mailer"
	"github.com/arkaitz-dev/hashrand/middleware"
	"github.com/arkaitz-dev/hashrand/refresh"
	"github.com/arkaitz-dev/hashrand/sharedsecret"
)

// Store is the union every handler in this package needs from the
// backing storage layer; storage/memory.Store and storage/postgres.Store
// both satisfy it.
type Store interface {
	magiclink.Store
	sharedsecret.Store
}

// Server bundles the dependencies every handler closes over.
type Server struct {
	cfg     config.Config
	store   Store
	mailer  mailer.Mailer
	log     logger.Logger
	auth    *middleware.Auth
	refresh *refresh.Engine
	shared  *sharedsecret.Engine
	devMode bool
}

// NewServer constructs the handler set. devMode controls whether
// POST /api/login/ echoes the minted magic link back in the response
// body (spec §9: "log-fallback in development").
func NewServer(cfg config.Config, store Store, m mailer.Mailer, log logger.Logger, devMode bool) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		mailer:  m,
		log:     log,
		auth:    middleware.New(cfg.Keys, cfg.Durations),
		refresh: refresh.NewEngine(cfg.Keys, cfg.Durations),
		shared:  sharedsecret.NewEngine(cfg.Keys, store),
		devMode: devMode,
	}
}

// Routes builds the complete mux, with s.auth.Wrap guarding every
// protected path per spec §4.8.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login/", s.handleLoginIssue)
	mux.HandleFunc("POST /api/login/magiclink/", s.handleLoginMagicLink)
	mux.HandleFunc("DELETE /api/login/", s.handleLogout)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/shared-secret/create", s.handleSharedSecretCreate)
	mux.HandleFunc("GET /api/shared-secret/confirm-read", s.handleSharedSecretConfirmRead)
	mux.HandleFunc("GET /api/shared-secret/{hash}", s.handleSharedSecretRead)
	mux.HandleFunc("POST /api/shared-secret/{hash}", s.handleSharedSecretRead)

	return withRequestID(s.auth.Wrap(mux))
}

// withRequestID mints a request ID for every inbound request and
// attaches it to the context so any handler's s.log.WithContext(...)
// call carries it onto every log line for that request, and echoes it
// back as a response header so a client can correlate its own logs
// against a failed call.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("x-request-id", id)
		next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), id)))
	})
}

func now() time.Time { return time.Now().UTC() }

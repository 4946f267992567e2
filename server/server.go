// Package server wires together the refal evaluation API into a runnable
// HTTP server: an audit log, a chi router mounted under api.PathPrefix, and
// a net/http.Server wrapping it, the way the teacher's own server package
// assembles its ServeMux and DB store into a single listening process.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/relang/refal/server/api"
	"github.com/relang/refal/server/audit"
)

// Config gathers the dependencies and settings a Server needs to run.
type Config struct {
	// Addr is the bind address, e.g. ":8080" or "localhost:8080".
	Addr string

	// Engine evaluates goal functions; required.
	Engine api.Evaluator

	// AuditDBPath is the sqlite file the server's audit log is kept in. If
	// empty, auditing is disabled.
	AuditDBPath string

	// SecretHash is the bcrypt hash of the shared secret required to obtain
	// a bearer token. Empty disables the token-issuing /api/v1/auth
	// endpoint; /api/v1/eval still requires a valid bearer token.
	SecretHash string

	// JWTSigningKey signs and validates bearer tokens.
	JWTSigningKey []byte

	// UnauthDelay deprioritizes unauthenticated/erroring requests.
	UnauthDelay time.Duration
}

// Server is a running refal evaluation HTTP server.
type Server struct {
	cfg   Config
	audit *audit.Log
	http  *http.Server
}

// New builds a Server from cfg but does not yet start listening.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: Config.Engine is required")
	}

	var auditLog *audit.Log
	if cfg.AuditDBPath != "" {
		var err error
		auditLog, err = audit.Open(cfg.AuditDBPath)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	a := api.API{
		Engine:        cfg.Engine,
		Audit:         auditLog,
		SecretHash:    cfg.SecretHash,
		JWTSigningKey: cfg.JWTSigningKey,
		UnauthDelay:   cfg.UnauthDelay,
	}

	root := chi.NewRouter()
	root.Use(middleware.Recoverer)
	root.Use(middleware.RealIP)
	root.Mount(api.PathPrefix, a.Router())

	return &Server{
		cfg:   cfg,
		audit: auditLog,
		http: &http.Server{
			Addr:    cfg.Addr,
			Handler: root,
		},
	}, nil
}

// ServeForever listens and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ServeForever(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("INFO  listening on %s", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if s.audit != nil {
			return s.audit.Close()
		}
		return nil
	}
}

// Package server exposes the migration engine over HTTP. All endpoints
// are GET with query parameters, mirroring how the migration is driven
// by hand during a decommission.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"boorusync/internal/app"
	"boorusync/internal/servicetoken"
	"boorusync/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// Verifier config for the destructive migrate endpoints. When no
	// public key is configured the endpoints are open.
	InternalJWTPublicKeyPath string
	InternalJWTKeyID         string
}

// Server exposes HTTP endpoints for the migration service.
type Server struct {
	app          *app.App
	internalAuth *servicetoken.Verifier
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	s := &Server{
		app: cfg.App,
		mux: http.NewServeMux(),
	}
	if path := strings.TrimSpace(cfg.InternalJWTPublicKeyPath); path != "" {
		verifier, err := servicetoken.NewVerifier(servicetoken.VerifierOptions{
			PublicKeyPath: path,
			KeyID:         cfg.InternalJWTKeyID,
			Audience:      "boorusync",
		})
		if err != nil {
			return nil, err
		}
		s.internalAuth = verifier
	} else {
		slog.Warn("migrate endpoints are unauthenticated: no service token key configured")
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithRequestID(util.WithRequestLog("boorusync", s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/migrate", s.withInternal(s.handleMigrate))
	s.mux.Handle("/migrateRange", s.withInternal(s.handleMigrateRange))
	s.mux.HandleFunc("/mariaDbLowest", s.handleLowest)
	s.mux.HandleFunc("/get", s.handleGet)
	s.mux.HandleFunc("/file", s.handleFile)
	s.mux.HandleFunc("/filemaria", s.handleFileMaria)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) withInternal(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.internalAuth != nil {
			token, ok := servicetoken.BearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, err := s.internalAuth.Verify(token); err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	})
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	post, err := s.app.Migrate(r.Context(), id)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, toPostRecord(*post))
}

func (s *Server) handleMigrateRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	startID, ok := queryID(w, r, "startId")
	if !ok {
		return
	}
	stepSize, err := strconv.Atoi(r.URL.Query().Get("stepSize"))
	if err != nil || stepSize <= 0 {
		writeError(w, http.StatusBadRequest, "stepSize must be a positive integer")
		return
	}
	result, err := s.app.MigrateRange(r.Context(), startID, stepSize)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLowest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok, err := s.app.LowestLegacyID()
	if err != nil {
		serverError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "legacy store empty")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	post, err := s.app.ResolvePost(r.Context(), id)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, toPostRecord(*post))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	data, ext, found, err := s.app.PostFile(id)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Type", ext.MediaType())
	_, _ = w.Write(data)
}

func (s *Server) handleFileMaria(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	data, found, err := s.app.LegacyFile(id)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	// The legacy table stores no extension; sniff the payload.
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

func queryID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(param), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, param+" must be an integer")
		return 0, false
	}
	return id, true
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, app.ErrLegacyNotConfigured) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raterudder/luzygas/pkg/common"
	"github.com/raterudder/luzygas/pkg/coordinator"
	"github.com/raterudder/luzygas/pkg/log"
	"github.com/raterudder/luzygas/pkg/sensor"
	"github.com/raterudder/luzygas/pkg/storage"
	"github.com/raterudder/luzygas/pkg/types"
)

// tokenVerifier is a function that validates an OIDC ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Updater is the part of the coordinator the server needs.
type Updater interface {
	Snapshot() *types.Snapshot
	Status() coordinator.Status
	Refresh(ctx context.Context) (*types.Snapshot, error)
}

// Server exposes the current sensor values over HTTP and as Prometheus
// metrics.
type Server struct {
	updater Updater
	mapper  *sensor.Mapper
	storage storage.Database
	entryID string

	listenAddr string
	httpServer *http.Server
	serverName string
	registry   *prometheus.Registry

	oidcVerifiers map[string]tokenVerifier
	allowedEmails []string
}

// New returns a Server without authentication listening on listenAddr.
func New(u Updater, m *sensor.Mapper, s storage.Database, entryID, listenAddr string) *Server {
	srv := &Server{
		updater:    u,
		mapper:     m,
		storage:    s,
		entryID:    entryID,
		listenAddr: listenAddr,
		serverName: "luzygas/" + common.Version(),
	}
	srv.registry = newRegistry(u, m)
	return srv
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(u Updater, m *sensor.Mapper, s storage.Database) *Server {
	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	srv := New(u, m, s, "", ":"+port)
	if revision := os.Getenv("K_REVISION"); revision != "" {
		srv.serverName = revision
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	entryID := lflag.String("entry-id", "default", "ID that readings are stored under")
	oidcIssuer := lflag.String("oidc-issuer", "https://accounts.google.com", "Issuer of the id tokens accepted for /api/")
	oidcAudience := lflag.String("oidc-audience", "", "Audience of the id tokens accepted for /api/ (empty disables auth)")
	allowedEmails := lflag.String("allowed-emails", "", "comma-delimited list of email addresses allowed to use /api/ (empty allows any valid token)")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.entryID = *entryID
		if srv.entryID == "" {
			log.Ctx(context.Background()).Error("entry-id cannot be empty")
			os.Exit(1)
		}
		if *allowedEmails != "" {
			for _, email := range strings.Split(*allowedEmails, ",") {
				if email = strings.TrimSpace(email); email != "" {
					srv.allowedEmails = append(srv.allowedEmails, email)
				}
			}
		}
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), *oidcIssuer)
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("issuer", *oidcIssuer), slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcVerifiers = map[string]tokenVerifier{
				*oidcIssuer: provider.Verifier(&oidc.Config{ClientID: *oidcAudience}).Verify,
			}
		}
	})

	return srv
}

func newRegistry(u Updater, m *sensor.Mapper) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		newCollector(u, m),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/sensors", s.handleListSensors)
	apiMux.HandleFunc("GET /api/sensors/{id}", s.handleGetSensor)
	apiMux.HandleFunc("GET /api/contracts", s.handleListContracts)
	apiMux.HandleFunc("GET /api/status", s.handleStatus)
	apiMux.HandleFunc("POST /api/update", s.handleUpdate)
	apiMux.HandleFunc("GET /api/history", s.handleHistory)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

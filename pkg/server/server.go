package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/metrics"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/server/middleware"
	"github.com/alxnderia/ingestion/pkg/store"
)

// MaxRunLimit caps the limit query parameter of /runs.
const MaxRunLimit = 500

// Config holds the listener and auth settings.
type Config struct {
	Tenant    string
	Host      string
	Port      string
	JWTSecret string
}

type Server struct {
	Router *mux.Router
	runs   store.RunStore
	ping   func(context.Context) error
	tenant string
	logger *zap.Logger
	srv    *http.Server
}

// NewServer wires the status routes. ping reports database connectivity.
func NewServer(cfg Config, runs store.RunStore, ping func(context.Context) error, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := mux.NewRouter()
	s := &Server{
		Router: router,
		runs:   runs,
		ping:   ping,
		tenant: cfg.Tenant,
		logger: logger,
		srv: &http.Server{
			Handler:      handlers.LoggingHandler(os.Stdout, router),
			Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		},
	}

	router.Handle("/", metrics.Instrument("/", http.HandlerFunc(s.status))).Methods(http.MethodGet)

	var runsHandler http.Handler = http.HandlerFunc(s.listRuns)
	if cfg.JWTSecret != "" {
		runsHandler = middleware.NewJWTAuthenticator([]byte(cfg.JWTSecret)).Middleware(runsHandler)
	}
	router.Handle("/runs", metrics.Instrument("/runs", runsHandler)).Methods(http.MethodGet)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("status API listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type statusResponse struct {
	Status   string `json:"status"`
	TenantID string `json:"tenant_id"`
	Database string `json:"database"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: "ok", TenantID: s.tenant, Database: "ok"}
	code := http.StatusOK
	if err := s.ping(r.Context()); err != nil {
		s.logger.Warn("database ping failed", zap.Error(err))
		resp.Status, resp.Database = "degraded", "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{Tenant: s.tenant}

	if p := q.Get("provider"); p != "" {
		typ, err := provider.TypeString(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown provider "+strconv.Quote(p))
			return
		}
		filter.Provider = typ.String()
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 || limit > MaxRunLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(MaxRunLimit))
			return
		}
		filter.Limit = limit
	}

	log := s.logger
	if sub, ok := middleware.Subject(r.Context()); ok {
		log = log.With(zap.String("subject", sub))
	}
	log.Debug("listing runs", zap.String("provider", filter.Provider), zap.Int("limit", filter.Limit))

	runs, err := s.runs.RecentRuns(r.Context(), filter)
	if err != nil {
		log.Error("failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

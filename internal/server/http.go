package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"portfolioTracker/internal/finance"
	"portfolioTracker/internal/logging"
	"portfolioTracker/internal/portfolio"
)

// Store is the part of the holdings store the HTTP surface reads.
type Store interface {
	ListHoldings(ctx context.Context, chatID int64) ([]portfolio.Holding, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Webhook http.HandlerFunc
	Store   Store
	Engine  *finance.Engine
	Logger  *logging.Logger
}

func NewHTTPMux(d Deps) *http.ServeMux {
	if d.Logger == nil {
		d.Logger = logging.NewSilent()
	}
	mux := http.NewServeMux()
	if d.Webhook != nil {
		mux.HandleFunc("/telegram/webhook", d.Webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn().Err(err).Msg("readiness check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/snapshot", snapshotHandler(d))
	return mux
}

// snapshotHandler runs a refresh for ?chat_id=N and writes the snapshot as JSON.
func snapshotHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		chatID, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
		if err != nil {
			http.Error(w, "chat_id must be an integer", http.StatusBadRequest)
			return
		}
		holdings, err := d.Store.ListHoldings(r.Context(), chatID)
		if err != nil {
			d.Logger.Error().Err(err).Int64("chat_id", chatID).Msg("list holdings failed")
			http.Error(w, "listing holdings failed", http.StatusInternalServerError)
			return
		}

		snap := d.Engine.Refresh(r.Context(), holdings, nil)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			d.Logger.Warn().Err(err).Msg("snapshot encode failed")
		}
	}
}

type Server struct {
	srv    *http.Server
	logger *logging.Logger
}

func New(addr string, handler http.Handler, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewSilent()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("http: listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

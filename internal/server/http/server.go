package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	"github.com/gauthamkulal77/audio-pipeline/internal/server/http/controllers"
	deletionsvc "github.com/gauthamkulal77/audio-pipeline/internal/services/deletion"
	ingestsvc "github.com/gauthamkulal77/audio-pipeline/internal/services/ingest"
	querysvc "github.com/gauthamkulal77/audio-pipeline/internal/services/query"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

type Server struct {
	rt       *runtime.Runtime
	srv      *http.Server
	lis      net.Listener
	logger   logpkg.Logger
	registry *controllers.ControllerRegistry
}

func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = rt.Logger()
	}
	svcs := controllers.Services{
		Ingest:   ingestsvc.New(rt, logger),
		Query:    querysvc.New(rt, logger),
		Deletion: deletionsvc.New(rt, logger),
	}
	mux := http.NewServeMux()
	registry := controllers.NewControllerRegistry(rt, svcs, logger)
	registry.RegisterAllRoutes(mux)

	s := &Server{
		rt:       rt,
		logger:   logger.WithComponent("http"),
		registry: registry,
		srv: &http.Server{
			Handler:           cors(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.srv.RegisterOnShutdown(registry.Shutdown)
	return s
}

// Handler returns the root handler, for embedding in tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
	s.registry.Shutdown()
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

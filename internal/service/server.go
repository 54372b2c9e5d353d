package service

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"aquawatch/internal/config"
)

type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}
	return &Server{httpServer: s, shutdownTimeout: cfg.ShutdownTimeout, logger: logger}
}

func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts on l until Stop.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting aquawatch console API", zap.String("addr", l.Addr().String()))
	return s.httpServer.Serve(l)
}

// Stop drains in-flight requests for at most the shutdown timeout, then drops the rest.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping aquawatch console API", zap.Duration("timeout", s.shutdownTimeout))
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		_ = s.httpServer.Close()
		return err
	}
	return nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/util"

	"go.uber.org/zap"
)

// Server accepts TCP connections and runs one handler goroutine per client.
type Server struct {
	addr     string
	handler  *Handler
	registry *Registry
	logger   *zap.Logger

	ln     net.Listener
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a new TCP server
func New(addr string, handler *Handler, registry *Registry) *Server {
	return &Server{
		addr:     addr,
		handler:  handler,
		registry: registry,
		logger:   util.GetLogger(),
	}
}

// Start binds the listener and launches the accept loop. It returns once the
// listener is bound; accept errors after Stop are swallowed.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.ln = ln

	ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Info("Listening", zap.String("addr", s.addr))

	s.wg.Add(1)
	go s.acceptLoop(ctx)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Accept failed", zap.Error(err))
			continue
		}

		s.logger.Info("Connection accepted", zap.String("remote", conn.RemoteAddr().String()))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handler.Handle(ctx, conn)
		}()
	}
}

// Addr returns the bound listener address, useful when Start was given
// port 0.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop closes the listener and every live session, then waits for handler
// goroutines to drain.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.registry.CloseAll()
	s.wg.Wait()
	s.logger.Info("Server stopped")
}

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Server exposes a raft node to its peers over net/rpc and to operators over HTTP
type Server struct {
	rpc  *rpc.Server
	http *http.Server

	rpcListener  net.Listener
	httpListener net.Listener

	// Accepted peer connections, closed on shutdown
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// New builds a server for c. kv may be nil when no store backs the node.
func New(c Coordinator, kv KeyValues, rpcTimeout time.Duration) (*Server, error) {
	s := &Server{
		rpc:   rpc.NewServer(),
		conns: make(map[net.Conn]struct{}),
		http: &http.Server{
			Handler:           Router(c, kv),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	if err := s.rpc.RegisterName("Raft", NewRPCService(c, rpcTimeout)); err != nil {
		return nil, err
	}

	return s, nil
}

// Listen binds the rpc and http listeners. An empty httpAddr disables the API.
func (s *Server) Listen(rpcAddr, httpAddr string) error {
	l, err := net.Listen("tcp", rpcAddr)
	if err != nil {
		return err
	}

	s.rpcListener = l

	if httpAddr == "" {
		return nil
	}

	hl, err := net.Listen("tcp", httpAddr)
	if err != nil {
		l.Close()
		return err
	}

	s.httpListener = hl

	return nil
}

// RPCAddr is the bound rpc address, useful when listening on port 0
func (s *Server) RPCAddr() string {
	if s.rpcListener == nil {
		return ""
	}

	return s.rpcListener.Addr().String()
}

func (s *Server) HTTPAddr() string {
	if s.httpListener == nil {
		return ""
	}

	return s.httpListener.Addr().String()
}

// Serve accepts connections until ctx is done
func (s *Server) Serve(ctx context.Context) error {
	if s.rpcListener == nil {
		return errors.New("server is not listening")
	}

	log.Infof("Listening for rpc on %s", s.RPCAddr())
	s.wg.Add(1)
	go s.accept()

	errc := make(chan error, 1)

	if s.httpListener != nil {
		log.Infof("Listening for http on %s", s.HTTPAddr())

		go func() {
			if err := s.http.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
		log.Errorf("http server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.http.Shutdown(shutdownCtx)
	s.rpcListener.Close()
	s.closeConns()
	s.wg.Wait()

	log.Debug("Listen ending")

	return err
}

func (s *Server) accept() {
	defer s.wg.Done()

	for {
		conn, err := s.rpcListener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Errorf("rpc accept failed: %v", err)
			}
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			s.rpc.ServeConn(conn)

			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
}

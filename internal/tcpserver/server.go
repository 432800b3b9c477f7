package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tinytelemetry/logsift/internal/model"
)

// ServerConfig holds tunable parameters for the TCP server. Zero values
// leave the corresponding limit off.
type ServerConfig struct {
	// MaxConnections bounds concurrently served sessions. The accept loop
	// waits for a free slot once the bound is reached.
	MaxConnections int
	// ReadTimeout bounds the time a peer may take to half-close.
	ReadTimeout time.Duration
	// MaxPayload bounds the bytes read from one peer.
	MaxPayload int64
	// Observers are notified of every finished session.
	Observers []model.Observer
}

// Server accepts one analysis request per TCP connection.
type Server struct {
	listener    net.Listener
	addr        string
	readTimeout time.Duration
	maxPayload  int64
	slots       *semaphore.Weighted
	observers   []model.Observer
	active      atomic.Int64
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	loopDone    chan struct{}
	loopErr     error
}

// DefaultAddr is the listen address used when NewServer gets "".
var DefaultAddr = net.JoinHostPort(model.DefaultBindHost, strconv.Itoa(model.DefaultTCPPort))

// NewServer creates a new TCP server listening on addr.
func NewServer(addr string, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:     addr,
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
	if len(conf) > 0 {
		c := conf[0]
		if c.MaxConnections > 0 {
			s.slots = semaphore.NewWeighted(int64(c.MaxConnections))
		}
		if c.ReadTimeout > 0 {
			s.readTimeout = c.ReadTimeout
		}
		if c.MaxPayload > 0 {
			s.maxPayload = c.MaxPayload
		}
		s.observers = append(s.observers, c.Observers...)
	}
	return s
}

// Start begins accepting TCP connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	defer close(s.loopDone)
	for {
		if s.slots != nil {
			if err := s.slots.Acquire(s.ctx, 1); err != nil {
				return
			}
		}
		conn, err := s.listener.Accept()
		if err != nil {
			s.releaseSlot()
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.loopErr = fmt.Errorf("tcpserver: listener closed: %w", err)
				return
			}
			log.Printf("tcpserver: accept error: %v", err)
			continue
		}
		s.wg.Add(1)
		s.active.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.releaseSlot()
			defer s.active.Add(-1)
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) releaseSlot() {
	if s.slots != nil {
		s.slots.Release(1)
	}
}

// Wait blocks until the accept loop started by Start exits. It returns nil
// after Stop and an error when the listener failed on its own.
func (s *Server) Wait() error {
	<-s.loopDone
	return s.loopErr
}

// ActiveConnections reports the number of sessions currently being served.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// Stop closes the listener and waits for in-flight sessions to finish.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

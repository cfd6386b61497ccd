package diag

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// TCP log server defaults.
const (
	// DefaultLogAddr is the listen address of the remote log server.
	DefaultLogAddr = ":2000"

	// DefaultWriteTimeout bounds a single write to the attached client.
	DefaultWriteTimeout = 100 * time.Millisecond

	// DefaultQueue is how many lines may wait for the writer.
	DefaultQueue = 64
)

// ErrServerClosed is returned by Start after Close.
var ErrServerClosed = errors.New("log server closed")

// TCPConfig configures a LogServer.
type TCPConfig struct {
	Addr         string
	WriteTimeout time.Duration
	Queue        int
	Logger       *slog.Logger
}

// DefaultTCPConfig returns the default log server configuration.
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		Addr:         DefaultLogAddr,
		WriteTimeout: DefaultWriteTimeout,
		Queue:        DefaultQueue,
	}
}

// LogServer streams log lines to one attached TCP client. A newly accepted
// client replaces the previous one.
type LogServer struct {
	config TCPConfig

	mu       sync.Mutex
	listener net.Listener
	client   net.Conn
	closed   bool
	dropped  int

	lines chan []byte
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewLogServer creates a log server. Call Start to listen.
func NewLogServer(config TCPConfig) *LogServer {
	if config.Addr == "" {
		config.Addr = DefaultLogAddr
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.Queue <= 0 {
		config.Queue = DefaultQueue
	}
	return &LogServer{
		config: config,
		lines:  make(chan []byte, config.Queue),
		done:   make(chan struct{}),
	}
}

// Start begins listening and accepting clients.
func (s *LogServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.wg.Add(2)
	go s.acceptLoop(ln)
	go s.writeLoop()
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *LogServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Attached returns true while a client is connected.
func (s *LogServer) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Dropped returns how many lines were discarded.
func (s *LogServer) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Offer queues a line for the attached client. Lines offered with no client
// attached, or while the queue is full, are dropped.
func (s *LogServer) Offer(line []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.client == nil {
		return false
	}
	select {
	case s.lines <- line:
		return true
	default:
		s.dropped++
		return false
	}
}

// Close stops the server and disconnects the client.
func (s *LogServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *LogServer) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		if s.client != nil {
			s.client.Close()
		}
		s.client = conn
		s.mu.Unlock()

		s.debugLog("log client attached", "remote", conn.RemoteAddr().String())
	}
}

func (s *LogServer) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case line := <-s.lines:
			s.write(line)
		}
	}
}

func (s *LogServer) write(line []byte) {
	s.mu.Lock()
	conn := s.client
	s.mu.Unlock()
	if conn == nil {
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if _, err := conn.Write(line); err != nil {
		s.mu.Lock()
		if s.client == conn {
			s.client = nil
			s.dropped++
		}
		s.mu.Unlock()
		conn.Close()
	}
}

func (s *LogServer) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

var _ Sink = (*LogServer)(nil)

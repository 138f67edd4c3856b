package zmsg

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrServerClosed is returned by Run when the server has already been
// started. A server serves one Run per lifetime; create a new one to
// listen again.
var ErrServerClosed = errors.New("server closed")

// Server is a TCP server that accepts connections and serves each one
// with the routed request/response loop. Every accepted connection gets
// its own read and write goroutines; all of them share the server's
// router and stats.
type Server struct {
	addr   string
	router *Router
	logger Logger
	opts   options
	stats  *serverStats

	mu       sync.Mutex
	listener *net.TCPListener
	started  bool
	shutdown bool
}

// NewServer creates a TCP server that will listen on addr and dispatch
// incoming frames through router. The constructor performs no I/O; the
// listener is bound when Run is called. Options apply to the server and
// to every connection it accepts.
// Returns ErrInvalidRouter if router is nil.
func NewServer(addr string, router *Router, opt ...Option) (*Server, error) {
	if router == nil {
		return nil, ErrInvalidRouter
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	return &Server{
		addr:   addr,
		router: router,
		logger: opts.logger,
		opts:   opts,
		stats:  newServerStats(),
	}, nil
}

// Run binds the listener and accepts connections until the context is
// canceled. Cancellation stops the accept loop, tears down every live
// connection and returns nil once all of them have been joined, so a
// caller returning from Run can be sure no connection goroutines
// remain. Failing to bind is the only error Run reports; accept
// failures are logged and retried so one bad accept cannot take the
// server down. Run may be called at most once; later calls return
// ErrServerClosed.
func (s *Server) Run(ctx context.Context) error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", s.addr)
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.started = true
	s.mu.Unlock()

	listener, err := net.ListenTCP(tcpAddr.Network(), tcpAddr)
	if err != nil {
		return errors.Wrapf(err, "bind %s", s.addr)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	defer listener.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("server started", "addr", listener.Addr())

	// Unblock Accept as soon as the context fires. The shutdown flag is
	// set first so the accept loop can tell a wakeup from a real error.
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.SetDeadline(time.Now())
	}()

	var group errgroup.Group

	for {
		conn, err := listener.AcceptTCP()
		if err != nil {
			if s.isShutdown() {
				break
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			// Transient accept failure: keep serving. The pause keeps a
			// repeating failure from spinning the loop.
			s.logger.Error("accept error", "error", err)
			time.Sleep(time.Millisecond * 10)
			continue
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)
		s.stats.connOpened()

		c := newConn(conn, s.router, s.opts, s.stats)
		group.Go(func() error {
			defer s.stats.connClosed()
			// Connection failures are logged, never propagated: one bad
			// peer must not take down its neighbours or the server.
			if err := c.Run(ctx); err != nil {
				s.logger.Warn("connection error", "addr", c.Addr(), "error", err)
			}
			return nil
		})
	}

	// Release the port before draining so nothing new can connect while
	// live connections finish tearing down.
	_ = listener.Close()
	cancel()
	_ = group.Wait()

	s.logger.Info("server stopped", "addr", listener.Addr())
	return nil
}

// isShutdown reports whether shutdown has been requested.
func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// Addr returns the listener's network address, or nil before Run has
// bound the listener. Useful with a ":0" listen address to discover the
// port the kernel picked.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats returns a snapshot of the server's traffic counters.
func (s *Server) Stats() Stats {
	return s.stats.snapshot()
}

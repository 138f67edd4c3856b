// Package zmsg provides a small TCP server framework for routed
// request/response messaging. Frames carry a message id and an opaque
// payload; applications register a handler per message id on a Router,
// and the server decodes incoming frames, dispatches each one to its
// handler and writes the returned response back on the same connection.
package zmsg

import (
	"bufio"
	"context"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Errors returned by connection operations.
var (
	// ErrInvalidRouter is returned when no router is provided.
	ErrInvalidRouter = errors.New("invalid router")
	// ErrHandlerPanic is returned when a registered handler panics while
	// processing a request. The connection it occurred on is torn down.
	ErrHandlerPanic = errors.New("handler panic")
)

// errPeerClosed marks a connection the remote side closed cleanly on a
// frame boundary. The read loop turns it into a drain of the send queue
// so responses already produced still reach the peer.
var errPeerClosed = errors.New("peer closed connection")

// defaultSendBuffer is the default capacity of the response queue
// between the read loop and the write loop.
const defaultSendBuffer = 16

// ConnState describes the lifecycle stage of a connection.
type ConnState int32

// Connection lifecycle states. A connection starts Active, moves to
// Closing once teardown begins and ends Closed when both loops have
// exited and the socket is released.
const (
	StateActive ConnState = iota
	StateClosing
	StateClosed
)

// String returns a human-readable state name.
func (s ConnState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn represents a single accepted TCP connection. A dedicated read
// loop decodes frames and dispatches them to the router; responses are
// queued, in dispatch order, to a dedicated write loop. Responses on a
// connection are therefore written in the order their requests arrived.
type Conn struct {
	rawConn *net.TCPConn
	reader  *bufio.Reader

	router *Router
	pack   *DataPack
	logger Logger
	stats  *serverStats
	opts   options

	// sendq carries packed frames from the read loop to the write loop.
	// Only the read loop sends on it or closes it.
	sendq chan []byte

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewConn creates a connection wrapper around the given TCP connection.
// It applies the provided options and fills in defaults before
// returning. The connection does nothing until Run is called.
// Returns ErrInvalidRouter if router is nil.
func NewConn(conn *net.TCPConn, router *Router, opt ...Option) (*Conn, error) {
	if router == nil {
		return nil, ErrInvalidRouter
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	return newConn(conn, router, opts, newServerStats()), nil
}

// checkOptions sets default values for connection options.
func checkOptions(opts *options) {
	if opts.maxFrameLen == 0 {
		opts.maxFrameLen = DefaultMaxFrameLen
	}

	if opts.sendBuffer <= 0 {
		opts.sendBuffer = defaultSendBuffer
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}

// newConn creates a Conn with the given options. The server passes its
// own stats so every connection aggregates into one snapshot.
func newConn(c *net.TCPConn, router *Router, opts options, stats *serverStats) *Conn {
	return &Conn{
		rawConn: c,
		reader:  bufio.NewReader(c),
		router:  router,
		pack:    NewDataPack(opts.maxFrameLen),
		logger:  opts.logger,
		stats:   stats,
		opts:    opts,
		sendq:   make(chan []byte, opts.sendBuffer),
	}
}

// Run starts the connection's read and write loops and blocks until the
// peer disconnects, the context is canceled or an unrecoverable error
// occurs. On a clean disconnect, responses already queued are written
// out before the connection closes. The connection is closed when Run
// returns.
//
// A clean disconnect and a canceled context both return nil; protocol
// violations, I/O failures and handler panics are returned to the
// caller.
func (c *Conn) Run(ctx context.Context) error {
	c.logger.Info("connection established", "addr", c.Addr())
	c.logger.Debug("connection options", "addr", c.Addr(),
		"max_frame_len", c.opts.maxFrameLen,
		"send_buffer", c.opts.sendBuffer,
		"idle_timeout", c.opts.idleTimeout)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	// Close may have run before cancel was published; observe it now.
	if c.State() != StateActive {
		cancel()
	}

	group, child := errgroup.WithContext(ctx)

	// Wake a loop blocked in a socket call as soon as teardown starts,
	// either because the context was canceled or because a loop failed.
	go func() {
		<-child.Done()
		c.state.CompareAndSwap(int32(StateActive), int32(StateClosing))
		_ = c.rawConn.SetReadDeadline(time.Now())
		_ = c.rawConn.SetWriteDeadline(time.Now())
	}()

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	err := group.Wait()
	c.closeConn()

	switch {
	case err == nil:
		c.logger.Info("connection closed", "addr", c.Addr())
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.logger.Info("connection closed", "addr", c.Addr(), "reason", "shutdown")
		return nil
	default:
		c.logger.Warn("connection closed", "addr", c.Addr(), "error", err)
		return err
	}
}

// Close begins teardown of the connection. It cancels the loops and
// closes the underlying TCP connection. Safe to call multiple times.
func (c *Conn) Close() error {
	if !c.state.CompareAndSwap(int32(StateActive), int32(StateClosing)) {
		return nil // teardown already in progress
	}

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	return c.rawConn.Close()
}

// State reports the connection's lifecycle stage.
func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

// IsClosed returns true if the connection has fully shut down.
func (c *Conn) IsClosed() bool {
	return c.State() == StateClosed
}

// Addr returns the remote address of the connection.
func (c *Conn) Addr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// readLoop continuously decodes frames and dispatches them. A frame is
// read in full before dispatch, so a handler never observes a partial
// payload. On clean peer EOF it closes the send queue and returns nil,
// leaving the write loop to drain what handlers already produced.
// Returns an error when the context is canceled or the frame stream is
// unrecoverable.
func (c *Conn) readLoop(ctx context.Context) error {
	header := make([]byte, HeaderLen)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.opts.idleTimeout > 0 {
			_ = c.rawConn.SetReadDeadline(time.Now().Add(c.opts.idleTimeout))
			// Arming the idle deadline can overwrite the immediate one set
			// at teardown; check again so shutdown is not delayed by a full
			// idle interval.
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		if _, err := io.ReadFull(c.reader, header); err != nil {
			err = c.readErr(ctx, err)
			if errors.Is(err, errPeerClosed) {
				// No more requests will arrive. Closing the queue lets the
				// write loop finish delivering the responses still queued.
				close(c.sendq)
				return nil
			}
			return err
		}

		msgID, dataLen, err := c.pack.UnpackHeader(header)
		if err != nil {
			c.stats.protocolError()
			return err
		}

		data := make([]byte, dataLen)
		if dataLen > 0 {
			if _, err := io.ReadFull(c.reader, data); err != nil {
				c.stats.protocolError()
				return errors.Wrap(err, "read frame payload")
			}
		}
		c.stats.frameRead(HeaderLen + int(dataLen))

		resp, err := c.dispatch(NewRequest(msgID, data))
		if err != nil {
			return err
		}
		if resp == nil {
			continue
		}

		frame, err := c.pack.Pack(resp.MsgID(), resp.Data())
		if err != nil {
			return errors.Wrapf(err, "pack response for msg id %d", resp.MsgID())
		}

		select {
		case c.sendq <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readErr classifies a failed header read. A deadline hit during
// teardown surfaces as the context error; EOF on a frame boundary is a
// clean close; EOF inside a header is a protocol violation.
func (c *Conn) readErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if errors.Is(err, io.EOF) {
		return errPeerClosed
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		c.stats.protocolError()
		return errors.Wrap(err, "short frame header")
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return errors.Wrap(err, "idle timeout")
	}

	return errors.Wrap(err, "read frame header")
}

// dispatch routes a request to its handler, converting a handler panic
// into an error so one misbehaving handler cannot take the process
// down. Requests with no registered handler are dropped.
func (c *Conn) dispatch(req *Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panic", "addr", c.Addr(),
				"msg_id", req.MsgID(),
				"panic", r,
				"stack", string(debug.Stack()))
			err = errors.WithMessagef(ErrHandlerPanic, "msg id %d: %v", req.MsgID(), r)
		}
	}()

	var ok bool
	resp, ok = c.router.Dispatch(req)
	if !ok {
		c.stats.frameDropped()
		c.logger.Debug("no handler for message", "addr", c.Addr(), "msg_id", req.MsgID())
		return nil, nil
	}

	return resp, nil
}

// writeLoop continuously sends frames from the send queue to the
// connection. Frames are written in queue order, which is dispatch
// order. Returns nil once the queue is closed and fully drained, and an
// error when the context is canceled or a write fails.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-c.sendq:
			if !ok {
				return nil
			}
			if err := c.write(frame); err != nil {
				return err
			}
		}
	}
}

// write sends a single frame to the connection in full.
func (c *Conn) write(frame []byte) error {
	if c.opts.idleTimeout > 0 {
		_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.opts.idleTimeout))
	}

	if _, err := c.rawConn.Write(frame); err != nil {
		return errors.Wrap(err, "write frame")
	}

	c.stats.frameWritten(len(frame))
	return nil
}

// closeConn marks the connection closed and releases the socket. The
// derived context is released by Run's deferred cancel.
func (c *Conn) closeConn() {
	c.state.Store(int32(StateClosed))
	_ = c.rawConn.Close()
}

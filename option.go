package zmsg

import (
	"time"
)

// options holds the configuration shared by a Server and the
// connections it spawns.
type options struct {
	logger Logger

	maxFrameLen uint32        // maximum payload size of a single frame
	sendBuffer  int           // size of the buffered response channel
	idleTimeout time.Duration // per-read idle deadline; zero disables
}

// Option is a function that configures a Server or a Conn.
type Option func(*options)

// MaxFrameLenOption returns an Option that sets the maximum payload
// size accepted or produced on a connection. Frames advertising more
// are rejected as a protocol error and close the connection. The
// default is DefaultMaxFrameLen.
func MaxFrameLenOption(n uint32) Option {
	return func(o *options) {
		o.maxFrameLen = n
	}
}

// BufferSizeOption returns an Option that sets the size of the response
// channel between a connection's dispatch loop and its write loop. A
// larger buffer lets more responses queue before dispatch blocks.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.sendBuffer = size
	}
}

// IdleTimeoutOption returns an Option that sets a read-idle deadline: a
// connection that starts no frame within the duration is closed. Zero,
// the default, disables the deadline and connections wait forever.
func IdleTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

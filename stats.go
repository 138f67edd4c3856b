package zmsg

import "sync/atomic"

// Stats is a point-in-time snapshot of server counters, taken with
// Server.Stats. Counters are cumulative since Run started except
// ActiveConns, which is the current number of live connections.
type Stats struct {
	ActiveConns    int64 // connections currently being served
	TotalConns     int64 // connections accepted since start
	FramesRead     int64 // complete frames decoded
	FramesWritten  int64 // response frames written
	BytesRead      int64 // wire bytes read, headers included
	BytesWritten   int64 // wire bytes written, headers included
	FramesDropped  int64 // frames with no registered handler
	ProtocolErrors int64 // malformed or oversized frames
}

// serverStats holds the live counters. Connections written by the same
// server share one instance; a standalone Conn gets its own.
type serverStats struct {
	activeConns    atomic.Int64
	totalConns     atomic.Int64
	framesRead     atomic.Int64
	framesWritten  atomic.Int64
	bytesRead      atomic.Int64
	bytesWritten   atomic.Int64
	framesDropped  atomic.Int64
	protocolErrors atomic.Int64
}

func newServerStats() *serverStats {
	return &serverStats{}
}

func (s *serverStats) connOpened() {
	s.activeConns.Add(1)
	s.totalConns.Add(1)
}

func (s *serverStats) connClosed() {
	s.activeConns.Add(-1)
}

func (s *serverStats) frameRead(wireBytes int) {
	s.framesRead.Add(1)
	s.bytesRead.Add(int64(wireBytes))
}

func (s *serverStats) frameWritten(wireBytes int) {
	s.framesWritten.Add(1)
	s.bytesWritten.Add(int64(wireBytes))
}

func (s *serverStats) frameDropped() {
	s.framesDropped.Add(1)
}

func (s *serverStats) protocolError() {
	s.protocolErrors.Add(1)
}

func (s *serverStats) snapshot() Stats {
	return Stats{
		ActiveConns:    s.activeConns.Load(),
		TotalConns:     s.totalConns.Load(),
		FramesRead:     s.framesRead.Load(),
		FramesWritten:  s.framesWritten.Load(),
		BytesRead:      s.bytesRead.Load(),
		BytesWritten:   s.bytesWritten.Load(),
		FramesDropped:  s.framesDropped.Load(),
		ProtocolErrors: s.protocolErrors.Load(),
	}
}

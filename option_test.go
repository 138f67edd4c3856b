package zmsg

import (
	"testing"
	"time"
)

func TestMaxFrameLenOption(t *testing.T) {
	opt := MaxFrameLenOption(4096)

	var opts options
	opt(&opts)

	if opts.maxFrameLen != 4096 {
		t.Errorf("maxFrameLen = %d, want 4096", opts.maxFrameLen)
	}
}

func TestBufferSizeOption(t *testing.T) {
	opt := BufferSizeOption(100)

	var opts options
	opt(&opts)

	if opts.sendBuffer != 100 {
		t.Errorf("sendBuffer = %d, want 100", opts.sendBuffer)
	}
}

func TestIdleTimeoutOption(t *testing.T) {
	timeout := time.Minute * 5
	opt := IdleTimeoutOption(timeout)

	var opts options
	opt(&opts)

	if opts.idleTimeout != timeout {
		t.Errorf("idleTimeout = %v, want %v", opts.idleTimeout, timeout)
	}
}

func TestLoggerOption(t *testing.T) {
	logger := &mockLogger{}
	opt := LoggerOption(logger)

	var opts options
	opt(&opts)

	if opts.logger != logger {
		t.Error("logger not set correctly")
	}
}

func TestOptions_MultipleOptions(t *testing.T) {
	logger := &mockLogger{}
	timeout := time.Second * 45
	bufferSize := 50
	maxFrameLen := uint32(8192)

	var opts options
	all := []Option{
		MaxFrameLenOption(maxFrameLen),
		BufferSizeOption(bufferSize),
		IdleTimeoutOption(timeout),
		LoggerOption(logger),
	}

	for _, opt := range all {
		opt(&opts)
	}

	if opts.maxFrameLen != maxFrameLen {
		t.Errorf("maxFrameLen = %d, want %d", opts.maxFrameLen, maxFrameLen)
	}
	if opts.sendBuffer != bufferSize {
		t.Errorf("sendBuffer = %d, want %d", opts.sendBuffer, bufferSize)
	}
	if opts.idleTimeout != timeout {
		t.Errorf("idleTimeout = %v, want %v", opts.idleTimeout, timeout)
	}
	if opts.logger != logger {
		t.Error("logger not set")
	}
}

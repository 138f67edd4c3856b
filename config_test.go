package zmsg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	conf := DefaultConfig()

	if conf.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", conf.Addr, ":8080")
	}
	if conf.MaxFrameLen != DefaultMaxFrameLen {
		t.Errorf("MaxFrameLen = %d, want %d", conf.MaxFrameLen, DefaultMaxFrameLen)
	}
	if conf.SendBuffer != defaultSendBuffer {
		t.Errorf("SendBuffer = %d, want %d", conf.SendBuffer, defaultSendBuffer)
	}
	if conf.IdleTimeout != 0 {
		t.Errorf("IdleTimeout = %v, want 0", conf.IdleTimeout)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfigFile(t, "server.yaml", `
addr: "127.0.0.1:9000"
max_frame_len: 1024
send_buffer: 4
idle_timeout: 30s
`)

	conf, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if conf.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q, want %q", conf.Addr, "127.0.0.1:9000")
	}
	if conf.MaxFrameLen != 1024 {
		t.Errorf("MaxFrameLen = %d, want 1024", conf.MaxFrameLen)
	}
	if conf.SendBuffer != 4 {
		t.Errorf("SendBuffer = %d, want 4", conf.SendBuffer)
	}
	if conf.IdleTimeout != 30*time.Second {
		t.Errorf("IdleTimeout = %v, want 30s", conf.IdleTimeout)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfigFile(t, "server.json", `{"addr": "127.0.0.1:9001", "max_frame_len": 2048}`)

	conf, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if conf.Addr != "127.0.0.1:9001" {
		t.Errorf("Addr = %q, want %q", conf.Addr, "127.0.0.1:9001")
	}
	if conf.MaxFrameLen != 2048 {
		t.Errorf("MaxFrameLen = %d, want 2048", conf.MaxFrameLen)
	}

	// Unset keys keep their defaults.
	if conf.SendBuffer != defaultSendBuffer {
		t.Errorf("SendBuffer = %d, want default %d", conf.SendBuffer, defaultSendBuffer)
	}
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeConfigFile(t, "server.toml", `
addr = "127.0.0.1:9003"
max_frame_len = 4096
send_buffer = 8
idle_timeout = "45s"
`)

	conf, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if conf.Addr != "127.0.0.1:9003" {
		t.Errorf("Addr = %q, want %q", conf.Addr, "127.0.0.1:9003")
	}
	if conf.MaxFrameLen != 4096 {
		t.Errorf("MaxFrameLen = %d, want 4096", conf.MaxFrameLen)
	}
	if conf.SendBuffer != 8 {
		t.Errorf("SendBuffer = %d, want 8", conf.SendBuffer)
	}
	if conf.IdleTimeout != 45*time.Second {
		t.Errorf("IdleTimeout = %v, want 45s", conf.IdleTimeout)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestConfig_Options(t *testing.T) {
	conf := &Config{
		Addr:        ":9002",
		MaxFrameLen: 512,
		SendBuffer:  2,
		IdleTimeout: time.Minute,
	}

	var opts options
	for _, opt := range conf.Options() {
		opt(&opts)
	}

	if opts.maxFrameLen != 512 {
		t.Errorf("maxFrameLen = %d, want 512", opts.maxFrameLen)
	}
	if opts.sendBuffer != 2 {
		t.Errorf("sendBuffer = %d, want 2", opts.sendBuffer)
	}
	if opts.idleTimeout != time.Minute {
		t.Errorf("idleTimeout = %v, want %v", opts.idleTimeout, time.Minute)
	}
}

func TestConfig_String(t *testing.T) {
	s := DefaultConfig().String()

	if !strings.Contains(s, `"addr"`) {
		t.Errorf("String() = %q, want it to contain %q", s, `"addr"`)
	}
}

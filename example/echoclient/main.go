package main

import (
	"flag"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/Zereker/zmsg"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		slog.Error("failed to connect", "addr", *addr, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	pack := zmsg.NewDataPack(0)

	// Send one request: msg_id=1, data="test".
	frame, err := pack.Pack(1, []byte("test"))
	if err != nil {
		slog.Error("failed to pack request", "error", err)
		os.Exit(1)
	}
	if _, err = conn.Write(frame); err != nil {
		slog.Error("failed to send request", "error", err)
		os.Exit(1)
	}
	slog.Info("sent request", "msg_id", 1, "data", "test")

	// Read the response header, then the payload.
	header := make([]byte, zmsg.HeaderLen)
	if _, err = io.ReadFull(conn, header); err != nil {
		slog.Error("failed to read response header", "error", err)
		os.Exit(1)
	}

	msgID, dataLen, err := pack.UnpackHeader(header)
	if err != nil {
		slog.Error("failed to unpack response header", "error", err)
		os.Exit(1)
	}
	slog.Info("received response header", "msg_id", msgID, "data_len", dataLen)

	data := make([]byte, dataLen)
	if _, err = io.ReadFull(conn, data); err != nil {
		slog.Error("failed to read response payload", "error", err)
		os.Exit(1)
	}

	slog.Info("received response", "msg_id", msgID, "data", string(data))
}

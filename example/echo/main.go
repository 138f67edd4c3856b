package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zereker/zmsg"
	"github.com/Zereker/zmsg/zaplog"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml/json/toml config file")
	flag.Parse()

	logger := zaplog.NewConsole(zaplog.DEBUG)
	defer func() { _ = logger.Sync() }()

	conf := zmsg.DefaultConfig()
	if *configPath != "" {
		loaded, err := zmsg.LoadConfig(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			return
		}
		conf = loaded
	}
	logger.Info("starting echo server", "config", conf.String())

	router := zmsg.NewRouter()

	// Route 1 echoes the request payload back unchanged.
	router.AddRoute(1, func(req *zmsg.Request) *zmsg.Response {
		logger.Info("received echo request", "data", string(req.Data()))
		return zmsg.NewResponse(req.MsgID(), req.Data())
	})

	// Unknown message ids get an explicit 404 instead of silence.
	router.OnNotFound(func(req *zmsg.Request) *zmsg.Response {
		logger.Warn("no route for message", "msg_id", req.MsgID())
		return zmsg.NotFound()
	})

	opts := append(conf.Options(), zmsg.LoggerOption(logger))
	server, err := zmsg.NewServer(conf.Addr, router, opts...)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		return
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down server...")
		cancel()
	}()

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
	}
}

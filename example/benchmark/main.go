package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zereker/zmsg"
	"github.com/Zereker/zmsg/metrics"
	"github.com/Zereker/zmsg/zaplog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	serverAddr  = "127.0.0.1:8888"
	metricsAddr = "127.0.0.1:9090"
	payloadSize = 64
)

// benchmarkReport is the machine-readable form of the results block.
type benchmarkReport struct {
	Connections     int     `json:"connections"`
	RequestsPerConn int     `json:"requests_per_conn"`
	TotalRequests   int     `json:"total_requests"`
	Completed       int64   `json:"completed"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	AvgLatencyUs    float64 `json:"avg_latency_us"`
	ThroughputRPS   float64 `json:"throughput_rps"`
}

func main() {
	mode := ""
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "server":
		runServer()
	case "client":
		connections := argInt(2, 100)
		requestsPerConn := argInt(3, 1000)
		runClient(connections, requestsPerConn)
	default:
		fmt.Println("usage: benchmark [server|client] [connections] [requests per connection]")
		fmt.Println("  server - start the benchmark server")
		fmt.Println("  client - run the client load test")
	}
}

func argInt(i, fallback int) int {
	if len(os.Args) > i {
		if n, err := strconv.Atoi(os.Args[i]); err == nil {
			return n
		}
	}
	return fallback
}

func runServer() {
	// Keep the hot path quiet: warnings only.
	logger := zaplog.NewConsole(zaplog.WARNING)

	router := zmsg.NewRouter()
	router.AddRoute(1, func(req *zmsg.Request) *zmsg.Response {
		return zmsg.NewResponse(req.MsgID(), req.Data())
	})

	server, err := zmsg.NewServer(serverAddr, router, zmsg.LoggerOption(logger))
	if err != nil {
		fmt.Println("[Server] create failed:", err)
		return
	}

	// Prometheus scrape endpoint for the traffic counters.
	metrics.Register(server)
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(metricsAddr, nil)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Report RPS once a second from the stats snapshot.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		var lastCount int64
		lastTime := time.Now()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := server.Stats()
				now := time.Now()
				elapsed := now.Sub(lastTime).Seconds()

				rps := float64(stats.FramesRead-lastCount) / elapsed
				fmt.Printf("[Stats] current RPS: %.2f req/s, total requests: %d, active conns: %d\n",
					rps, stats.FramesRead, stats.ActiveConns)

				lastCount = stats.FramesRead
				lastTime = now
			}
		}
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("[Server] stop signal received, shutting down...")
		cancel()
	}()

	fmt.Println("[Server] benchmark server listening on", serverAddr)
	fmt.Println("[Server] metrics available on", metricsAddr+"/metrics")
	fmt.Println("[Server] press Ctrl+C to stop...")

	if err := server.Run(ctx); err != nil {
		fmt.Println("[Server] run error:", err)
		return
	}
	fmt.Println("[Server] server stopped")
}

func runClient(connections, requestsPerConn int) {
	fmt.Printf("[Client] starting benchmark: %d connections, %d requests each\n",
		connections, requestsPerConn)

	var (
		completed    atomic.Int64
		totalLatency atomic.Int64 // microseconds
	)
	totalRequests := connections * requestsPerConn

	var ready, done sync.WaitGroup
	start := make(chan struct{})

	ready.Add(connections)
	done.Add(connections)

	for i := 0; i < connections; i++ {
		go func(id int) {
			defer done.Done()

			conn, err := net.Dial("tcp", serverAddr)
			if err != nil {
				ready.Done()
				fmt.Printf("[Client %d] connect failed: %v\n", id, err)
				return
			}
			defer conn.Close()

			// All connections dial first and start together.
			ready.Done()
			<-start

			runRequests(id, conn, requestsPerConn, &completed, &totalLatency)
		}(i)
	}

	ready.Wait()
	fmt.Println("[Client] all connections ready, starting...")
	startTime := time.Now()
	close(start)

	// Progress line once a second until every request is in.
	progressDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-progressDone:
				return
			case <-ticker.C:
				c := completed.Load()
				fmt.Printf("[Progress] %.2f%% (%d/%d)\n",
					float64(c)/float64(totalRequests)*100, c, totalRequests)
			}
		}
	}()

	done.Wait()
	close(progressDone)

	elapsed := time.Since(startTime)
	c := completed.Load()
	avgLatency := 0.0
	if c > 0 {
		avgLatency = float64(totalLatency.Load()) / float64(c)
	}

	fmt.Println("\n===== benchmark results =====")
	fmt.Printf("connections:        %d\n", connections)
	fmt.Printf("requests per conn:  %d\n", requestsPerConn)
	fmt.Printf("total requests:     %d\n", totalRequests)
	fmt.Printf("completed requests: %d\n", c)
	fmt.Printf("elapsed:            %.2f s\n", elapsed.Seconds())
	fmt.Printf("average latency:    %.2f us\n", avgLatency)
	fmt.Printf("throughput:         %.2f req/s\n", float64(c)/elapsed.Seconds())

	// One JSON line at the end for scripts that scrape the run.
	report := benchmarkReport{
		Connections:     connections,
		RequestsPerConn: requestsPerConn,
		TotalRequests:   totalRequests,
		Completed:       c,
		ElapsedSeconds:  elapsed.Seconds(),
		AvgLatencyUs:    avgLatency,
		ThroughputRPS:   float64(c) / elapsed.Seconds(),
	}
	if out, err := json.Marshal(report); err == nil {
		fmt.Println(string(out))
	}
}

func runRequests(id int, conn net.Conn, count int, completed, totalLatency *atomic.Int64) {
	pack := zmsg.NewDataPack(0)
	payload := bytes.Repeat([]byte{'A'}, payloadSize)
	header := make([]byte, zmsg.HeaderLen)

	request, err := pack.Pack(1, payload)
	if err != nil {
		fmt.Printf("[Client %d] pack failed: %v\n", id, err)
		return
	}

	for i := 0; i < count; i++ {
		requestStart := time.Now()

		if _, err := conn.Write(request); err != nil {
			fmt.Printf("[Client %d] send failed: %v\n", id, err)
			return
		}

		if _, err := io.ReadFull(conn, header); err != nil {
			fmt.Printf("[Client %d] read header failed: %v\n", id, err)
			return
		}
		_, dataLen, err := pack.UnpackHeader(header)
		if err != nil {
			fmt.Printf("[Client %d] unpack header failed: %v\n", id, err)
			return
		}

		data := make([]byte, dataLen)
		if _, err := io.ReadFull(conn, data); err != nil {
			fmt.Printf("[Client %d] read payload failed: %v\n", id, err)
			return
		}

		totalLatency.Add(time.Since(requestStart).Microseconds())
		completed.Add(1)
	}
}

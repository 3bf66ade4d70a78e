package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"snaketron.dev/partition"
	"snaketron.dev/transport/ws"
)

// Config is built by layering defaults -> JSON config file -> CLI flag
// overrides, exactly as the teacher's server/main.go does.
type Config struct {
	Port            int     `json:"port"`
	MetricsPort     int     `json:"metrics_port"`
	ServerID        string  `json:"server_id"`
	PartitionCount  int     `json:"partition_count"`
	OwnedPartitions []int   `json:"owned_partitions"`
	PollIntervalMs  int     `json:"poll_interval_ms"`
	SnapshotPeriod  uint32  `json:"snapshot_period"`
}

func DefaultConfig() Config {
	serverID := "snaketron-node"
	if host, err := os.Hostname(); err == nil && host != "" {
		serverID = host
	}
	return Config{
		Port:            8080,
		MetricsPort:     9090,
		ServerID:        serverID,
		PartitionCount:  partition.DefaultPartitionCount,
		OwnedPartitions: []int{1},
		PollIntervalMs:  50,
		SnapshotPeriod:  partition.SnapshotPeriod,
	}
}

func main() {
	port := flag.Int("port", 0, "Server port")
	metricsPort := flag.Int("metrics-port", 0, "Prometheus metrics port")
	configFile := flag.String("config", "", "Path to JSON config file")
	partitions := flag.String("owned-partitions", "", "Comma-separated partition numbers this node owns")
	pollIntervalMs := flag.Int("poll-interval-ms", 0, "Partition executor poll interval in milliseconds")
	flag.Parse()

	log.SetLevel(log.InfoLevel)

	cfg := DefaultConfig()

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			log.Fatal("failed to read config file", "path", *configFile, "error", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			log.Fatal("failed to parse config file", "path", *configFile, "error", err)
		}
		log.Info("loaded config from file", "path", *configFile)
	}

	if *port > 0 {
		cfg.Port = *port
	}
	if *metricsPort > 0 {
		cfg.MetricsPort = *metricsPort
	}
	if *pollIntervalMs > 0 {
		cfg.PollIntervalMs = *pollIntervalMs
	}
	if *partitions != "" {
		owned, err := parsePartitionList(*partitions)
		if err != nil {
			log.Fatal("invalid --owned-partitions", "error", err)
		}
		cfg.OwnedPartitions = owned
	}

	log.Info("config", "port", cfg.Port, "metrics_port", cfg.MetricsPort,
		"partition_count", cfg.PartitionCount, "owned_partitions", cfg.OwnedPartitions)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gw := ws.NewGateway(cfg.PartitionCount, cfg.ServerID)
	executors := make(map[int]*partition.Executor, len(cfg.OwnedPartitions))

	for _, p := range cfg.OwnedPartitions {
		executors[p] = runPartition(ctx, gw, p, cfg)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		out := make(map[string][]partition.GameStats, len(executors))
		for p, ex := range executors {
			out[strconv.Itoa(p)] = ex.Stats()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsAddr := fmt.Sprintf("0.0.0.0:%d", cfg.MetricsPort)
	metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux}

	go func() {
		log.Info("metrics server listening", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "error", err)
		}
	}()

	log.Info("gateway listening", "addr", addr, "ws", fmt.Sprintf("ws://%s/ws", addr))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("gateway server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)
}

// runPartition boots one in-process memory-backed partition executor and
// replication reader, and registers both with the gateway. A production
// deployment swaps MemoryLog for partition.OpenNATSLog and adds external
// ownership acquisition; the single-process mode here mirrors the
// teacher's single-binary deployment story.
func runPartition(ctx context.Context, gw *ws.Gateway, p int, cfg Config) *partition.Executor {
	eventLog := partition.NewMemoryLog(p)

	executor := partition.NewExecutor(p, eventLog, func() int64 { return time.Now().UnixMilli() })
	if err := executor.Acquire(ctx); err != nil {
		log.Error("failed to acquire partition", "partition", p, "error", err)
		return executor
	}

	reader := partition.NewReader(p, eventLog)
	go func() {
		if err := reader.Run(ctx); err != nil {
			log.Error("replication reader stopped", "partition", p, "error", err)
		}
	}()

	go executor.PollLoop(ctx, time.Duration(cfg.PollIntervalMs)*time.Millisecond, 10*time.Second)

	gw.Routers[p] = executor
	gw.Creators[p] = executor
	gw.Readers[p] = reader

	log.Info("partition started", "partition", p)
	return executor
}

func parsePartitionList(s string) ([]int, error) {
	var out []int
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				n, err := strconv.Atoi(s[start:i])
				if err != nil {
					return nil, fmt.Errorf("parsing %q: %w", s[start:i], err)
				}
				out = append(out, n)
			}
			start = i + 1
		}
	}
	return out, nil
}

// Command pose-replay serves a retargeted pose sequence over HTTP and gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/pose-replay/internal/config"
	"github.com/banshee-data/pose-replay/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to a replay config JSON file (defaults when empty)")
	envFile    = flag.String("env-file", config.GetEnv("POSE_REPLAY_ENV_FILE", ".env"), "Optional .env file with POSE_REPLAY_* overrides")
	listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
	grpcListen = flag.String("grpc-listen", "", "gRPC listen address (overrides config)")
	dbPath     = flag.String("db", "", "Sequence store sqlite path (overrides config)")
	seqPath    = flag.String("sequence", "", "Sequence JSON file to bind at startup (overrides config)")
	jointMap   = flag.String("joint-map", "", "Joint map JSON file (overrides config)")
	synthetic  = flag.Int("synthetic", 0, "Bind N synthetic frames instead of a sequence file")
	autoplay   = flag.Bool("autoplay", false, "Start playback once a sequence is bound")
	noDB       = flag.Bool("no-db", false, "Run without the sequence store")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatalf("failed to load env file: %v", err)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if flag.Arg(0) == "migrate" {
		if err := runMigrateCommand(os.Stdout, flag.Args()[1:], cfg.GetDBPath()); err != nil {
			log.Fatal(err)
		}
		return
	}

	srv, err := newApp(cfg, appOptions{synthetic: *synthetic, noDB: *noDB})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer srv.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := cfg.GetGRPCListen(); addr != "" {
		if err := srv.grpc.Listen(addr); err != nil {
			log.Fatalf("failed to start gRPC server: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			srv.grpc.Stop()
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		handler, err := srv.Handler()
		if err != nil {
			log.Printf("failed to build HTTP handler: %v", err)
			stop()
			return
		}
		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: handler,
		}

		go func() {
			log.Printf("%s listening on %s", version.String(), cfg.GetListen())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

func loadConfig(path string) (*config.ReplayConfig, error) {
	cfg := config.DefaultReplayConfig()
	if path != "" {
		loaded, err := config.LoadReplayConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cfg *config.ReplayConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = listen
		case "grpc-listen":
			cfg.GRPCListen = grpcListen
		case "db":
			cfg.DBPath = dbPath
		case "sequence":
			cfg.SequencePath = seqPath
		case "joint-map":
			cfg.JointMapPath = jointMap
		case "autoplay":
			cfg.Autoplay = autoplay
		}
	})
}

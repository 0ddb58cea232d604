package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/multitouch/internal/api"
	"github.com/banshee-data/multitouch/internal/config"
	"github.com/banshee-data/multitouch/internal/feed"
	"github.com/banshee-data/multitouch/internal/monitor"
	"github.com/banshee-data/multitouch/internal/monitoring"
	"github.com/banshee-data/multitouch/internal/recorder"
	"github.com/banshee-data/multitouch/internal/serialmux"
	"github.com/banshee-data/multitouch/internal/surface"
	"github.com/banshee-data/multitouch/internal/touch/fingers"
	"github.com/banshee-data/multitouch/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to a touch config JSON file (defaults are built in)")
	listen        = flag.String("listen", ":8080", "Listen address")
	port          = flag.String("port", "/dev/ttyACM0", "Serial port of the touch digitizer (ignored in dev mode)")
	disableSerial = flag.Bool("disable-serial", false, "Run without a digitizer; touches arrive only through the API")
	devMode       = flag.Bool("dev", false, "Replay a synthetic two finger gesture instead of reading a digitizer")
	dbPath        = flag.String("db", "touch_sessions.db", "Session database path; empty disables the session store")
	record        = flag.Bool("record", false, "Record every reconciled snapshot into a new session")
	grpcListen    = flag.String("grpc-listen", "", "Listen address for the gRPC health service; empty disables it")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

// devFrameInterval is the pacing of the dev mode gesture, roughly 60Hz.
const devFrameInterval = 16 * time.Millisecond

// loadConfig reads the config file, if any, and lets explicitly set flags
// override it.
func loadConfig() (*config.TouchConfig, error) {
	cfg := config.DefaultTouchConfig()
	if *configPath != "" {
		loaded, err := config.LoadTouchConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	overrideConfig(cfg, flag.CommandLine)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// overrideConfig copies every flag the user set on fs into cfg.
func overrideConfig(cfg *config.TouchConfig, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			v := *listen
			cfg.Listen = &v
		case "port":
			v := *port
			cfg.SerialPort = &v
		case "db":
			v := *dbPath
			cfg.DBPath = &v
		case "record":
			v := *record
			cfg.Record = &v
		}
	})
}

func openSerial(cfg *config.TouchConfig, canvas *surface.Canvas) (serialmux.SerialMuxInterface, error) {
	switch {
	case *devMode:
		return serialmux.NewMockSerialMux(devScript(canvas.Bounds(), canvas.MaxTouchPoints(), 90), devFrameInterval), nil
	case *disableSerial:
		return serialmux.NewDisabledSerialMux(), nil
	default:
		m, err := serialmux.NewRealSerialMux(cfg.GetSerialPort(), serialmux.PortOptions{BaudRate: cfg.GetBaudRate()})
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("touchd", version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	monitoring.SetVerbose(cfg.GetVerbose())
	if cfg.GetListen() == "" {
		log.Fatal("Listen address is required")
	}

	canvas, err := surface.NewCanvas(cfg.GetSurfaceBounds(), cfg.GetMaxTouchPoints())
	if err != nil {
		log.Fatalf("failed to create surface: %v", err)
	}

	tracker := fingers.NewTracker(nil)
	trails := monitor.NewTrailCollector(cfg.GetTrailLength())
	tracker.SetObserver(trails)
	handler := feed.NewHandler(tracker, canvas)

	touchSerial, err := openSerial(cfg, canvas)
	if err != nil {
		log.Fatalf("failed to open digitizer: %v", err)
	}
	defer touchSerial.Close()

	if err := touchSerial.Initialize(); err != nil {
		log.Fatalf("failed to initialize digitizer: %v", err)
	}
	log.Printf("initialized digitizer (dev=%v disabled=%v)", *devMode, *disableSerial)

	var store *recorder.Store
	var sessions api.SessionStore
	if path := cfg.GetDBPath(); path != "" {
		store, err = recorder.Open(path)
		if err != nil {
			log.Fatalf("failed to open session database: %v", err)
		}
		defer store.Close()
		sessions = store

		if cfg.GetRecord() {
			sess, err := store.StartSession(fmt.Sprintf("touchd %s", time.Now().Format(time.RFC3339)), canvas.Bounds())
			if err != nil {
				log.Fatalf("failed to start session: %v", err)
			}
			handler.SetRecorder(store.Writer(sess.ID))
			log.Printf("recording session %s to %s", sess.ID, path)
		}
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// serial IO
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := touchSerial.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// feed lines into the tracker
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := handler.Run(ctx, touchSerial); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("feed routine failed: %v", err)
		}
		log.Print("feed routine terminated")
	}()

	// gRPC health probe
	if *grpcListen != "" {
		hs := newHealthServer()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			hs.Shutdown()
		}()
		go func() {
			if err := hs.ListenAndServe(*grpcListen); err != nil {
				log.Printf("gRPC health service failed: %v", err)
				stop()
			}
		}()
	}

	// HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(tracker, canvas, handler, sessions).ServeMux()
		touchSerial.AttachAdminRoutes(mux)
		trails.AttachAdminRoutes(mux, canvas)
		if store != nil {
			store.AttachAdminRoutes(mux)
		}

		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("touchd %s listening on %s", version.Version, server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("failed to start server: %v", err)
				stop()
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

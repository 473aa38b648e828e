package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vantera/attom"
	"vantera/config"
	"vantera/events"
	"vantera/gate"
	"vantera/httputil"
	"vantera/logging"
	"vantera/realtor"
	"vantera/runlog"
	"vantera/scheduler"
	"vantera/server"
	"vantera/services"
	"vantera/storage"
)

var (
	bootstrapNow = flag.Bool("bootstrap", false, "Run the city bootstrap once and exit")
	dryRun       = flag.Bool("dry-run", false, "With -bootstrap, count presets without writing")
)

// appStore is what both database backends provide.
type appStore interface {
	services.Store
	runlog.Store
	Ping(ctx context.Context) error
}

type notifier interface {
	runlog.Notifier
	Close() error
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogFile, logging.DefaultMaxSize)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting vantera...")
	log.Printf("Loaded %d city presets", len(cfg.Cities))
	for _, key := range config.PresetKeys(cfg.Cities) {
		log.Printf("  - %s (%s)", cfg.Cities[key].Name, key)
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	var runStore runlog.Store = store
	if cfg.RunLog.Backend == "memory" {
		runStore = runlog.NewMemoryStore()
		log.Println("Run log: in-memory")
	}

	var publisher notifier = events.Noop{}
	if cfg.RabbitMQ.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		publisher = amqpPublisher
	}
	defer publisher.Close()

	clients, err := httputil.NewClients(cfg.ProxyURL)
	if err != nil {
		log.Fatalf("Failed to build HTTP clients: %v", err)
	}
	if cfg.ProxyURL != "" {
		log.Printf("Proxy: %s", redactURL(cfg.ProxyURL))
	}

	tracker := runlog.NewTracker(runStore, publisher)
	mediaService := services.NewMediaService(store)
	bootstrapService := services.NewBootstrapService(store, tracker, cfg.Cities)
	ingestService := services.NewIngestService(store, attom.NewClient(cfg.ATTOM, clients.ATTOM), mediaService, tracker, cfg.Cities)
	realtorService := services.NewRealtorService(store, realtor.NewClient(cfg.Apify, clients.Apify), mediaService, tracker, cfg.Cities)

	log.Println("Services initialized")

	// Handle one-shot commands
	if *bootstrapNow {
		log.Println("Running city bootstrap...")
		res, err := bootstrapService.Run(ctx, *dryRun)
		if err != nil {
			log.Fatalf("Bootstrap failed: %v", err)
		}
		log.Printf("Bootstrap complete: run %s created=%d", res.RunID, res.Created)
		return
	}

	deps := server.Deps{
		ATTOM:       ingestService,
		Realtor:     realtorService,
		Bootstrap:   bootstrapService,
		Runs:        tracker,
		Media:       mediaService,
		Health:      store,
		OpsToken:    cfg.OpsToken,
		Placeholder: cfg.Gate.Placeholder,
	}

	if cfg.S3.Enabled() {
		uploader, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to configure S3: %v", err)
		}
		deps.Uploads = services.NewUploadService(uploader, mediaService, store)
		log.Printf("Media uploads go to bucket %s", cfg.S3.Bucket)
	}

	simulator := runlog.NewSimulator(tracker, cfg.RunLog.SimulateDelay)
	deps.Simulator = simulator

	if cfg.OpsToken == "" {
		log.Println("Warning: OPS_TOKEN not set, /api/ops is unauthenticated")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg.Scheduler, bootstrapService)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	g := gate.New(cfg.Gate.DevHosts, cfg.Gate.Placeholder)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           logging.Requests(g.Middleware(server.New(deps).Routes())),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      20 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Printf("Listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := simulator.Shutdown(shutdownCtx); err != nil {
		log.Printf("Run simulator shutdown: %v", err)
	}
	cancel()
	sched.Stop()
	log.Println("Goodbye!")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (appStore, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("SQLite database: %s", cfg.Path)
		return s, func() { s.Close() }, nil
	default:
		s, err := storage.NewPostgresStore(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Connected to Postgres: %s", redactURL(cfg.URL))
		return s, s.Close, nil
	}
}

// redactURL masks the password of a connection or proxy URL for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

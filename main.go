package main

import (
	"context"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"finn_scrooper/config"
	"finn_scrooper/httputil"
	"finn_scrooper/logging"
	"finn_scrooper/scheduler"
	"finn_scrooper/scraper"
	"finn_scrooper/storage"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run scrape once and exit")
	siteOnly  = flag.String("site", "", "Only scrape this site ID")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting finn_scrooper...")

	if *siteOnly != "" {
		site, ok := cfg.Sites[*siteOnly]
		if !ok {
			log.Fatalf("Unknown site %q", *siteOnly)
		}
		cfg.Sites = map[string]*config.SiteConfig{site.ID: site}
	}

	log.Printf("Loaded %d site configs", len(cfg.Sites))
	for id, site := range cfg.Sites {
		log.Printf("  - %s (%s) %s", site.Name, id, site.BaseURL)
	}

	fetcher, err := httputil.NewFetcher(&cfg.HTTP)
	if err != nil {
		log.Fatalf("Failed to create fetcher: %v", err)
	}
	if cfg.HTTP.ProxyURL != "" {
		log.Printf("Proxy: %s", redact(cfg.HTTP.ProxyURL))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqliteStore, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.Storage.DBPath)

	orchestrator, err := scraper.NewOrchestrator(cfg, sqliteStore, fetcher)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	if cfg.Storage.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		orchestrator.AddSink("postgres", pgStore)
		orchestrator.AddRunRecorder("postgres", pgStore)
		log.Printf("Connected to Postgres: %s", redact(cfg.Storage.DatabaseURL))
	}

	if cfg.Storage.CSVPath != "" {
		exporter, err := storage.NewCSVExporter(cfg.Storage.CSVPath)
		if err != nil {
			log.Fatalf("Failed to set up CSV export: %v", err)
		}
		orchestrator.AddSink("csv", exporter)
		log.Printf("CSV export directory: %s", cfg.Storage.CSVPath)
	}

	if status, err := orchestrator.MarshalStatus(); err == nil {
		log.Printf("Status: %s", status)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	// Handle one-shot commands
	if *scrapeNow {
		go func() {
			for sig := range sigCh {
				if sig == syscall.SIGINT || sig == syscall.SIGTERM {
					log.Println("Interrupted, stopping after the current page")
					cancel()
				}
			}
		}()

		log.Println("Running scrape...")
		if err := orchestrator.RunAll(ctx); err != nil {
			log.Printf("Scrape failed: %v", err)
			os.Exit(1)
		}
		log.Println("Scrape complete!")
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg.Scheduler, orchestrator)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. SIGUSR1 pauses, SIGUSR2 resumes, Ctrl+C stops.")

	for sig := range sigCh {
		switch sig {
		case syscall.SIGUSR1:
			orchestrator.Pause()
		case syscall.SIGUSR2:
			orchestrator.Resume()
		default:
			log.Println("Shutting down...")
			sched.Stop()
			log.Println("Goodbye!")
			return
		}
	}
}

// redact hides the password in a connection or proxy URL for logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "****"
	}
	return u.Redacted()
}

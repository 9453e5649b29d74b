package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tivyapp/tivy/internal/cache"
	"github.com/tivyapp/tivy/internal/config"
	"github.com/tivyapp/tivy/internal/favorites"
	"github.com/tivyapp/tivy/internal/player"
	"github.com/tivyapp/tivy/internal/playlist"
	"github.com/tivyapp/tivy/internal/probe"
	"github.com/tivyapp/tivy/internal/rank"
	"github.com/tivyapp/tivy/internal/rules"
	"github.com/tivyapp/tivy/internal/server"
	"github.com/tivyapp/tivy/internal/service"
	"github.com/tivyapp/tivy/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use environment variables")
	rulesPath := flag.String("rules", "", "Optional classification ruleset path (YAML); else use the embedded default")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	rulesFile := *rulesPath
	if rulesFile == "" {
		rulesFile = cfg.RulesPath
	}
	var ruleset *rules.Ruleset
	if rulesFile != "" {
		ruleset, err = rules.Load(rulesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rules: %v\n", err)
			os.Exit(1)
		}
	} else {
		ruleset = rules.Default()
	}

	ctx := context.Background()

	// Pick the preferences backend: Postgres when a DSN is configured,
	// otherwise a JSON file under the data directory.
	var kv store.KV
	if cfg.DatabaseURL != "" {
		absMigrations, err := filepath.Abs("migrations")
		if err != nil {
			absMigrations = "migrations"
		}
		if _, err := os.Stat(absMigrations); err != nil {
			if exe, e := os.Executable(); e == nil {
				absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
			}
		}
		if err := store.RunMigrations(cfg.DatabaseURL, "file://"+absMigrations); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}

		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "db: %v\n", err)
			os.Exit(1)
		}
		kv = pg
		fmt.Fprintln(os.Stderr, "preferences backend: postgres")
	} else {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "data dir: %v\n", err)
			os.Exit(1)
		}
		f, err := store.OpenFile(filepath.Join(cfg.DataDir, "preferences.json"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "store: %v\n", err)
			os.Exit(1)
		}
		kv = f
		fmt.Fprintln(os.Stderr, "preferences backend: file (DATABASE_URL not set)")
	}
	defer kv.Close()

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "redis connected (playlist caching enabled)")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	favs := favorites.New(kv)
	cls := rank.New(ruleset)
	client := &playlist.Client{
		BaseURL:   cfg.PlaylistBaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	}
	ctrl := player.New(
		player.NewHeadlessFactory(cfg.Timeout),
		player.NewHeadlessFactory(cfg.Timeout),
		true,
	)
	browser := service.New(client, cls, favs, rds, ctrl)
	prober := probe.New()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the background probe worker if Redis is available.
	if rds != nil {
		go runProbeWorker(ctx, rds, prober)
	}

	// The readiness flag flips after the first load resolves, or after the
	// fail-safe window regardless, so the API never hangs on a slow upstream.
	browser.StartFailSafe(5 * time.Second)
	go func() {
		n, err := browser.LoadChannels(ctx, cfg.DefaultRegion)
		if err != nil {
			log.Printf("initial load: region=%s: %v", cfg.DefaultRegion, err)
			return
		}
		log.Printf("initial load: region=%s channels=%d", cfg.DefaultRegion, n)
	}()

	srv := server.New(browser, favs, prober, rds, cfg)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// runProbeWorker continuously dequeues health-check jobs from Redis and
// probes their targets. It stops when ctx is cancelled (graceful shutdown).
func runProbeWorker(ctx context.Context, rds *cache.Redis, prober *probe.Prober) {
	log.Println("probe worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("probe worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, rds, cache.ProbeQueue, 5*time.Second)
		if err != nil {
			log.Printf("probe worker: dequeue error: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}

		log.Printf("probe worker: processing job region=%s targets=%d", job.Region, len(job.Targets))

		targets := make([]probe.Target, 0, len(job.Targets))
		for _, t := range job.Targets {
			targets = append(targets, probe.Target{Name: t.Name, URL: t.URL})
		}
		results := prober.CheckBatch(ctx, targets)
		for _, r := range results {
			if err := cache.Set(ctx, rds, cache.HealthKey(r.Name), r, cache.TTLHealth); err != nil {
				log.Printf("probe worker: cache result %q: %v", r.Name, err)
			}
		}
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cremeria/auth"
	"cremeria/cache"
	"cremeria/config"
	"cremeria/credit"
	"cremeria/remote"
	"cremeria/sales"
	"cremeria/store"
	"cremeria/syncer"
	"cremeria/www"
)

const usage = `usage: cremeria [flags] <command>

commands:
  serve      run the POS terminal server
  sync-push  push pending local rows to the hosted replica and exit
  sync-pull  pull the product catalog from the hosted replica and exit
  migrate    apply schema migrations and exit
`

func main() {
	configPath := flag.String("config", "cremeria.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "serve"
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("load config: %v", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Web.Port = *port
	}

	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Printf("open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	switch cmd {
	case "migrate":
		// Open already ran migrations; reaching here means they applied.
		log.Println("schema up to date")
	case "sync-push":
		eng := newSyncEngine(db, cfg)
		failed := 0
		for _, res := range eng.PushAll() {
			log.Printf("push %s: sent=%d errors=%d", res.Table, res.Sent, res.Errors)
			failed += res.Errors
		}
		if failed > 0 {
			os.Exit(1)
		}
	case "sync-pull":
		eng := newSyncEngine(db, cfg)
		n, err := eng.PullProducts()
		if err != nil {
			log.Printf("pull products: %v", err)
			os.Exit(1)
		}
		log.Printf("pulled %d product updates", n)
	case "serve":
		if err := serve(db, cfg); err != nil {
			log.Printf("serve: %v", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", cmd, usage)
		os.Exit(2)
	}
}

func newSyncEngine(db *store.DB, cfg *config.Config) *syncer.Engine {
	var c syncer.Cache
	if cfg.Redis.Addr != "" {
		c = cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	} else {
		c = cache.NewMemory()
	}
	rc := remote.NewClient(cfg.RemoteURL(), cfg.SupabaseAuthKey(), cfg.Supabase.Timeout)
	return syncer.NewEngine(db, rc, c,
		syncer.WithBatchSize(cfg.Sync.BatchSize),
		syncer.WithPollInterval(cfg.Sync.PollInterval),
		syncer.WithPullCooldown(cfg.Sync.PullCooldown),
	)
}

func serve(db *store.DB, cfg *config.Config) error {
	sync := newSyncEngine(db, cfg)
	sync.Start()
	defer sync.Stop()

	processor := sales.NewProcessor(db, sync, nil)

	creditEngine := credit.NewEngine(db, nil)
	rearm := credit.NewRearmJob(creditEngine)
	rearm.Start()
	defer rearm.Stop()

	authMgr := auth.NewManager(db, &cfg.Auth, nil)
	authMgr.StartSweep(time.Hour)
	defer authMgr.StopSweep()

	router := www.NewRouter(www.Deps{
		DB:            db,
		Auth:          authMgr,
		Sales:         processor,
		Credits:       creditEngine,
		Sync:          sync,
		SessionSecret: cfg.Web.SessionSecret,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("cremeria POS listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

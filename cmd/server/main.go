package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"formgate/internal/audit"
	"formgate/internal/form"
	"formgate/internal/hashstore"
	"formgate/internal/identity/client"
	"formgate/internal/identity/session"
	"formgate/internal/platform/config"
	"formgate/internal/platform/httpserver"
	"formgate/internal/platform/logger"
	"formgate/internal/platform/metrics"
	platformredis "formgate/internal/platform/redis"
	"formgate/internal/submission"
	httptransport "formgate/internal/transport/http"
	"formgate/internal/verification"
	"formgate/internal/whitelist"
	"formgate/pkg/platform/circuit"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Audit events from request handlers are persisted synchronously; breaker
	// trips happen outside any request and flow through the worker's inbox.
	auditStore := audit.NewInMemoryStore()
	auditor := audit.NewPublisher(auditStore)
	auditInbox := make(chan audit.Event, 64)
	auditWorker := audit.NewWorker(auditStore, auditInbox)

	onBreakerChange := func(name string, from, to circuit.State) {
		if to != circuit.StateOpen {
			return
		}
		// Runs under the breaker's lock; never block on a full inbox.
		select {
		case auditInbox <- audit.Event{Kind: audit.KindBreakerOpen, Detail: name}:
		default:
		}
	}
	breakerOpts := []circuit.Option{circuit.WithOnStateChange(onBreakerChange)}

	identityClient := client.New(client.Config{
		ClientID:       cfg.Identity.ClientID,
		ClientSecret:   cfg.Identity.ClientSecret,
		RedirectURI:    cfg.Identity.RedirectURI,
		AuthEndpoint:   cfg.Identity.AuthEndpoint,
		TokenEndpoint:  cfg.Identity.TokenEndpoint,
		PersonEndpoint: cfg.Identity.PersonEndpoint,
	},
		client.WithLogger(log),
		client.WithBreakers(
			circuit.New("identity-token", breakerOpts...),
			circuit.New("identity-person", breakerOpts...),
		),
	)

	forms := form.NewInMemoryStore()
	if cfg.FormsFile != "" {
		loaded, err := form.LoadFile(cfg.FormsFile)
		if err != nil {
			return err
		}
		for _, f := range loaded {
			forms.Put(f)
		}
		log.Info("loaded form fixtures", "count", len(loaded), "path", cfg.FormsFile)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var hashBackend hashstore.Store
	var memHashes *hashstore.InMemoryStore
	if redisClient != nil {
		defer redisClient.Close()
		hashBackend = hashstore.NewRedisStore(redisClient.Client)
		log.Info("hash store backend", "backend", "redis")
	} else {
		memHashes = hashstore.NewInMemoryStore()
		hashBackend = memHashes
		log.Info("hash store backend", "backend", "memory")
	}
	hashes := hashstore.NewService(hashBackend, []byte(cfg.HashSecret), hashstore.WithLogger(log))

	var wlBackend whitelist.Store
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		wlBackend = whitelist.NewPostgresStore(db)
		log.Info("whitelist store backend", "backend", "postgres")
	} else {
		wlBackend = whitelist.NewInMemoryStore()
		log.Info("whitelist store backend", "backend", "memory")
	}
	whitelists := whitelist.NewService(wlBackend, whitelist.WithLogger(log))

	sessions := session.NewManager([]byte(cfg.SessionSecret), session.WithSecure(!cfg.IsDev()))
	pipeline := submission.NewPipeline(submission.WithLogger(log))
	checker := verification.NewService(hashes, whitelists, verification.WithLogger(log))

	identityHandler := httptransport.NewIdentityHandler(
		identityClient, forms, sessions, hashes, cfg.HashTTL, log, m)
	submissionHandler := httptransport.NewSubmissionHandler(
		forms, pipeline, checker, sessions, auditor, log, m)

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(identityHandler, submissionHandler))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return auditWorker.Run(ctx)
	})

	if memHashes != nil {
		g.Go(func() error {
			memHashes.RunReaper(ctx, time.Minute)
			return nil
		})
	}

	g.Go(func() error {
		log.Info("starting formgate", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

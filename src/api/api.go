package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stake-plus/civic-proposals/src/api/config"
	"github.com/stake-plus/civic-proposals/src/api/data"
	"github.com/stake-plus/civic-proposals/src/api/webserver"
	"github.com/stake-plus/civic-proposals/src/geocoding"
	"github.com/stake-plus/civic-proposals/src/logging"
	"github.com/stake-plus/civic-proposals/src/metrics"
	"github.com/stake-plus/civic-proposals/src/proposals"
	"github.com/stake-plus/civic-proposals/src/search"
	"github.com/stake-plus/civic-proposals/src/shared/id"
	"github.com/stake-plus/civic-proposals/src/telemetry"
	"github.com/stake-plus/civic-proposals/src/verifications"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.Env)

	tel, err := telemetry.Setup(context.Background(), telemetry.Config{
		Endpoint:       cfg.OTelEndpoint,
		Headers:        cfg.OTelHeaders,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	if err := id.Init(cfg.NodeID); err != nil {
		log.Fatalf("snowflake: %v", err)
	}

	registry, err := verifications.LoadFile(cfg.VerificationsFile)
	if err != nil {
		log.Fatalf("verifications: %v", err)
	}

	db := data.MustDB(cfg.DSN)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	rdb := data.MustRedis(cfg.RedisURL)
	defer rdb.Close()

	directory := data.NewDirectory(db)
	deps := proposals.Deps{
		Store:    data.NewProposalStore(db),
		Features: data.NewFeatures(db),
		Auth:     data.NewIdentity(db, registry),
		Authors:  directory,
		Taxonomy: directory,
		Linker:   directory,
		Ledger:   data.NewVoteLedger(rdb),
		Events:   data.NewEventStream(rdb),
		Logger:   slog.Default().With("component", "proposals"),
	}
	if cfg.GeocoderURL != "" {
		deps.Geocoder = geocoding.New(cfg.GeocoderURL)
	}
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliKey, slog.Default())
		defer meili.Close()
		deps.Search = meili
	}

	limiter := webserver.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Close()

	router := webserver.New(cfg, webserver.Deps{
		Proposals: proposals.NewService(deps),
		Registry:  registry,
		Metrics:   metrics.New(),
		Limiter:   limiter,
	})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			reloader, rerr := webserver.NewTLSReloader(cfg.TLSCert, cfg.TLSKey, 5*time.Minute)
			if rerr != nil {
				log.Fatalf("tls: %v", rerr)
			}
			defer reloader.Close()
			httpSrv.TLSConfig = reloader.GetConfig()
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()
	slog.Info("proposals API listening", "port", cfg.Port, "methods", len(registry.Names()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
	if err := tel.Shutdown(shutCtx); err != nil {
		slog.Error("telemetry shutdown", "error", err)
	}
}

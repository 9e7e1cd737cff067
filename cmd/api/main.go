package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"party_radar/internal/adapters/googleapi"
	server "party_radar/internal/adapters/http_server"
	"party_radar/internal/adapters/observability"
	redisad "party_radar/internal/adapters/redis"
	"party_radar/internal/app"
	"party_radar/internal/domain"
	"party_radar/internal/shared"
	mysqlrepo "party_radar/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis ping failed; caching degraded")
	}

	// deps
	repo := mysqlrepo.New(db)

	var (
		geocoder domain.Geocoder
		places   domain.PlaceSearcher
		details  domain.PlaceDetailer
		scanner  domain.ReceiptExtractor
	)
	if maps, err := googleapi.NewMaps(cfg.MapsBase, cfg.MapsKey, cfg.GoogleRPS); err != nil {
		log.Warn().Err(err).Msg("google maps client disabled")
	} else {
		geocoder = app.NewCachedGeocoder(maps, cache, cfg.CacheTTL)
		places, details = maps, maps
	}
	if gem, err := googleapi.NewGemini(cfg.GeminiBase, cfg.GeminiKey, cfg.GeminiModel, cfg.GoogleRPS); err != nil {
		log.Warn().Err(err).Msg("gemini client disabled")
	} else {
		scanner = gem
	}

	resolver := app.NewResolver(geocoder, places, details, repo, cfg.SearchRadiusKm, cfg.GeocodeWorkers)
	receipts := app.NewReceiptService(repo, cache, scanner, cfg.SessionTTL)

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Resolver: resolver, Receipts: receipts})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("API stopped")
}

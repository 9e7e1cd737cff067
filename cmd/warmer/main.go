package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"party_radar/internal/adapters/googleapi"
	"party_radar/internal/adapters/observability"
	redisad "party_radar/internal/adapters/redis"
	"party_radar/internal/app"
	"party_radar/internal/shared"
	mysqlrepo "party_radar/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("base", cfg.MapsBase).
		Int("workers", cfg.WarmWorkers).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("geocode warmer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	maps, err := googleapi.NewMaps(cfg.MapsBase, cfg.MapsKey, cfg.GoogleRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Google Maps client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	warmer := app.NewGeocodeWarmer(app.NewCachedGeocoder(maps, cache, cfg.CacheTTL), repo)

	parties, err := repo.ListPartyIDs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list parties failed")
	}

	sem := semaphore.NewWeighted(int64(max(cfg.WarmWorkers, 1)))
	var (
		wg             sync.WaitGroup
		geocoded, miss atomic.Int64
	)

	for _, id := range parties {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(partyID string) {
			defer wg.Done()
			defer sem.Release(1)

			st, err := warmer.WarmParty(ctx, partyID)
			geocoded.Add(int64(st.Geocoded))
			miss.Add(int64(st.Missed))
			if err != nil {
				log.Warn().Str("party_id", partyID).Err(err).Msg("warm-up failed")
				return
			}
			log.Info().Str("party_id", partyID).Int("geocoded", st.Geocoded).Int("missed", st.Missed).Msg("warm-up ok")
		}(id)
	}

	wg.Wait()
	log.Info().
		Int("parties", len(parties)).
		Int64("geocoded", geocoded.Load()).
		Int64("missed", miss.Load()).
		Msg("warm-up completed")
}

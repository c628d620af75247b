package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/VoidX3D/Anime-Tracker/internal/anilist"
	"github.com/VoidX3D/Anime-Tracker/internal/catalog"
	"github.com/VoidX3D/Anime-Tracker/internal/ledger"
	"github.com/VoidX3D/Anime-Tracker/internal/oplog"
	"github.com/VoidX3D/Anime-Tracker/internal/progress"
	"github.com/VoidX3D/Anime-Tracker/internal/ratings"
	"github.com/VoidX3D/Anime-Tracker/internal/reconcile"
	"github.com/VoidX3D/Anime-Tracker/internal/suggest"
	"github.com/VoidX3D/Anime-Tracker/pkg/config"
	"github.com/VoidX3D/Anime-Tracker/pkg/database"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg := config.Load()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := progress.NewHub()
	router.GET("/ws", progress.WSHandler(hub, log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.DBPath})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": hub.Stats().Clients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": hub.Stats().Clients,
		})
	})

	catalogRepo := catalog.NewRepo(db)
	ledgerRepo := ledger.NewRepo(db)
	oplogRepo := oplog.NewRepo(db)
	ratingsRepo := ratings.NewRepo(db)

	client := anilist.NewClient(cfg.Provider, log.With().Str("component", "anilist").Logger())

	reconciler := reconcile.New(
		cfg.Sync, cfg.StatusMap,
		catalogRepo, ledgerRepo, client,
		log.With().Str("component", "reconcile").Logger(),
	).WithEvents(hub).WithOpLog(oplogRepo)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	engine := suggest.NewEngine(
		cfg.Suggest, catalogRepo, rng,
		log.With().Str("component", "suggest").Logger(),
	)

	animeGroup := router.Group("/anime")
	catalog.NewHandler(catalogRepo).RegisterRoutes(animeGroup)
	ratings.NewHandler(ratingsRepo).RegisterRoutes(animeGroup)

	syncHandler := reconcile.NewHandler(reconciler)
	syncHandler.RegisterRoutes(router.Group("/sync"))
	syncHandler.RegisterStatusRoutes(animeGroup)

	suggest.NewHandler(engine, cfg.Suggest.PageLimit).RegisterRoutes(router.Group("/suggestions"))
	oplog.NewHandler(oplogRepo).RegisterRoutes(router.Group("/logs"))

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	log.Info().Msg("server stopped")
}

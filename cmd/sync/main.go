package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/VoidX3D/Anime-Tracker/internal/anilist"
	"github.com/VoidX3D/Anime-Tracker/internal/catalog"
	"github.com/VoidX3D/Anime-Tracker/internal/ledger"
	"github.com/VoidX3D/Anime-Tracker/internal/oplog"
	"github.com/VoidX3D/Anime-Tracker/internal/reconcile"
	"github.com/VoidX3D/Anime-Tracker/pkg/config"
	"github.com/VoidX3D/Anime-Tracker/pkg/database"
	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// Incremental reconciliation of a list export against the local catalog:
// known titles get their status merged, unknown ids are enriched from
// AniList under the configured pacing.
func main() {
	_ = godotenv.Load()

	filePath := flag.String("file", "export.json", "list export file")
	backfill := flag.Bool("backfill", false, "use the slower backfill pacing for large enrichment runs")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg := config.Load()
	if *backfill {
		cfg.Sync.EnrichInterval = cfg.Sync.BackfillInterval
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open export file")
	}
	file, err := models.ParseImportFile(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("parse export file")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := anilist.NewClient(cfg.Provider, log.With().Str("component", "anilist").Logger())
	reconciler := reconcile.New(
		cfg.Sync, cfg.StatusMap,
		catalog.NewRepo(db), ledger.NewRepo(db), client,
		log.With().Str("component", "reconcile").Logger(),
	).WithOpLog(oplog.NewRepo(db))

	started := time.Now()
	report, err := reconciler.Reconcile(ctx, file)
	if err != nil {
		log.Fatal().Err(err).Msg("sync failed")
	}

	fmt.Printf("run %s finished in %s\n", report.RunID, time.Since(started).Round(time.Millisecond))
	fmt.Printf("  updated:    %d\n", report.Updated)
	fmt.Printf("  created:    %d\n", report.Created)
	fmt.Printf("  unresolved: %d\n", len(report.Unresolved))
	for _, line := range report.Logs {
		fmt.Printf("    %s\n", line)
	}
}

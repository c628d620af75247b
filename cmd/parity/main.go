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

// Destructive full-parity resync: wipes all tracked state and re-derives it
// from the export file by exact id matches only. Kept as its own binary so
// it can never be run by accident in place of the incremental sync.
func main() {
	_ = godotenv.Load()

	filePath := flag.String("file", "export.json", "list export file")
	yes := flag.Bool("yes", false, "confirm: statuses not present in the file WILL be discarded")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if !*yes {
		fmt.Fprintln(os.Stderr, "refusing to run: full parity discards tracked statuses not in the file; pass -yes to confirm")
		os.Exit(1)
	}

	cfg := config.Load()

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

	report, err := reconciler.FullParity(ctx, file)
	if err != nil {
		log.Fatal().Err(err).Msg("parity resync failed")
	}

	fmt.Printf("run %s finished in %s\n", report.RunID, report.Took.Round(time.Millisecond))
	fmt.Printf("  applied:      %d\n", report.Applied)
	fmt.Printf("  skipped:      %d\n", len(report.Skipped))
	fmt.Printf("  tracked rows: %d\n", report.TrackedRows)
	fmt.Printf("  ledger rows:  %d\n", report.LedgerRows)
}

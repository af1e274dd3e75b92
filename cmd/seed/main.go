// Command seed loads the pipe-delimited FEMA export into the catalog store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	catalogdb "fema-catalog/internal/catalog/db"
	"fema-catalog/internal/config"
	"fema-catalog/internal/database"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/seed"
)

func loadFile(path string, load func(name string, f *os.File) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return load(filepath.Base(path), f)
}

func main() {
	var dir string
	var skipGrants bool
	flag.StringVar(&dir, "dir", "seed_data", "directory holding event.txt and grant.txt")
	flag.BoolVar(&skipGrants, "skip-grants", false, "load events only")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger("seed", cfg.Logging.Dir, cfg.Logging.Level)
	defer log.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := database.Prepare(ctx, bunDB, log); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Schema setup failed: %v", err))
	}

	loader := seed.NewLoader(&catalogdb.DB{Bun: bunDB}, log)

	events, err := loadFile(filepath.Join(dir, "event.txt"), func(name string, f *os.File) (int, error) {
		return loader.LoadEvents(ctx, name, f)
	})
	if err != nil {
		log.Fatal("SEED", fmt.Sprintf("Loading events failed: %v", err))
	}

	grants := 0
	if !skipGrants {
		grants, err = loadFile(filepath.Join(dir, "grant.txt"), func(name string, f *os.File) (int, error) {
			return loader.LoadGrants(ctx, name, f)
		})
		if err != nil {
			log.Fatal("SEED", fmt.Sprintf("Loading grants failed: %v", err))
		}
	}

	log.Info("SEED", fmt.Sprintf("✅ Seeded %d events and %d grants", events, grants))
}

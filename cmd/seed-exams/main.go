package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/smartexam/internal/cache"
	"github.com/stemsi/smartexam/internal/config"
	"github.com/stemsi/smartexam/internal/database"
	"github.com/stemsi/smartexam/internal/logger"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/service"
	"github.com/stemsi/smartexam/internal/validator"
)

func main() {
	var file string
	flag.StringVar(&file, "file", "seed/exams.json", "JSON file with a list of {exam, questions} entries")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	raw, err := os.ReadFile(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to read seed file")
	}
	var entries []model.ImportExamRequest
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to parse seed file")
	}

	store, err := database.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	var invalidate service.CatalogInvalidator
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached exams will expire on their own")
	} else if rdb != nil {
		defer rdb.Close()
		invalidate = cache.NewCachedCatalog(store.Catalog, rdb, cfg.CatalogCacheTTL, log)
	}

	examService := service.NewExamService(store.Writer, store.Catalog, invalidate, log)

	fmt.Printf("=== Seeding %d exams from %s ===\n", len(entries), file)

	var failed, skipped int
	for i := range entries {
		entry := &entries[i]
		err := examService.Import(ctx, &entry.Exam, entry.Questions)
		if errors.Is(err, service.ErrExamPublished) {
			skipped++
			fmt.Printf("  [%d] %s (%s): already published, skipped\n", i, entry.Exam.Title, entry.Exam.ID)
			continue
		}
		if err != nil {
			failed++
			var examErr *validator.ExamError
			if errors.As(err, &examErr) {
				for field, msg := range examErr.Fields {
					fmt.Printf("  [%d] %s: %s\n", i, field, msg)
				}
			}
			log.Error().Err(err).Int("index", i).Str("title", entry.Exam.Title).Msg("Failed to import exam")
			continue
		}
		fmt.Printf("  [%d] %s (%s): %d questions\n", i, entry.Exam.Title, entry.Exam.ID, len(entry.Questions))
	}

	fmt.Printf("=== Done: %d imported, %d skipped, %d failed ===\n", len(entries)-failed-skipped, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

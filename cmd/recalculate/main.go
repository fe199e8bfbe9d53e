// Command recalculate recomputes the composite popularity score of every restaurant and logs a
// summary of the run.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/FACorreiaa/hansikdang-api/internal/app/domain/popularity"
	"github.com/FACorreiaa/hansikdang-api/internal/app/domain/restaurants"
	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
	"github.com/FACorreiaa/hansikdang-api/internal/pkg/config"
	"github.com/FACorreiaa/hansikdang-api/internal/pkg/logger"
	"github.com/FACorreiaa/hansikdang-api/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), zap.String("job", "recalculate")); err != nil {
		return err
	}
	l := logger.Log
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := server.SetupDatabase(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := restaurants.NewServiceImpl(restaurants.NewRepository(pool, l), cfg.RecalcWorkers, l)
	report, err := svc.RecalculatePopularity(ctx)
	if err != nil {
		return err
	}

	logReport(l, report)
	return nil
}

func logReport(l *zap.Logger, report *models.RecalculationReport) {
	l.Info("Popularity recalculation finished",
		zap.Int("total", report.Total),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	l.Info("Score statistics",
		zap.Float64("average", report.Average),
		zap.Float64("max", report.Max),
		zap.Float64("min", report.Min),
	)
	for _, tc := range report.Distribution {
		l.Info("Tier distribution",
			zap.String("tier", string(tc.Tier)),
			zap.String("label", popularity.TierLabel(tc.Tier, popularity.LocaleEnglish)),
			zap.Int("count", tc.Count))
	}
	for i, change := range report.Top {
		l.Info("Top restaurant",
			zap.Int("rank", i+1),
			zap.String("name", change.Name),
			zap.Float64("old_score", change.OldScore),
			zap.Float64("new_score", change.NewScore),
		)
	}
}

// Command dispatcher runs the background loops: the timer engine that fires
// due schedules and the worker that runs scheduled executions.
package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sabihatasneem/st2/internal/api"
	"github.com/sabihatasneem/st2/internal/dispatcher"
	"github.com/sabihatasneem/st2/internal/executions"
	"github.com/sabihatasneem/st2/internal/ingestion"
	"github.com/sabihatasneem/st2/internal/logging"
	"github.com/sabihatasneem/st2/internal/rules"
	"github.com/sabihatasneem/st2/internal/runners"
	"github.com/sabihatasneem/st2/internal/storage"
	"github.com/sabihatasneem/st2/pkg/clock"
	"github.com/sabihatasneem/st2/pkg/config"
	"github.com/sabihatasneem/st2/platform/events"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()

	logger, err := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := api.ConnectDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		logger.Warn("KAFKA_BROKERS not set, event feed disabled")
	}

	store := storage.NewMySQLClient(db)

	engine, err := rules.NewEngine()
	if err != nil {
		logger.Fatal("create rule engine", zap.Error(err))
	}

	clk := clock.RealClock{}
	ruleService := rules.NewService(store, engine)
	executionService := executions.NewService(store, publisher, logger)
	ingestionService := ingestion.NewService(store, ruleService, executionService, publisher, logger, clk)

	timerEngine := dispatcher.NewTimerEngine(store, ingestionService, logger, clk, cfg.DispatchTick, cfg.DispatchBatch)
	worker := dispatcher.NewWorker(store, runners.NewRegistry(), publisher, logger, cfg.DispatchTick, cfg.DispatchBatch, cfg.MaxAttempts, cfg.ActionTimeout)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		timerEngine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	wg.Wait()
	logger.Info("dispatcher stopped")
}

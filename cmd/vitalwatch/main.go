package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"vitalwatch/internal/broadcast"
	"vitalwatch/internal/config"
	"vitalwatch/internal/engine"
	"vitalwatch/internal/handler"
	"vitalwatch/internal/ingest"
	"vitalwatch/internal/logger"
	"vitalwatch/internal/models"
	"vitalwatch/internal/repository"
	"vitalwatch/internal/retrospective"
	"vitalwatch/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	db, err := repository.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to ping redis", zap.Error(err))
	}
	defer redisClient.Close()

	patientsRepo := repository.NewPatientsRepository(db, log)
	samplesRepo := repository.NewSamplesRepository(db, log)
	anomaliesRepo := repository.NewAnomaliesRepository(db, log)
	alertLogsRepo := repository.NewAlertLogsRepository(db, log)

	publisher := broadcast.NewPublisher(
		redisClient,
		log,
		cfg.Broadcast.KeyPrefix,
		cfg.Broadcast.Channel,
		time.Duration(cfg.Broadcast.TTLSeconds)*time.Second,
	)

	liveEngine := engine.New(log)
	monitor, err := service.NewMonitor(liveEngine, patientsRepo, samplesRepo, anomaliesRepo, alertLogsRepo, publisher, log)
	if err != nil {
		log.Fatal("Failed to create monitor", zap.Error(err))
	}

	runner, err := retrospective.NewRunner(samplesRepo, anomaliesRepo, alertLogsRepo, patientsRepo, log)
	if err != nil {
		log.Fatal("Failed to create retrospective runner", zap.Error(err))
	}

	subscriber, err := ingest.NewSubscriber(&cfg.MQTT, log)
	if err != nil {
		log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}
	defer subscriber.Close()

	err = subscriber.SubscribeVitals(func(sample models.VitalSample) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := monitor.Process(ctx, sample); err != nil {
			log.Error("Failed to process vital sample",
				zap.String("patient_id", sample.PatientID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		log.Fatal("Failed to subscribe to vitals", zap.Error(err))
	}

	retroHandler := handler.NewRetrospectiveHandler(runner, log)
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      retroHandler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // retrospective runs can be long
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErrChan:
		log.Error("HTTP server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	log.Info("vitalwatch stopped")
}

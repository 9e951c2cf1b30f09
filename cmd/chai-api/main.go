package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chai-api/internal/config"
	"chai-api/internal/database"
	httpapi "chai-api/internal/http"
	"chai-api/internal/logger"
	"chai-api/internal/mqtt"
	"chai-api/internal/repository"
	"chai-api/internal/service"
	"chai-api/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "chai-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	// 存储：优先 PostgreSQL，连接失败时退回内存实现（仅用于本地联调）
	var db *sql.DB
	var st repository.Store = repository.NewMemoryStore()
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			st = repository.NewPostgresStore(db)
			log.Info("Connected to PostgreSQL", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Database))
		} else {
			log.Warn("DB enabled but connection failed, falling back to in-memory store", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		c := store.NewRedisClient(&cfg.Redis)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			redisClient = c
		} else {
			log.Warn("Redis unavailable, running without price cache and alert stream", zap.Error(err))
			_ = c.Close()
		}
	}

	var prices service.PriceSource
	if cfg.Price.URL != "" {
		prices = service.NewPriceClient(cfg.Price, log)
	} else {
		log.Warn("PRICE_API_URL not set, using fixed electricity price", zap.Float64("rate", cfg.Price.FixedRate))
		prices = service.FixedPriceSource{Rate: cfg.Price.FixedRate}
	}

	var alerter service.Alerter = service.NewLogAlerter(log)
	if redisClient != nil {
		prices = service.NewCachedPriceSource(prices, store.NewRedisKV(redisClient), cfg.Price.CacheTTL, metrics, log)
		alerter = service.NewStreamAlerter(redisClient, cfg.AlertStream, log)
	}

	var devices service.DeviceController = service.NewLogDeviceController(log)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		c, err := mqtt.NewClient(&cfg.MQTT, log)
		if err == nil {
			mqttClient = c
			devices = mqtt.NewValveController(mqttClient, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS, log)
		} else {
			log.Warn("MQTT enabled but connection failed, setpoints will only be logged", zap.Error(err))
		}
	}

	defaults := config.DefaultProfiles()
	resolver := service.NewHeatingResolver(prices, cfg.Location, metrics)

	router := httpapi.NewRouter(log, alerter, metrics)
	router.RegisterHeatingRoutes(service.NewHeatingService(st, resolver, prices, devices, alerter, metrics, log))
	router.RegisterScheduleRoutes(service.NewScheduleService(st, log))
	router.RegisterProfileRoutes(service.NewProfileService(st, defaults, log))
	router.RegisterLogRoutes(service.NewLogService(st, log))
	router.RegisterPriceRoutes(service.NewPriceService(prices))
	router.RegisterOpsRoutes(reg)

	handler := router.Handler(httpapi.Options{
		Bearer:         cfg.Auth.Bearer,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})
	srv := service.NewServer(cfg.HTTP.Addr, handler, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sigCh:
		log.Info("Shutting down", zap.String("signal", s.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = database.Close(db)
	}
}

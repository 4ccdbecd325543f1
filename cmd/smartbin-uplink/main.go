package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/STARTUPinnovator/smartbin/internal/config"
	"github.com/STARTUPinnovator/smartbin/internal/consumer"
	"github.com/STARTUPinnovator/smartbin/internal/hub"
	httpapi "github.com/STARTUPinnovator/smartbin/internal/http"
	"github.com/STARTUPinnovator/smartbin/internal/registry"
	"github.com/STARTUPinnovator/smartbin/internal/repository"
	"github.com/STARTUPinnovator/smartbin/internal/service"
	"github.com/STARTUPinnovator/smartbin/internal/stream"

	"github.com/STARTUPinnovator/smartbin/internal/common/database"
	"github.com/STARTUPinnovator/smartbin/internal/common/logger"
	mqttcommon "github.com/STARTUPinnovator/smartbin/internal/common/mqtt"
	rediscommon "github.com/STARTUPinnovator/smartbin/internal/common/redis"

	commoncfg "github.com/STARTUPinnovator/smartbin/internal/common/config"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "smartbin-uplink")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. 持久化层：Postgres 不可用时退回内存实现（仅限本地开发）
	var db *sql.DB
	var binsRepo repository.BinsRepo
	var telemetryRepo repository.TelemetryRepo
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for smartbin-uplink")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		if err := repository.EnsureSchema(ctx, db); err != nil {
			log.Fatal("Failed to ensure schema", zap.Error(err))
		}
		binsRepo = repository.NewPostgresBinsRepo(db)
		telemetryRepo = repository.NewPostgresTelemetryRepo(db)
	} else {
		binsRepo = repository.NewMemoryBinsRepo()
		telemetryRepo = repository.NewMemoryTelemetryRepo()
	}

	// 2. 注册表缓存：从存储层预热（元数据 + 每节点最近一条遥测）
	reg := registry.NewCache()
	if err := reg.Warm(ctx, binsRepo, telemetryRepo); err != nil {
		log.Warn("Registry warm-up failed, starting cold", zap.Error(err))
	}
	log.Info("Registry cache warmed", zap.Int("bins", reg.Len()))

	// 3. 广播中心
	broadcast := hub.New(cfg.Hub.QueueSize, log)

	// 4. 下游数据面（可选）
	var publisher service.EventPublisher
	var redisClient *rediscommon.Client
	if cfg.Redis.Enabled {
		redisClient = rediscommon.NewRedisClient(&commoncfg.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rediscommon.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unavailable, stream publishing disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			publisher = stream.NewPublisher(redisClient, cfg.Redis.Stream, log)
		}
	}

	// 5. 接入管道
	ingest := service.NewIngestor(binsRepo, telemetryRepo, reg, broadcast, publisher, log)

	// 6. HTTP 接口
	router := httpapi.NewRouter(log)
	router.RegisterUplinkRoutes(httpapi.NewUplinkHandler(ingest, log))
	router.RegisterStreamRoutes(httpapi.NewStreamHandler(broadcast, log))
	router.RegisterHealthRoutes()

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 7. MQTT 上行通道（可选）
	var mqttClient *mqttcommon.Client
	var mqttConsumer *consumer.MQTTConsumer
	if cfg.MQTT.Enabled {
		mc, err := mqttcommon.NewClient(&commoncfg.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      cfg.MQTT.QoS,
		}, log)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		mqttClient = mc
		mqttConsumer = consumer.NewMQTTConsumer(cfg, mqttClient, ingest, log)
		go func() {
			if err := mqttConsumer.Start(ctx); err != nil {
				log.Error("MQTT consumer error", zap.Error(err))
			}
		}()
	}

	// 8. 等待信号（优雅关闭）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if mqttConsumer != nil {
		_ = mqttConsumer.Stop(shutdownCtx)
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	broadcast.Stop()
	if redisClient != nil {
		_ = rediscommon.Close(redisClient)
	}
	if db != nil {
		_ = database.Close(db)
	}

	log.Info("smartbin-uplink stopped")
}

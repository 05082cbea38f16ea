package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sensor-ingest/internal/alert"
	"sensor-ingest/internal/cache"
	"sensor-ingest/internal/config"
	"sensor-ingest/internal/database"
	"sensor-ingest/internal/dispatcher"
	httpapi "sensor-ingest/internal/http"
	"sensor-ingest/internal/mqtt"
	"sensor-ingest/internal/repository"
	"sensor-ingest/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	// 3. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// 4. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to ping redis", zap.Error(err))
	}
	defer redisClient.Close()

	// 5. 连接 MQTT（可选，语音动作需要）
	var mqttClient dispatcher.MQTTPublisher
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer client.Disconnect()
		mqttClient = client
	} else {
		logger.Warn("MQTT broker not configured, voice alerts disabled")
	}

	// 6. 创建 Repository 层
	deviceRepo := repository.NewDeviceRepository(db, logger)
	channelRepo := repository.NewSensorChannelRepository(db, logger)
	sampleRepo := repository.NewSensorSampleRepository(db, logger)
	ruleRepo := repository.NewAlertRuleRepository(db, logger)
	alertLogRepo := repository.NewAlertLogRepository(db, logger)

	// 7. 创建缓存与报警引擎
	realtimeCache := cache.NewRealtimeCache(redisClient, time.Duration(cfg.Ingest.RealtimeTTL)*time.Second)
	actionDispatcher := dispatcher.NewActionDispatcher(cfg, redisClient, mqttClient, logger)
	engine := alert.NewEngine(ruleRepo, alertLogRepo, actionDispatcher, logger)

	// 8. 创建服务层
	ingestService := service.NewIngestService(deviceRepo, channelRepo, sampleRepo, realtimeCache, engine, logger)
	realtimeService := service.NewRealtimeService(realtimeCache, sampleRepo, logger)

	// 9. 注册路由并启动 HTTP 服务
	router := httpapi.NewRouter(logger)
	router.RegisterSensorRoutes(httpapi.NewSensorHandler(ingestService, realtimeService, sampleRepo, logger))
	router.RegisterAlertRoutes(httpapi.NewAlertLogHandler(alertLogRepo, logger))

	server := service.NewServer(cfg.HTTP.Addr, router, logger)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.Start()
	}()

	// 10. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("Failed to stop HTTP server", zap.Error(err))
		}
	case err := <-serverErrChan:
		logger.Fatal("HTTP server error", zap.Error(err))
	}

	logger.Info("Sensor ingest service stopped")
}

// initLogger 初始化日志
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

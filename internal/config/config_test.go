package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 检查默认值
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected DB_HOST default 'localhost', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Expected DB_PORT default 5432, got %d", cfg.Database.Port)
	}

	if cfg.Database.Database != "sensor_ingest" {
		t.Errorf("Expected DB_NAME default 'sensor_ingest', got '%s'", cfg.Database.Database)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.MQTT.Broker != "" {
		t.Errorf("Expected MQTT_BROKER default empty, got '%s'", cfg.MQTT.Broker)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("Expected HTTP_ADDR default ':8080', got '%s'", cfg.HTTP.Addr)
	}

	if cfg.Ingest.RealtimeTTL != 60 {
		t.Errorf("Expected REALTIME_TTL default 60, got %d", cfg.Ingest.RealtimeTTL)
	}

	if cfg.Dispatch.NotifyChannel != "sensor:alert:notify" {
		t.Errorf("Expected DISPATCH_NOTIFY_CHANNEL default 'sensor:alert:notify', got '%s'", cfg.Dispatch.NotifyChannel)
	}

	if cfg.Dispatch.VoiceTopicPrefix != "sensor/alert/voice/" {
		t.Errorf("Expected DISPATCH_VOICE_TOPIC_PREFIX default 'sensor/alert/voice/', got '%s'", cfg.Dispatch.VoiceTopicPrefix)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "redis:6380")
	os.Setenv("MQTT_BROKER", "tcp://mqtt:1883")
	os.Setenv("REALTIME_TTL", "30")
	os.Setenv("DISPATCH_WEBHOOK_URL", "http://hooks.local/alert")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("DB_NAME")
		os.Unsetenv("REDIS_ADDR")
		os.Unsetenv("MQTT_BROKER")
		os.Unsetenv("REALTIME_TTL")
		os.Unsetenv("DISPATCH_WEBHOOK_URL")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 检查环境变量值
	if cfg.Database.Host != "test-host" {
		t.Errorf("Expected DB_HOST 'test-host', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.Database != "test-db" {
		t.Errorf("Expected DB_NAME 'test-db', got '%s'", cfg.Database.Database)
	}

	if cfg.Redis.Addr != "redis:6380" {
		t.Errorf("Expected REDIS_ADDR 'redis:6380', got '%s'", cfg.Redis.Addr)
	}

	if cfg.MQTT.Broker != "tcp://mqtt:1883" {
		t.Errorf("Expected MQTT_BROKER 'tcp://mqtt:1883', got '%s'", cfg.MQTT.Broker)
	}

	if cfg.Ingest.RealtimeTTL != 30 {
		t.Errorf("Expected REALTIME_TTL 30, got %d", cfg.Ingest.RealtimeTTL)
	}

	if cfg.Dispatch.WebhookURL != "http://hooks.local/alert" {
		t.Errorf("Expected DISPATCH_WEBHOOK_URL 'http://hooks.local/alert', got '%s'", cfg.Dispatch.WebhookURL)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db-host",
		Port:     5433,
		User:     "app",
		Password: "secret",
		Database: "sensors",
		SSLMode:  "require",
	}

	expected := "host=db-host port=5433 user=app password=secret dbname=sensors sslmode=require"
	if dsn := cfg.GetDSN(); dsn != expected {
		t.Errorf("Expected DSN '%s', got '%s'", expected, dsn)
	}
}

func TestGetEnvInt_InvalidValueFallsBack(t *testing.T) {
	os.Setenv("DB_PORT", "not-a-number")
	defer os.Unsetenv("DB_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Expected DB_PORT fallback 5432, got %d", cfg.Database.Port)
	}
}

package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sensor-ingest/internal/config"
	"sensor-ingest/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type publishedMessage struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTTPublisher struct {
	published []publishedMessage
	err       error
}

func (f *fakeMQTTPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMessage{topic: topic, qos: qos, retained: retained, payload: payload})
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.MQTT.QoS = 1
	cfg.Dispatch.NotifyChannel = "sensor:alert:notify"
	cfg.Dispatch.VoiceTopicPrefix = "sensor/alert/voice/"
	cfg.Dispatch.WebhookTimeout = 2
	return cfg
}

func TestDispatch_NotificationPublishesToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "sensor:alert:notify")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	d := NewActionDispatcher(testConfig(), client, nil, zap.NewNop())

	err = d.Dispatch(ctx, models.ActionNotification, "too hot", nil)
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		var payload alertPayload
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
		assert.Equal(t, "sensor_alert", payload.Type)
		assert.Equal(t, "too hot", payload.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not received")
	}
}

func TestDispatch_NotificationChannelOverride(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "ops:alerts")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	d := NewActionDispatcher(testConfig(), client, nil, zap.NewNop())

	err = d.Dispatch(ctx, models.ActionNotification, "too hot", json.RawMessage(`{"channel": "ops:alerts"}`))
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, "too hot")
	case <-time.After(2 * time.Second):
		t.Fatal("notification not received on overridden channel")
	}
}

func TestDispatch_VoicePublishesToDeviceTopic(t *testing.T) {
	mqttClient := &fakeMQTTPublisher{}
	d := NewActionDispatcher(testConfig(), nil, mqttClient, zap.NewNop())

	err := d.Dispatch(context.Background(), models.ActionVoice, "too hot",
		json.RawMessage(`{"deviceId": "device-1"}`))

	require.NoError(t, err)
	require.Len(t, mqttClient.published, 1)
	assert.Equal(t, "sensor/alert/voice/device-1", mqttClient.published[0].topic)
	assert.Equal(t, byte(1), mqttClient.published[0].qos)
	assert.False(t, mqttClient.published[0].retained)
	assert.Contains(t, string(mqttClient.published[0].payload), "too hot")
}

func TestDispatch_VoiceTopicOverride(t *testing.T) {
	mqttClient := &fakeMQTTPublisher{}
	d := NewActionDispatcher(testConfig(), nil, mqttClient, zap.NewNop())

	err := d.Dispatch(context.Background(), models.ActionVoice, "too hot",
		json.RawMessage(`{"topic": "custom/topic"}`))

	require.NoError(t, err)
	require.Len(t, mqttClient.published, 1)
	assert.Equal(t, "custom/topic", mqttClient.published[0].topic)
}

func TestDispatch_VoiceWithoutMQTTIsDropped(t *testing.T) {
	d := NewActionDispatcher(testConfig(), nil, nil, zap.NewNop())

	// broker 未配置时降级为日志，不报错
	err := d.Dispatch(context.Background(), models.ActionVoice, "too hot", nil)
	assert.NoError(t, err)
}

func TestDispatch_PluginCallsWebhook(t *testing.T) {
	var received alertPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewActionDispatcher(testConfig(), nil, nil, zap.NewNop())

	err := d.Dispatch(context.Background(), models.ActionPlugin, "too hot",
		json.RawMessage(`{"url": "`+server.URL+`"}`))

	require.NoError(t, err)
	assert.Equal(t, "sensor_alert", received.Type)
	assert.Equal(t, "too hot", received.Message)
}

func TestDispatch_PluginWebhookErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewActionDispatcher(testConfig(), nil, nil, zap.NewNop())

	err := d.Dispatch(context.Background(), models.ActionPlugin, "too hot",
		json.RawMessage(`{"url": "`+server.URL+`"}`))

	assert.Error(t, err)
}

func TestDispatch_PluginWithoutURLIsDropped(t *testing.T) {
	d := NewActionDispatcher(testConfig(), nil, nil, zap.NewNop())

	err := d.Dispatch(context.Background(), models.ActionPlugin, "too hot", nil)
	assert.NoError(t, err)
}

func TestDispatch_UnknownActionTypeIsDropped(t *testing.T) {
	d := NewActionDispatcher(testConfig(), nil, nil, zap.NewNop())

	err := d.Dispatch(context.Background(), "sms", "too hot", nil)
	assert.NoError(t, err)
}

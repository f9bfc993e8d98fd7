package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "")
	t.Setenv("PUSH_CHANNEL", "")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 450*time.Millisecond, cfg.AnimationDuration)
	assert.Equal(t, 18, cfg.AnimationFrames)
	assert.Equal(t, "Care_Insight_Event__e", cfg.PushChannel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "5s")
	t.Setenv("PUSH_TRANSPORT", "Redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ANIMATION_FRAMES", "not-a-number")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
	assert.Equal(t, PushTransportRedis, cfg.PushTransport)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 18, cfg.AnimationFrames)
}

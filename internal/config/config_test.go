package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chai-api/internal/domain"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)

	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "chai", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "", cfg.Auth.Bearer)
	assert.Equal(t, "Europe/London", cfg.Timezone)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "chai/relay", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "chai:alerts", cfg.AlertStream)
	assert.Equal(t, 5*time.Minute, cfg.Price.CacheTTL)
	assert.Equal(t, "", cfg.Price.URL)
	assert.Equal(t, 15.0, cfg.Price.FixedRate)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("HTTP_REQUEST_TIMEOUT", "3s")
	t.Setenv("AUTH_BEARER", "shared")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "shared", cfg.Auth.Bearer)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Contains(t, cfg.Database.GetDSN(), "host=db port=5432")
}

func TestLoad_InvalidTimezone(t *testing.T) {
	os.Clearenv()
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultProfiles(t *testing.T) {
	all := DefaultProfiles()
	require.Len(t, all, domain.MaxProfileID)
	for i, p := range all {
		assert.Equal(t, i+1, p.ProfileID)
		require.Len(t, p.PredictionBanded, domain.BandRows)
		for _, row := range p.PredictionBanded {
			require.Len(t, row, 3)
			assert.Less(t, row[0], row[1])
			assert.Less(t, row[1], row[2])
		}
	}

	p, ok := DefaultProfile(2)
	require.True(t, ok)
	assert.Equal(t, 18.0, p.Mean1)
	assert.Equal(t, p.Mean1, p.PredictionBanded[0][1])

	_, ok = DefaultProfile(6)
	assert.False(t, ok)
}

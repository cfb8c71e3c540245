package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amp-monitor/internal/auth"
)

const sampleJSON = `{
  "mqtt_broker": "broker.local",
  "mqtt_port": 1884,
  "mqtt_username": "monitor",
  "mqtt_password": "pw",
  "amplifiers": [
    {"name": "Amp 1", "data_topic_prefix": "matrigs/0/a1/"},
    {"name": "Amp 2", "data_topic_prefix": "matrigs/0/a2/"}
  ],
  "notification_topic": "matrigs/0/n/all",
  "station_notification_topic_pattern": "matrigs/+/n/#",
  "anomaly": {"rules": {"temp": {"min": 0, "max": 70}}}
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "app-config.json", sampleJSON)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "broker.local", cfg.MQTTBroker)
	assert.Equal(t, 1884, cfg.MQTTPort)
	assert.Equal(t, "monitor", cfg.MQTTUsername)
	require.Len(t, cfg.Amplifiers, 2)
	assert.Equal(t, "Amp 2", cfg.Amplifiers[1].Name)
	assert.Equal(t, "matrigs/0/a2/", cfg.Amplifiers[1].DataTopicPrefix)
	assert.Equal(t, []string{"matrigs/0/n/all", "matrigs/+/n/#"}, cfg.NotificationFilters())
	assert.Equal(t, Rule{Min: 0, Max: 70}, cfg.Anomaly.Rules["temp"])

	// defaults
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Notifications.DefaultDuration)
	assert.Equal(t, 50, cfg.Notifications.Capacity)
	assert.Equal(t, 60, cfg.Auth.JWTExpiration)
}

func TestLoadDirectoryYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
mqtt_broker: tcp://10.0.0.5
amplifiers:
  - name: PA
    data_topic_prefix: rig/pa/
server:
  port: 9000
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "tcp://10.0.0.5", cfg.MQTTBroker)
	assert.Equal(t, 1883, cfg.MQTTPort)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "app-config.json", sampleJSON)
	t.Setenv("AMP_MQTT_PASSWORD", "from-env")
	t.Setenv("AMP_SERVER_PORT", "9100")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.MQTTPassword)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadMissingBroker(t *testing.T) {
	_, err := Load(t.TempDir())
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "mqtt_broker is required")
}

func TestValidate(t *testing.T) {
	cfg := Config{MQTTBroker: "b", MQTTPort: 70000}
	cfg.Server.Port = 8081
	cfg.Amplifiers = []AmplifierConfig{
		{Name: "A", DataTopicPrefix: "a/"},
		{Name: "A", DataTopicPrefix: ""},
		{Name: "", DataTopicPrefix: "c/+/"},
	}
	cfg.NotificationTopic = "n/#/bad"
	cfg.Anomaly.Rules = map[string]Rule{"swr": {Min: 3, Max: 1}, "voltage": {}}
	cfg.Auth.AllowedUsers = []auth.User{{Username: "op"}}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"mqtt_port 70000 out of range",
		"duplicate name",
		"data_topic_prefix is required",
		"name is required",
		"must not contain wildcards",
		"invalid topic filter",
		"min 3 > max 1",
		"unknown metric",
		"auth.users requires auth.jwt_secret",
		"auth.users[0]: username and password_hash are required",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateAuthUsersWithSecret(t *testing.T) {
	cfg := Config{MQTTBroker: "b", MQTTPort: 1883}
	cfg.Server.Port = 8081
	cfg.Auth = auth.Config{
		JWTSecret:    "s",
		AllowedUsers: []auth.User{{Username: "op", PasswordHash: "$2a$10$x"}},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Auth.JWTSecret = ""
	assert.ErrorContains(t, cfg.Validate(), "auth.users requires auth.jwt_secret")
}

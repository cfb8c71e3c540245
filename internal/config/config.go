// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"amp-monitor/internal/auth"
	"amp-monitor/internal/data"
	"amp-monitor/internal/topic"
)

var ErrConfig = errors.New("config")

// AmplifierConfig binds a display name to the topic prefix its metrics are
// published under, e.g. "matrigs/0/amp1/".
type AmplifierConfig struct {
	Name            string `mapstructure:"name"`
	DataTopicPrefix string `mapstructure:"data_topic_prefix"`
}

type Config struct {
	MQTTBroker   string `mapstructure:"mqtt_broker"`
	MQTTPort     int    `mapstructure:"mqtt_port"`
	MQTTUsername string `mapstructure:"mqtt_username"`
	MQTTPassword string `mapstructure:"mqtt_password"`

	Amplifiers                      []AmplifierConfig `mapstructure:"amplifiers"`
	NotificationTopic               string            `mapstructure:"notification_topic"`
	StationNotificationTopicPattern string            `mapstructure:"station_notification_topic_pattern"`

	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`
	Notifications struct {
		DefaultDuration int `mapstructure:"default_duration"` // seconds, 0 keeps messages until dismissed
		Capacity        int `mapstructure:"capacity"`
	} `mapstructure:"notifications"`
	Anomaly struct {
		Rules map[string]Rule `mapstructure:"rules"`
	} `mapstructure:"anomaly"`
	Auth auth.Config `mapstructure:"auth"`
}

type Rule struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Load reads config from path, which is either a directory holding a
// config.{yaml,json,toml} or a single file. AMP_* environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		v.SetConfigName("config")
		v.AddConfigPath(path)
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("AMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"mqtt_broker", "mqtt_username", "mqtt_password", "auth.jwt_secret"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read %s: %w", ErrConfig, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mqtt_port", 1883)
	v.SetDefault("server.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("notifications.default_duration", 5)
	v.SetDefault("notifications.capacity", 50)
	v.SetDefault("auth.jwt_expiration", 60)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.MQTTBroker == "" {
		errs = append(errs, errors.New("mqtt_broker is required"))
	}
	if c.MQTTPort < 1 || c.MQTTPort > 65535 {
		errs = append(errs, fmt.Errorf("mqtt_port %d out of range", c.MQTTPort))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Notifications.DefaultDuration < 0 {
		errs = append(errs, errors.New("notifications.default_duration must not be negative"))
	}

	seen := make(map[string]bool, len(c.Amplifiers))
	for i, amp := range c.Amplifiers {
		if amp.Name == "" {
			errs = append(errs, fmt.Errorf("amplifiers[%d]: name is required", i))
		} else if seen[amp.Name] {
			errs = append(errs, fmt.Errorf("amplifiers[%d]: duplicate name %q", i, amp.Name))
		}
		seen[amp.Name] = true
		if amp.DataTopicPrefix == "" {
			errs = append(errs, fmt.Errorf("amplifiers[%d]: data_topic_prefix is required", i))
		} else if strings.ContainsAny(amp.DataTopicPrefix, "#+") {
			errs = append(errs, fmt.Errorf("amplifiers[%d]: data_topic_prefix must not contain wildcards", i))
		}
	}

	for _, f := range []string{c.NotificationTopic, c.StationNotificationTopicPattern} {
		if f == "" {
			continue
		}
		if err := topic.Validate(f); err != nil {
			errs = append(errs, err)
		}
	}

	for name, r := range c.Anomaly.Rules {
		if _, err := data.ParseMetric(name); err != nil {
			errs = append(errs, fmt.Errorf("anomaly.rules: %w", err))
		}
		if r.Min > r.Max {
			errs = append(errs, fmt.Errorf("anomaly.rules.%s: min %v > max %v", name, r.Min, r.Max))
		}
	}

	if len(c.Auth.AllowedUsers) > 0 && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.users requires auth.jwt_secret"))
	}
	for i, u := range c.Auth.AllowedUsers {
		if u.Username == "" || u.PasswordHash == "" {
			errs = append(errs, fmt.Errorf("auth.users[%d]: username and password_hash are required", i))
		}
	}

	return errors.Join(errs...)
}

// NotificationFilters returns the configured notification topic filters.
func (c *Config) NotificationFilters() []string {
	var out []string
	for _, f := range []string{c.NotificationTopic, c.StationNotificationTopicPattern} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/swsclab/swsc/internal/recorder"
	"github.com/swsclab/swsc/pkg/mqttclient"
)

type Config struct {
	HTTPPort     string
	LogLevel     string
	TickInterval time.Duration
	MQTT         mqttclient.Config
	Influx       recorder.Config
}

// loadConfig reads config.yml (working dir or ./configs) with env
// overrides prefixed SWSC_, e.g. SWSC_MQTT_HOST. A missing file is fine;
// every key has a default.
func loadConfig() (Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	viper.SetDefault("port", "8000")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("tick_interval", "1s")
	viper.SetDefault("mqtt.host", "broker.hivemq.com")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.client_id_prefix", "swsc_backend")
	viper.SetDefault("mqtt.keepalive", "30s")
	viper.SetDefault("influx.url", "")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "swsc")
	viper.SetDefault("influx.bucket", "sensors")
	viper.SetDefault("influx.measurement", "sensor_reading")

	viper.SetEnvPrefix("SWSC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	return Config{
		HTTPPort:     viper.GetString("port"),
		LogLevel:     viper.GetString("log_level"),
		TickInterval: viper.GetDuration("tick_interval"),
		MQTT: mqttclient.Config{
			Host:           viper.GetString("mqtt.host"),
			Port:           viper.GetInt("mqtt.port"),
			Username:       viper.GetString("mqtt.username"),
			Password:       viper.GetString("mqtt.password"),
			ClientIDPrefix: viper.GetString("mqtt.client_id_prefix"),
			Keepalive:      viper.GetDuration("mqtt.keepalive"),
		},
		Influx: recorder.Config{
			URL:         viper.GetString("influx.url"),
			Token:       viper.GetString("influx.token"),
			Org:         viper.GetString("influx.org"),
			Bucket:      viper.GetString("influx.bucket"),
			Measurement: viper.GetString("influx.measurement"),
		},
	}, nil
}

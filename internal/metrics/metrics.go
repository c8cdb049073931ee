package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide counters. Registered on the default registry and served
// by the companion's /metrics endpoint.
var (
	MQTTConnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swsc_mqtt_connects_total",
		Help: "Successful broker connections, including reconnects.",
	})

	MQTTPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swsc_mqtt_publish_total",
		Help: "Publish attempts by result (ok, not_connected, error).",
	}, []string{"result"})

	Alerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swsc_alerts_total",
		Help: "Scheduler alerts emitted, by kind (break, water, env, finished, stop).",
	}, []string{"kind"})

	RecorderWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swsc_recorder_writes_total",
		Help: "Sensor reading writes to InfluxDB by result (ok, error, skipped).",
	}, []string{"result"})
)

// Package recorder persists raw sensor readings to InfluxDB. Session
// state is never stored; this is environmental telemetry only.
package recorder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/swsclab/swsc/internal/metrics"
)

const (
	writeTimeout       = 3 * time.Second
	breakerOpenFor     = 30 * time.Second
	breakerTripAfter   = 5
	defaultMeasurement = "sensor_reading"
)

type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// Recorder writes one point per reading. The circuit breaker trips
// after consecutive write failures so a dead InfluxDB cannot stall the
// inbound MQTT callback path with per-message timeouts.
type Recorder struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	breaker     *gobreaker.CircuitBreaker
	measurement string
	log         *zap.SugaredLogger
}

func New(cfg Config, log *zap.SugaredLogger) (*Recorder, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = defaultMeasurement
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Recorder{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		breaker:     newBreaker(),
		measurement: cfg.Measurement,
		log:         log,
	}, nil
}

func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "influx-write",
		MaxRequests: 1,
		Timeout:     breakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTripAfter
		},
	})
}

// Record stores one reading. Non-numeric payloads (the firmware sends
// "-" before the first measurement) are skipped, not errors. Safe to
// call from the connection loop's callback goroutine.
func (r *Recorder) Record(metric, value string) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		metrics.RecorderWrites.WithLabelValues("skipped").Inc()
		r.log.Debugw("non-numeric reading skipped", "metric", metric, "value", value)
		return
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		p := influxdb2.NewPoint(r.measurement,
			map[string]string{"metric": metric},
			map[string]interface{}{"value": f},
			time.Now())
		return nil, r.writeAPI.WritePoint(ctx, p)
	})
	if err != nil {
		metrics.RecorderWrites.WithLabelValues("error").Inc()
		r.log.Warnw("influx write failed", "metric", metric, "err", err)
		return
	}
	metrics.RecorderWrites.WithLabelValues("ok").Inc()
}

func (r *Recorder) Close() {
	r.client.Close()
}

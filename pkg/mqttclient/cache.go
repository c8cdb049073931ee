package mqttclient

import "sync"

// Metric names tracked by the sensor cache.
const (
	MetricTemperature = "temperature"
	MetricHumidity    = "humidity"
	MetricLight       = "light"
)

// noReading is the placeholder shown before a metric arrives.
const noReading = "-"

// SensorCache holds the last-known value per metric plus the device's
// self-reported system status. Values are overwritten in place under one
// lock; the map itself is never handed out, only copies.
type SensorCache struct {
	mu           sync.RWMutex
	values       map[string]string
	systemStatus string
}

func NewSensorCache() *SensorCache {
	return &SensorCache{
		values: map[string]string{
			MetricTemperature: noReading,
			MetricHumidity:    noReading,
			MetricLight:       noReading,
		},
		systemStatus: "Disconnected",
	}
}

func (c *SensorCache) Set(metric, value string) {
	c.mu.Lock()
	c.values[metric] = value
	c.mu.Unlock()
}

func (c *SensorCache) Get(metric string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[metric]
	return v, ok
}

// Snapshot returns a copy of all cached readings.
func (c *SensorCache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c *SensorCache) SetSystemStatus(status string) {
	c.mu.Lock()
	c.systemStatus = status
	c.mu.Unlock()
}

func (c *SensorCache) SystemStatus() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.systemStatus
}

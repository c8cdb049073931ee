// Package simulator stands in for the companion device firmware:
// periodic sensor readings out, alert/control reactions in. Useful for
// exercising the whole pipeline without hardware.
package simulator

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/swsclab/swsc/pkg/dedup"
	"github.com/swsclab/swsc/pkg/mqttclient"
)

const dedupTTL = 5 * time.Minute

// Device mirrors the firmware's observable behavior: it reports ONLINE,
// streams readings, and tracks which buzzers the coordinator has
// switched on. Inbound QoS-1 redeliveries are dropped by packet id.
type Device struct {
	mqtt *mqttclient.Service
	gen  *Generator
	ded  *dedup.Deduper
	log  *zap.SugaredLogger

	mu          sync.Mutex
	sessionOn   bool
	breakActive bool
	waterBuzz   map[int]bool
}

func NewDevice(m *mqttclient.Service, gen *Generator, log *zap.SugaredLogger) *Device {
	d := &Device{
		mqtt:      m,
		gen:       gen,
		ded:       dedup.New(dedupTTL, 10000),
		log:       log,
		waterBuzz: make(map[int]bool),
	}
	m.Register(mqttclient.TopicControlAll, 1, d.onMessage)
	m.Register(mqttclient.TopicAlertAll, 1, d.onMessage)
	return d
}

// Run announces the device and publishes readings until the context is
// cancelled. Call after the messaging client is started.
func (d *Device) Run(ctx context.Context, interval time.Duration) {
	d.mqtt.Publish(mqttclient.TopicStatusSystem, "ONLINE", 1, true)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			d.mqtt.Publish(mqttclient.TopicStatusSystem, "OFFLINE", 1, true)
			return
		case <-t.C:
			r := d.gen.Next()
			d.mqtt.Publish(mqttclient.TopicDataTemperature, strconv.FormatFloat(r.Temperature, 'f', 1, 64), 0, false)
			d.mqtt.Publish(mqttclient.TopicDataHumidity, strconv.FormatFloat(r.Humidity, 'f', 0, 64), 0, false)
			d.mqtt.Publish(mqttclient.TopicDataLight, strconv.FormatFloat(r.Light, 'f', 0, 64), 0, false)
		}
	}
}

func (d *Device) onMessage(_ mqtt.Client, m mqtt.Message) {
	if !d.ded.ShouldProcess(dedup.Key(m.Topic(), m.MessageID())) {
		return
	}
	d.handle(m.Topic(), string(m.Payload()))
}

func (d *Device) handle(topic, payload string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch topic {
	case mqttclient.TopicControlStart:
		d.sessionOn = true
		d.log.Infow("session start received")
	case mqttclient.TopicControlStop:
		d.sessionOn = false
		d.breakActive = false
		d.waterBuzz = make(map[int]bool)
		d.log.Infow("session stop received, buzzers off")
	case mqttclient.TopicControlReset:
		d.sessionOn = false
		d.breakActive = false
		d.waterBuzz = make(map[int]bool)
		d.log.Infow("reset received")
	case mqttclient.TopicAlertBreak:
		d.breakActive = payload == "START"
		d.log.Infow("break alert", "payload", payload)
	case mqttclient.TopicAlertWater:
		d.handleWaterLocked(payload)
	case mqttclient.TopicAlertEnv:
		d.log.Warnw("environment warning buzz")
	case mqttclient.TopicAlertFinished:
		d.sessionOn = false
		d.breakActive = false
		d.waterBuzz = make(map[int]bool)
		d.log.Infow("session finished", "message", payload)
	}
}

func (d *Device) handleWaterLocked(payload string) {
	switch {
	case strings.HasPrefix(payload, "START:"):
		if id, err := strconv.Atoi(payload[len("START:"):]); err == nil {
			d.waterBuzz[id] = true
			d.log.Infow("water buzzer on", "milestone", id)
		}
	case strings.HasPrefix(payload, "STOP:"):
		if id, err := strconv.Atoi(payload[len("STOP:"):]); err == nil {
			delete(d.waterBuzz, id)
			d.log.Infow("water buzzer off", "milestone", id)
		}
	case strings.HasPrefix(payload, "PING:"):
		// keep-alive for already-active buzzers
		d.log.Debugw("water ping", "ids", payload[len("PING:"):])
	}
}

// State is the device's buzzer state, for inspection.
type State struct {
	SessionOn   bool
	BreakActive bool
	WaterBuzz   []int
}

func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := State{SessionOn: d.sessionOn, BreakActive: d.breakActive}
	for id, on := range d.waterBuzz {
		if on {
			st.WaterBuzz = append(st.WaterBuzz, id)
		}
	}
	return st
}

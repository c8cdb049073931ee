// Package mqttclient maintains the single logical connection to the
// MQTT broker that the companion device is reachable through. It owns
// reconnection, the fixed subscription set, and the last-known sensor
// readings; everything else publishes through it.
package mqttclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swsclab/swsc/internal/metrics"
)

const (
	reconnectDelayMin = 1 * time.Second
	reconnectDelayMax = 30 * time.Second
	defaultKeepalive  = 30 * time.Second

	// publishWaitTimeout bounds both the wait for connectivity and the
	// wait for the broker to accept a publish. Callers never block longer.
	publishWaitTimeout = 2 * time.Second

	disconnectQuiesceMs = 250
)

type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	ClientIDPrefix string
	Keepalive      time.Duration
}

type subscription struct {
	qos     byte
	handler mqtt.MessageHandler
}

// Service is the resilient messaging client. One instance per process.
type Service struct {
	cfg   Config
	log   *zap.SugaredLogger
	cache *SensorCache

	mu        sync.Mutex
	client    mqtt.Client
	connected bool
	connCh    chan struct{} // closed while connected, replaced on loss
	connects  int
	subs      map[string]subscription
	observer  func(metric, value string)
}

func New(cfg Config, log *zap.SugaredLogger) *Service {
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = defaultKeepalive
	}
	if cfg.ClientIDPrefix == "" {
		cfg.ClientIDPrefix = "swsc"
	}
	s := &Service{
		cfg:    cfg,
		log:    log,
		cache:  NewSensorCache(),
		connCh: make(chan struct{}),
		subs:   make(map[string]subscription),
	}
	// Fixed inbound set; QoS 1 throughout, matching the firmware.
	ingest := mqtt.MessageHandler(func(_ mqtt.Client, m mqtt.Message) {
		s.handleInbound(m.Topic(), string(m.Payload()))
	})
	s.subs[TopicStatusAll] = subscription{qos: 1, handler: ingest}
	s.subs[TopicDataAll] = subscription{qos: 1, handler: ingest}
	s.subs[TopicAlertAll] = subscription{qos: 1, handler: ingest}
	return s
}

// Register adds (or replaces) a subscription applied on every connect.
// Call before Start; a registration while connected is subscribed
// immediately as well.
func (s *Service) Register(topic string, qos byte, handler mqtt.MessageHandler) {
	s.mu.Lock()
	s.subs[topic] = subscription{qos: qos, handler: handler}
	client, connected := s.client, s.connected
	s.mu.Unlock()
	if connected && client != nil {
		client.Subscribe(topic, qos, handler)
	}
}

// SetReadingObserver installs a hook invoked for every sensor reading
// after the cache is updated. The hook runs on the connection loop's
// callback goroutine and must not block.
func (s *Service) SetReadingObserver(fn func(metric, value string)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// Start connects to the broker, retrying with exponential backoff until
// the context is cancelled. After the first successful connect, paho's
// auto-reconnect (capped at the same ceiling) takes over for drops.
func (s *Service) Start(ctx context.Context) error {
	addr := fmt.Sprintf("tcp://%s:%d", s.cfg.Host, s.cfg.Port)
	clientID := fmt.Sprintf("%s_%s", s.cfg.ClientIDPrefix, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions().
		AddBroker(addr).
		SetClientID(clientID).
		SetCleanSession(true).
		SetKeepAlive(s.cfg.Keepalive).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(reconnectDelayMax).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	client := mqtt.NewClient(opts)
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	s.log.Infow("connecting to MQTT broker", "broker", addr, "client_id", clientID)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = reconnectDelayMin
	bo.MaxInterval = reconnectDelayMax
	bo.MaxElapsedTime = 0 // retry until cancelled

	err := backoff.Retry(func() error {
		token := client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			s.log.Warnw("broker connect failed, retrying", "broker", addr, "err", err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("connect to broker %s: %w", addr, err)
	}
	return nil
}

// Stop performs a clean disconnect. No backoff is triggered.
func (s *Service) Stop() {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return
	}
	client.Disconnect(disconnectQuiesceMs)
	s.setConnected(false)
	s.log.Info("MQTT connection closed")
}

// Publish forwards a message to the broker. It waits up to two seconds
// for connectivity and for the broker's acceptance; on either timeout or
// error it reports false without queuing. Success means the transport
// accepted the message, not end-to-end delivery.
func (s *Service) Publish(topic, payload string, qos byte, retain bool) bool {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		s.log.Warnw("publish before client start", "topic", topic)
		metrics.MQTTPublishes.WithLabelValues("not_connected").Inc()
		return false
	}
	if !s.WaitConnected(publishWaitTimeout) {
		s.log.Warnw("not connected, dropping publish", "topic", topic)
		metrics.MQTTPublishes.WithLabelValues("not_connected").Inc()
		return false
	}
	token := client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(publishWaitTimeout) {
		s.log.Warnw("publish not acknowledged in time", "topic", topic)
		metrics.MQTTPublishes.WithLabelValues("error").Inc()
		return false
	}
	if err := token.Error(); err != nil {
		s.log.Errorw("publish failed", "topic", topic, "err", err)
		metrics.MQTTPublishes.WithLabelValues("error").Inc()
		return false
	}
	s.log.Debugw("published", "topic", topic, "payload", payload)
	metrics.MQTTPublishes.WithLabelValues("ok").Inc()
	return true
}

func (s *Service) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// WaitConnected blocks until the client is connected or the timeout
// elapses, and reports the final state.
func (s *Service) WaitConnected(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		if s.connected {
			s.mu.Unlock()
			return true
		}
		ch := s.connCh
		s.mu.Unlock()

		remain := time.Until(deadline)
		if remain <= 0 {
			return false
		}
		timer := time.NewTimer(remain)
		select {
		case <-ch:
			timer.Stop() // re-check; the connection may already be gone again
		case <-timer.C:
			return false
		}
	}
}

// Sensor snapshot accessors: reads go through the cache's own lock and
// never touch the connection state.

func (s *Service) SensorSnapshot() map[string]string { return s.cache.Snapshot() }

func (s *Service) SystemStatus() string { return s.cache.SystemStatus() }

// ConnectionCount reports how many times the client has (re)connected.
func (s *Service) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

func (s *Service) onConnect(client mqtt.Client) {
	s.mu.Lock()
	s.connects++
	n := s.connects
	subs := make(map[string]subscription, len(s.subs))
	for t, sub := range s.subs {
		subs[t] = sub
	}
	s.mu.Unlock()

	for topic, sub := range subs {
		token := client.Subscribe(topic, sub.qos, sub.handler)
		token.Wait()
		if err := token.Error(); err != nil {
			s.log.Errorw("subscribe failed", "topic", topic, "err", err)
			continue
		}
		s.log.Infow("subscribed", "topic", topic, "qos", sub.qos)
	}
	s.setConnected(true)
	metrics.MQTTConnects.Inc()
	s.log.Infow("MQTT connected", "connection", n)
}

func (s *Service) onConnectionLost(_ mqtt.Client, err error) {
	s.setConnected(false)
	s.log.Warnw("MQTT connection lost, auto-reconnect engaged", "err", err)
}

func (s *Service) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == s.connected {
		return
	}
	s.connected = v
	if v {
		close(s.connCh)
	} else {
		s.connCh = make(chan struct{})
	}
}

// handleInbound demultiplexes one inbound message. Unknown topics are
// ignored; alert topics are our own outbound traffic echoed back by the
// wildcard subscription and carry no state.
func (s *Service) handleInbound(topic, payload string) {
	switch topic {
	case TopicDataTemperature:
		s.storeReading(MetricTemperature, payload)
	case TopicDataHumidity:
		s.storeReading(MetricHumidity, payload)
	case TopicDataLight:
		s.storeReading(MetricLight, payload)
	case TopicStatusSystem:
		s.cache.SetSystemStatus(payload)
		s.log.Infow("system status", "status", payload)
	}
}

func (s *Service) storeReading(metric, value string) {
	s.cache.Set(metric, value)
	s.mu.Lock()
	fn := s.observer
	s.mu.Unlock()
	if fn != nil {
		fn(metric, value)
	}
}

package session

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swsclab/swsc/internal/metrics"
	"github.com/swsclab/swsc/pkg/mqttclient"
)

// Re-alert throttles. Water pings coalesce active milestones into one
// message; env warnings repeat faster the worse the environment is.
const (
	waterRepingInterval = 500 * time.Millisecond
	envRepeatPoor       = 2 * time.Second
	envRepeatDegraded   = 15 * time.Second
)

// Publisher is the outbound capability the scheduler needs. Failures are
// reported, never raised; timing state advances regardless.
type Publisher interface {
	Publish(topic, payload string, qos byte, retain bool) bool
}

// outbound is one alert scheduled inside a critical section and
// published after the lock is released.
type outbound struct {
	topic   string
	payload string
	qos     byte
	retain  bool
}

// Snapshot is an immutable read of the scheduler state.
type Snapshot struct {
	Running           bool         `json:"running"`
	Phase             Phase        `json:"phase"`
	PhaseRemainingSec int          `json:"phase_remaining_sec"`
	TotalRemainingSec int          `json:"total_remaining_sec"`
	Plan              *Plan        `json:"plan"`
	WaterActive       map[int]bool `json:"water_active"`
	WaterFired        map[int]bool `json:"water_fired"`
}

// Scheduler owns all session timing. One instance serves one active
// session; every field below is guarded by mu so ticks and commands are
// atomic with respect to each other. Publishes happen outside mu.
type Scheduler struct {
	pub Publisher
	log *zap.SugaredLogger
	now func() time.Time

	mu                sync.Mutex
	running           bool
	phase             Phase
	phaseRemainingSec int
	totalRemainingSec int
	plan              *Plan
	startEpoch        time.Time
	lastTick          time.Time
	breaksTaken       int
	waterActive       map[int]bool
	waterFired        map[int]bool
	lastWaterBuzz     time.Time
	envStatus         EnvStatus
	lastEnvBuzz       time.Time
}

func NewScheduler(pub Publisher, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		pub:         pub,
		log:         log,
		now:         time.Now,
		phase:       PhaseSession,
		waterActive: make(map[int]bool),
		waterFired:  make(map[int]bool),
	}
}

// Start begins a session from the given plan. Calling it on a running
// scheduler overwrites the prior session: last start wins.
func (s *Scheduler) Start(plan Plan) error {
	if plan.DurationMin < 1 {
		return fmt.Errorf("plan duration %d min: must be at least one minute", plan.DurationMin)
	}
	if len(plan.WaterMilestones) == 0 {
		return fmt.Errorf("plan has no water milestones")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.plan = &plan
	s.running = true
	s.phase = PhaseSession
	s.totalRemainingSec = plan.DurationMin * 60
	s.breaksTaken = 0
	if plan.BreakCount > 0 {
		s.phaseRemainingSec = minInt(s.totalRemainingSec, plan.BreakIntervalMin*60)
	} else {
		s.phaseRemainingSec = s.totalRemainingSec
	}
	s.startEpoch = now
	s.lastTick = now
	s.waterActive = make(map[int]bool, len(plan.WaterMilestones))
	s.waterFired = make(map[int]bool, len(plan.WaterMilestones))
	for i := range plan.WaterMilestones {
		s.waterActive[i] = false
		s.waterFired[i] = false
	}
	s.lastWaterBuzz = time.Time{}

	s.log.Infow("session started",
		"duration_min", plan.DurationMin,
		"break_interval_min", plan.BreakIntervalMin,
		"break_count", plan.BreakCount,
		"water_milestones", len(plan.WaterMilestones))
	return nil
}

// Stop aborts a running session. Every still-active milestone gets a
// STOP alert, then the device is told to stop. The plan is kept so a
// stopped session can still be inspected; Reset clears it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.phase = PhaseSession
	s.phaseRemainingSec = 0
	s.totalRemainingSec = 0
	s.startEpoch = time.Time{}
	s.lastTick = time.Time{}

	var out []outbound
	for _, id := range activeIDs(s.waterActive) {
		out = append(out, outbound{mqttclient.TopicAlertWater, "STOP:" + strconv.Itoa(id), 1, false})
	}
	s.waterActive = make(map[int]bool)
	s.waterFired = make(map[int]bool)
	out = append(out, outbound{mqttclient.TopicControlStop, "STOP", 1, false})
	s.mu.Unlock()

	s.emit(out)
	s.log.Info("session stopped")
}

// Reset returns to the idle pre-state from any state. No alerts are
// published; the device-facing reset is the caller's concern.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.phase = PhaseSession
	s.phaseRemainingSec = 0
	s.totalRemainingSec = 0
	s.plan = nil
	s.startEpoch = time.Time{}
	s.lastTick = time.Time{}
	s.breaksTaken = 0
	s.waterActive = make(map[int]bool)
	s.waterFired = make(map[int]bool)
	s.lastWaterBuzz = time.Time{}
	s.log.Info("scheduler reset")
}

// WaterAck acknowledges a hydration reminder. Acknowledging an inactive
// or already-acknowledged milestone is a no-op; the fired latch is never
// cleared, so the milestone cannot re-fire.
func (s *Scheduler) WaterAck(id int) error {
	if id < 0 {
		return fmt.Errorf("milestone id %d: must be non-negative", id)
	}
	s.mu.Lock()
	var out []outbound
	if s.waterActive[id] {
		s.waterActive[id] = false
		out = append(out, outbound{mqttclient.TopicAlertWater, "STOP:" + strconv.Itoa(id), 1, false})
		s.log.Infow("water milestone acknowledged", "milestone", id)
	}
	s.mu.Unlock()
	s.emit(out)
	return nil
}

// SetEnvStatus records the externally classified environment quality,
// read on the next tick.
func (s *Scheduler) SetEnvStatus(status EnvStatus) {
	s.mu.Lock()
	s.envStatus = status
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the scheduler state. It takes
// the same lock ticks and commands use, so it never observes a
// transition mid-flight.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Running:           s.running,
		Phase:             s.phase,
		PhaseRemainingSec: s.phaseRemainingSec,
		TotalRemainingSec: s.totalRemainingSec,
		WaterActive:       make(map[int]bool, len(s.waterActive)),
		WaterFired:        make(map[int]bool, len(s.waterFired)),
	}
	for k, v := range s.waterActive {
		snap.WaterActive[k] = v
	}
	for k, v := range s.waterFired {
		snap.WaterFired[k] = v
	}
	if s.plan != nil {
		p := *s.plan
		p.WaterMilestones = append([]int(nil), s.plan.WaterMilestones...)
		snap.Plan = &p
	}
	return snap
}

// Tick advances the state machine by the wall-clock time elapsed since
// the last tick. Alerts are collected under the lock and published after
// it is released.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	out := s.advanceLocked(s.now())
	s.mu.Unlock()
	s.emit(out)
}

// Run drives Tick at the given cadence until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick()
		}
	}
}

func (s *Scheduler) advanceLocked(now time.Time) []outbound {
	if !s.running || s.plan == nil || s.lastTick.IsZero() {
		return nil
	}

	var out []outbound
	out = s.envAlertLocked(now, out)

	elapsed := int(now.Sub(s.lastTick).Seconds())
	if elapsed <= 0 {
		// Sub-second tick: only re-evaluate periodic re-alerts.
		return s.waterPingLocked(now, out)
	}
	s.lastTick = now
	sinceStart := int(now.Sub(s.startEpoch).Seconds())

	// Milestones fire in index order; one that comes due together with
	// session completion still fires before COMPLETED below.
	for idx, offset := range s.plan.WaterMilestones {
		if sinceStart >= offset && !s.waterFired[idx] {
			s.waterFired[idx] = true
			s.waterActive[idx] = true
			s.lastWaterBuzz = now
			out = append(out, outbound{mqttclient.TopicAlertWater, "START:" + strconv.Itoa(idx), 1, false})
			s.log.Infow("water milestone reached", "milestone", idx, "offset_sec", offset)
		}
	}
	out = s.waterPingLocked(now, out)

	switch s.phase {
	case PhaseSession:
		s.phaseRemainingSec = maxInt(0, s.phaseRemainingSec-elapsed)
		s.totalRemainingSec = maxInt(0, s.totalRemainingSec-elapsed)
		if s.phaseRemainingSec == 0 {
			switch {
			case s.breaksTaken < s.plan.BreakCount && s.plan.BreakLengthMin > 0:
				s.phase = PhaseBreak
				s.phaseRemainingSec = s.plan.BreakLengthMin * 60
				s.breaksTaken++
				out = append(out, outbound{mqttclient.TopicAlertBreak, "START", 1, false})
				s.log.Infow("break started", "break", s.breaksTaken, "of", s.plan.BreakCount)
			case s.totalRemainingSec == 0:
				out = s.completeLocked(out)
			default:
				s.phaseRemainingSec = minInt(s.plan.BreakIntervalMin*60, s.totalRemainingSec)
			}
		}
	case PhaseBreak:
		s.phaseRemainingSec = maxInt(0, s.phaseRemainingSec-elapsed)
		if s.phaseRemainingSec == 0 {
			out = append(out, outbound{mqttclient.TopicAlertBreak, "END", 1, false})
			if s.totalRemainingSec == 0 {
				out = s.completeLocked(out)
			} else {
				s.phase = PhaseSession
				s.phaseRemainingSec = minInt(s.plan.BreakIntervalMin*60, s.totalRemainingSec)
				s.log.Info("break ended, session resumed")
			}
		}
	}
	return out
}

func (s *Scheduler) completeLocked(out []outbound) []outbound {
	s.running = false
	s.phase = PhaseCompleted
	out = append(out,
		outbound{mqttclient.TopicAlertFinished, "Session Completed", 1, false},
		outbound{mqttclient.TopicControlStop, "STOP", 1, false})
	s.log.Info("session completed")
	return out
}

// waterPingLocked re-publishes a coalesced ping for all active
// milestones, throttled so repeated ticks do not flood the transport.
func (s *Scheduler) waterPingLocked(now time.Time, out []outbound) []outbound {
	ids := activeIDs(s.waterActive)
	if len(ids) == 0 || now.Sub(s.lastWaterBuzz) < waterRepingInterval {
		return out
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	s.lastWaterBuzz = now
	return append(out, outbound{mqttclient.TopicAlertWater, "PING:" + strings.Join(parts, ","), 1, false})
}

// envAlertLocked runs every tick regardless of phase; POOR repeats
// faster than DEGRADED, IDEAL never alerts.
func (s *Scheduler) envAlertLocked(now time.Time, out []outbound) []outbound {
	var interval time.Duration
	switch s.envStatus {
	case EnvPoor:
		interval = envRepeatPoor
	case EnvDegraded:
		interval = envRepeatDegraded
	default:
		return out
	}
	if now.Sub(s.lastEnvBuzz) < interval {
		return out
	}
	s.lastEnvBuzz = now
	return append(out, outbound{mqttclient.TopicAlertEnv, "WARNING", 1, false})
}

// emit publishes scheduled alerts. Must be called without mu held.
// Failures are logged and dropped: session timing never depends on
// delivery.
func (s *Scheduler) emit(out []outbound) {
	for _, m := range out {
		metrics.Alerts.WithLabelValues(alertKind(m.topic)).Inc()
		if !s.pub.Publish(m.topic, m.payload, m.qos, m.retain) {
			s.log.Warnw("alert not delivered", "topic", m.topic, "payload", m.payload)
		}
	}
}

func alertKind(topic string) string {
	switch topic {
	case mqttclient.TopicAlertBreak:
		return "break"
	case mqttclient.TopicAlertWater:
		return "water"
	case mqttclient.TopicAlertEnv:
		return "env"
	case mqttclient.TopicAlertFinished:
		return "finished"
	case mqttclient.TopicControlStop:
		return "stop"
	}
	return "other"
}

func activeIDs(m map[int]bool) []int {
	ids := make([]int, 0, len(m))
	for id, active := range m {
		if active {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

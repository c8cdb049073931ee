package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swsclab/swsc/internal/session"
	"github.com/swsclab/swsc/pkg/mqttclient"
)

// connectWait bounds how long /api/start waits for the messaging client
// to demonstrate connectivity before rejecting the request.
const connectWait = 2 * time.Second

type planRequest struct {
	DurationMin int `json:"duration_min" binding:"required"`
}

type ackRequest struct {
	// pointer so milestone 0 passes the required binding
	MilestoneID *int `json:"milestone_id" binding:"required"`
}

type envRequest struct {
	Status string `json:"status" binding:"required"` // ideal | degraded | poor
}

// plan previews the schedule for a requested duration without starting
// anything.
func (h *Handler) plan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, session.ComputePlan(req.DurationMin))
}

// start gates on broker connectivity, starts the scheduler and pushes
// the session config to the device: retained config values first, then
// the start command at QoS 1.
func (h *Handler) start(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if !h.mqtt.WaitConnected(connectWait) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "MQTT not connected"})
		return
	}

	plan := session.ComputePlan(req.DurationMin)
	if err := h.sched.Start(plan); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mqtt.Publish(mqttclient.TopicConfigDuration, strconv.Itoa(plan.DurationMin), 1, true)
	h.mqtt.Publish(mqttclient.TopicConfigBreakInterval, strconv.Itoa(plan.BreakIntervalMin), 1, true)
	h.mqtt.Publish(mqttclient.TopicConfigBreakLength, strconv.Itoa(plan.BreakLengthMin), 1, true)
	h.mqtt.Publish(mqttclient.TopicConfigWaterReminder, "on", 1, true)
	h.mqtt.Publish(mqttclient.TopicControlStart, "START", 1, false)

	c.JSON(http.StatusOK, gin.H{"ok": true, "plan": plan})
}

func (h *Handler) stop(c *gin.Context) {
	h.sched.Stop()
	h.mqtt.Publish(mqttclient.TopicControlStop, "STOP", 1, false)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) reset(c *gin.Context) {
	h.sched.Reset()
	h.mqtt.Publish(mqttclient.TopicControlReset, "RESET", 1, false)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) waterAck(c *gin.Context) {
	var req ackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if err := h.sched.WaterAck(*req.MilestoneID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// setEnv records the environment quality computed by the external
// classifier; the scheduler reads it on its next tick.
func (h *Handler) setEnv(c *gin.Context) {
	var req envRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	status, err := session.ParseEnvStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.sched.SetEnvStatus(status)
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": status.String()})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scheduler":      h.sched.Snapshot(),
		"sensor":         h.mqtt.SensorSnapshot(),
		"system_status":  h.mqtt.SystemStatus(),
		"mqtt_connected": h.mqtt.IsConnected(),
	})
}

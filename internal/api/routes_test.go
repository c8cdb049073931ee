package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swsclab/swsc/internal/session"
	"github.com/swsclab/swsc/pkg/mqttclient"
)

// newTestRouter wires real components against a never-started messaging
// client: publishes fail fast and connectivity is never demonstrated.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	mqtt := mqttclient.New(mqttclient.Config{Host: "127.0.0.1", Port: 1883}, log)
	sched := session.NewScheduler(mqtt, log)
	return NewHandler(sched, mqtt, log).InitRoutes()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlanPreview(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/plan", `{"duration_min":75}`)
	require.Equal(t, http.StatusOK, w.Code)

	var plan session.Plan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, 40, plan.BreakIntervalMin)
	assert.Equal(t, []int{1800, 3600}, plan.WaterMilestones)
}

func TestPlanRejectsInvalidBody(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/plan", `{"minutes":75}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartRejectedWhileDisconnected(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/start", `{"duration_min":30}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStopAndResetAlwaysSucceed(t *testing.T) {
	router := newTestRouter(t)
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/stop", "").Code)
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/reset", "").Code)
}

func TestWaterAck(t *testing.T) {
	router := newTestRouter(t)

	// milestone 0 must pass the required binding
	w := doJSON(t, router, http.MethodPost, "/api/water_ack", `{"milestone_id":0}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/water_ack", `{"milestone_id":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/water_ack", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetEnvStatus(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/env", `{"status":"poor"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/env", `{"status":"terrible"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusAggregate(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Scheduler     session.Snapshot  `json:"scheduler"`
		Sensor        map[string]string `json:"sensor"`
		SystemStatus  string            `json:"system_status"`
		MQTTConnected bool              `json:"mqtt_connected"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Scheduler.Running)
	assert.Equal(t, "-", body.Sensor["temperature"])
	assert.Equal(t, "Disconnected", body.SystemStatus)
	assert.False(t, body.MQTTConnected)
}

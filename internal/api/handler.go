// Package api exposes the scheduler and messaging client over HTTP for
// the dashboard. The dashboard itself lives outside this repository.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/swsclab/swsc/internal/session"
	"github.com/swsclab/swsc/pkg/mqttclient"
)

// Handler wires the HTTP layer to the scheduler and messaging client.
type Handler struct {
	sched *session.Scheduler
	mqtt  *mqttclient.Service
	log   *zap.SugaredLogger
}

func NewHandler(sched *session.Scheduler, mqtt *mqttclient.Service, log *zap.SugaredLogger) *Handler {
	return &Handler{sched: sched, mqtt: mqtt, log: log}
}

// InitRoutes builds the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/plan", h.plan)
		api.POST("/start", h.start)
		api.POST("/stop", h.stop)
		api.POST("/reset", h.reset)
		api.POST("/water_ack", h.waterAck)
		api.POST("/env", h.setEnv)
		api.GET("/status", h.status)
	}
	return router
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

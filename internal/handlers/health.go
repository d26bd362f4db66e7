package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/metrics"
)

type HealthHandler struct {
	db      *gorm.DB
	monitor *metrics.Monitor
}

func NewHealthHandler(db *gorm.DB, monitor *metrics.Monitor) *HealthHandler {
	return &HealthHandler{db: db, monitor: monitor}
}

// GET /api/health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "OK"
	dbStatus := "up"
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "DEGRADED"
			dbStatus = "down"
		}
	}

	payload := gin.H{
		"status":   status,
		"database": dbStatus,
	}
	if h.monitor != nil {
		payload["metrics"] = h.monitor.Summary()
	}

	code := http.StatusOK
	if status != "OK" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, payload)
}

package controllers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MiaowFISH/emohub/database"
	"github.com/MiaowFISH/emohub/storage"
)

var startTime = time.Now()

// Health reports liveness plus store and storage reachability.
func Health(c *gin.Context) {
	dbStatus := "connected"
	storageStatus := "ready"

	dbErr := database.Ping()
	if dbErr != nil {
		dbStatus = "error"
	}

	_, storageErr := os.Stat(storage.Base())
	if storageErr != nil {
		storageStatus = "error"
	}

	body := gin.H{
		"status":    "ok",
		"uptime":    time.Since(startTime).Seconds(),
		"database":  dbStatus,
		"storage":   storageStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if dbErr != nil || storageErr != nil {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

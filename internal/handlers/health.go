package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	DatabaseState string    `json:"databaseState"`
	CacheState    string    `json:"cacheState"`
	Environment   string    `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbState := "Connected"
	if err := h.store.Ping(ctx); err != nil {
		dbState = "Disconnected"
		h.log.Error().Err(err).Msg("database ping failed")
	}

	cacheState := "Disabled"
	if h.cache != nil {
		cacheState = "Connected"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			cacheState = "Disconnected"
			h.log.Error().Err(err).Msg("redis ping failed")
		}
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:        "OK",
		Message:       "CashCraft Loans API is running",
		Timestamp:     time.Now().UTC(),
		DatabaseState: dbState,
		CacheState:    cacheState,
		Environment:   h.cfg.Environment,
	})
}

// NotFound answers every unmatched route.
func (h HandlerSet) NotFound(c *gin.Context) {
	path := c.Request.URL.Path
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "API endpoint not found under /api",
		})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"message": "Resource not found. You tried to access " + c.Request.Method + " " + c.Request.URL.RequestURI(),
	})
}

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the voice endpoint plus the operational surface. The
// voice route accepts POST only; anything else gets the 405 body.
func NewRouter(handler *VoiceHandler, metrics http.Handler, ready func() bool, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(RequestID(), RequestLogging(logger), Recovery(logger))

	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	router.POST("/v1/voice", handler.Handle)

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/readyz", func(c *gin.Context) {
		if ready() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not ready")
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	return router
}

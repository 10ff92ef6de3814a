// Package api serves stored bulletins and their cut-off date history over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger(log))
	r.Use(gin.Recovery())

	setupRoutes(r, handler)
	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/healthz", handler.Health)

	r.GET("/bulletins", handler.ListBulletins)
	r.GET("/bulletins/:year/:month", handler.GetBulletin)
	r.GET("/bulletins/:year/:month/digest", handler.GetDigest)

	r.GET("/history", handler.GetHistory)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "visa-bulletin",
			"endpoints": map[string]string{
				"health":    "/healthz",
				"bulletins": "/bulletins",
				"bulletin":  "/bulletins/<year>/<month>",
				"digest":    "/bulletins/<year>/<month>/digest?format=html|text|json",
				"history":   "/history?visa_type=<type>&visa_area=<area>&date_type=final|filing",
			},
		})
	})
}

// requestLogger logs one entry per request through the injected logger
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request", logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		})
	}
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully
func Serve(ctx context.Context, addr string, handler http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", logger.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down api: %w", err)
	}
	log.Info("api stopped", nil)
	return nil
}

// cmd/worker-manager/server.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/sessionbus"
)

type checker interface {
	Ping(ctx context.Context) error
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) Ping(ctx context.Context) error { return f(ctx) }

type invalidator interface {
	Invalidate(ctx context.Context) (int, error)
}

type routerDeps struct {
	checks    map[string]checker
	stream    *sessionbus.StreamHandler
	catalog   invalidator
	mode      string
	logger    logger.Logger
	startedAt time.Time
}

func newRouter(d routerDeps) *gin.Engine {
	if d.mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"uptime": time.Since(d.startedAt).Round(time.Second).String(),
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(d.checks))
		for name, chk := range d.checks {
			if err := chk.Ping(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if d.stream != nil {
		d.stream.Register(r)
	}

	if d.catalog != nil {
		r.POST("/admin/catalog/invalidate", func(c *gin.Context) {
			n, err := d.catalog.Invalidate(c.Request.Context())
			if err != nil {
				d.logger.Error("Catalog cache invalidation failed", map[string]interface{}{"error": err})
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			d.logger.Info("Catalog cache invalidated", map[string]interface{}{"entries": n})
			c.JSON(http.StatusOK, gin.H{"invalidated": n})
		})
	}
	return r
}

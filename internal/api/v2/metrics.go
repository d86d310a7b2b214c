// internal/api/v2/metrics.go
package api

import (
	"github.com/labstack/echo/v4"
)

// initMetricsRoutes exposes the Prometheus registry when metrics are enabled
func (c *Controller) initMetricsRoutes() {
	if c.metrics == nil || !c.Settings.Metrics.Enabled {
		c.apiLogger.Debug("metrics endpoint disabled")
		return
	}
	c.Group.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
}

// Package middleware provides Echo middleware for amul-stock-tracker.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/amul-stock-tracker/internal/metrics"
)

// probeGauges maps probe paths to their up/down gauge.
var probeGauges = map[string]prometheus.Gauge{
	healthzPath: metrics.HealthzUp,
	readyzPath:  metrics.ReadyzUp,
}

// Metrics returns Echo middleware that records request duration and status
// labelled by route template. Probes only update their gauge and /metrics
// scrapes are not recorded at all.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := routePath(c)

			switch {
			case path == metricsPath:
				return next(c)
			case isProbe(path):
				err := next(c)
				setProbeGauge(path, c.Response().Status)
				return err
			}

			start := time.Now()
			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method

			metrics.HTTPRequestDuration.
				WithLabelValues(method, path, status).
				Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.
				WithLabelValues(method, path, status).
				Inc()

			return err
		}
	}
}

func setProbeGauge(path string, status int) {
	gauge, ok := probeGauges[path]
	if !ok {
		return
	}
	if isSuccess(status) {
		gauge.Set(1)
	} else {
		gauge.Set(0)
	}
}

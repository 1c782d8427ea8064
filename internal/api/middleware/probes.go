package middleware

import "github.com/labstack/echo/v4"

// Probe paths are polled by orchestrators every few seconds. They get
// up/down gauges instead of request metrics and are logged only on the first
// success or on failure.
const (
	healthzPath = "/healthz"
	readyzPath  = "/readyz"
	metricsPath = "/metrics"
)

func isProbe(path string) bool {
	return path == healthzPath || path == readyzPath
}

// routePath returns the registered route template when echo matched one,
// falling back to the raw URL path.
func routePath(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

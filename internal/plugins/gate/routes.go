package gate

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/headless/internal/middleware"
)

// RegisterRoutes mounts the gate at path and path+"/". Submissions are
// additionally throttled per IP in memory so credential stuffing against a
// live link costs time even before the link's attempts run out.
func RegisterRoutes(e *echo.Echo, h *Handler, path string) {
	path = "/" + strings.Trim(path, "/")
	throttle := middleware.RateLimit(10, time.Minute)

	for _, p := range []string{path, path + "/"} {
		e.GET(p, h.Console)
		e.POST(p, h.Console, throttle)
	}
}

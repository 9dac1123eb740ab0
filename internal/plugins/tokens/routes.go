package tokens

import "github.com/labstack/echo/v4"

// ScreenPath is the token screen, relative to the admin path. It must not
// contain any default allow-list fragment ("/graphql" in particular), or
// the admin lockdown would let anonymous requests through to it.
const ScreenPath = "/jwt-tokens"

// RegisterRoutes mounts the token screen on the admin group (which requires
// the administrator role) and the viewer endpoint on the public router.
func RegisterRoutes(e *echo.Echo, adminGroup *echo.Group, h *Handler) {
	adminGroup.GET(ScreenPath, h.Show)
	adminGroup.POST(ScreenPath, h.Action)

	e.GET("/graphql/viewer", h.Viewer)
}

package settings

import "github.com/labstack/echo/v4"

// ScreenPath is the settings screen, relative to the admin path.
const ScreenPath = "/headless-settings"

// RegisterRoutes mounts the settings screen on the admin group. The group
// already requires the administrator role.
func RegisterRoutes(adminGroup *echo.Group, h *Handler) {
	adminGroup.GET(ScreenPath, h.Show)
	adminGroup.POST(ScreenPath, h.Save)
}

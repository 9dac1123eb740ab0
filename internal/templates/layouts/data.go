// data.go provides typed context helpers for passing layout data from
// middleware to page components. Only simple types are stored, so this
// package imports no plugin types.
//
// Data flow: Middleware → Echo Context → LayoutInjector → Go Context → component
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyIsAuthenticated ctxKey = "layout_is_authenticated"
	keyUserName        ctxKey = "layout_user_name"
	keyIsAdmin         ctxKey = "layout_is_admin"
	keyCSRFToken       ctxKey = "layout_csrf_token"
	keyFlashType       ctxKey = "layout_flash_type"
	keyFlashMessage    ctxKey = "layout_flash_message"
	keyActivePath      ctxKey = "layout_active_path"
	keyNav             ctxKey = "layout_nav"
)

// NavLink is one entry of the admin nav.
type NavLink struct {
	Title string
	URL   string
}

// Flash types accepted from the ?type= query parameter.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// --- Setters (called by the LayoutInjector) ---

func SetIsAuthenticated(ctx context.Context, authed bool) context.Context {
	return context.WithValue(ctx, keyIsAuthenticated, authed)
}

func SetUserName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyUserName, name)
}

func SetIsAdmin(ctx context.Context, isAdmin bool) context.Context {
	return context.WithValue(ctx, keyIsAdmin, isAdmin)
}

func SetCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, token)
}

// SetFlash stores a one-shot notice. Unknown kinds are shown as success.
func SetFlash(ctx context.Context, kind, msg string) context.Context {
	if kind != FlashError {
		kind = FlashSuccess
	}
	ctx = context.WithValue(ctx, keyFlashType, kind)
	return context.WithValue(ctx, keyFlashMessage, msg)
}

func SetActivePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, keyActivePath, path)
}

// SetNav stores the admin nav. The app builds it from the configured admin
// path, so links follow ADMIN_PATH.
func SetNav(ctx context.Context, nav []NavLink) context.Context {
	return context.WithValue(ctx, keyNav, nav)
}

// --- Getters (called by components) ---

func IsAuthenticated(ctx context.Context) bool {
	authed, _ := ctx.Value(keyIsAuthenticated).(bool)
	return authed
}

func GetUserName(ctx context.Context) string {
	name, _ := ctx.Value(keyUserName).(string)
	return name
}

func GetIsAdmin(ctx context.Context) bool {
	isAdmin, _ := ctx.Value(keyIsAdmin).(bool)
	return isAdmin
}

func GetCSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(keyCSRFToken).(string)
	return token
}

// GetFlash returns the flash kind and message; msg is empty when none is set.
func GetFlash(ctx context.Context) (kind, msg string) {
	kind, _ = ctx.Value(keyFlashType).(string)
	msg, _ = ctx.Value(keyFlashMessage).(string)
	return kind, msg
}

func GetActivePath(ctx context.Context) string {
	path, _ := ctx.Value(keyActivePath).(string)
	return path
}

func GetNav(ctx context.Context) []NavLink {
	nav, _ := ctx.Value(keyNav).([]NavLink)
	return nav
}

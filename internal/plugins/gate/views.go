package gate

import (
	"fmt"
	"html/template"
	"time"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/headless/internal/middleware"
	"github.com/keyxmakerx/headless/internal/templates/layouts"
)

type linkView struct {
	LoginURL string
	ValidFor string
	Attempts int
}

var linkTemplate = template.Must(template.New("gate_link").Parse(`<h1>Console Access</h1>
<p>Generate temporary login link</p>
<p><a class="button" href="{{.LoginURL}}">Get Login Link</a></p>
<p><small>Link will be valid for {{.ValidFor}} with {{.Attempts}} login attempts</small></p>`))

// LinkPage shows the freshly minted login link.
func LinkPage(v linkView) templ.Component {
	return layouts.Page("Console Login", layouts.Template(linkTemplate, v))
}

type formView struct {
	Action     string
	CSRFToken  string
	CSRFField  string
	Nonce      string
	NonceField string
	Username   string
	Error      string
	Remaining  int
}

var formTemplate = template.Must(template.New("gate_form").Parse(`<h1>Console</h1>
<p>Enter your credentials</p>
{{if .Error}}<div class="notice error">{{.Error}}</div>{{end}}
<form method="post" action="{{.Action}}">
<input type="hidden" name="{{.CSRFField}}" value="{{.CSRFToken}}">
<input type="hidden" name="{{.NonceField}}" value="{{.Nonce}}">
<input type="hidden" name="login-form" value="1">
<label for="user_login">Username</label>
<input id="user_login" name="log" type="text" autocomplete="username" value="{{.Username}}" required>
<label for="user_pass">Password</label>
<input id="user_pass" name="pwd" type="password" autocomplete="current-password" required>
<button type="submit">Sign in</button>
<p><small>Remaining attempts: {{.Remaining}}</small></p>
</form>`))

// FormPage renders the credential form.
func FormPage(v formView) templ.Component {
	v.CSRFField = "csrf_token"
	v.NonceField = middleware.NonceField
	return layouts.Page("Console", layouts.Template(formTemplate, v))
}

// humanDuration formats link lifetimes like "30 minutes" or "1 hour".
func humanDuration(d time.Duration) string {
	unit, n := "minute", int(d/time.Minute)
	if d >= time.Hour && d%time.Hour == 0 {
		unit, n = "hour", int(d/time.Hour)
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

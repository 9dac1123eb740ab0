package settings

import (
	"html/template"
	"strings"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/headless/internal/middleware"
	"github.com/keyxmakerx/headless/internal/templates/layouts"
)

type pageView struct {
	Action       string
	CSRFToken    string
	Nonce        string
	NonceField   string
	SiteRedirect string
	AllowedURLs  string
	Defaults     []string
	Error        string
}

var pageTemplate = template.Must(template.New("headless_settings").Parse(`<h1>Headless Settings</h1>
<p>Configure headless CMS settings</p>
{{if .Error}}<div class="notice error">{{.Error}}</div>{{end}}
<form method="post" action="{{.Action}}">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<input type="hidden" name="{{.NonceField}}" value="{{.Nonce}}">
<label for="site_redirect">Site Redirect URL</label>
<input id="site_redirect" name="site_redirect" type="url" value="{{.SiteRedirect}}" placeholder="https://example.com">
<p><small>Visitors without access to the admin area are sent here. Leave empty for the site root.</small></p>
<label for="allowed_urls">Allowed URLs</label>
<textarea id="allowed_urls" name="allowed_urls" rows="8">{{.AllowedURLs}}</textarea>
<p><small>One per line. A request is let through when its URL contains any entry. Defaults:
{{range $i, $d := .Defaults}}{{if $i}}, {{end}}<code>{{$d}}</code>{{end}}</small></p>
<button type="submit">Save Changes</button>
</form>`))

// SettingsPage renders the settings form.
func SettingsPage(v pageView) templ.Component {
	v.NonceField = middleware.NonceField
	v.Defaults = DefaultAllowedURLs
	return layouts.Page("Headless Settings", layouts.Template(pageTemplate, v))
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

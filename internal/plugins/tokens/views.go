package tokens

import (
	"html/template"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/headless/internal/middleware"
	"github.com/keyxmakerx/headless/internal/plugins/users"
	"github.com/keyxmakerx/headless/internal/templates/layouts"
)

type pageView struct {
	Action     string
	CSRFToken  string
	Nonce      string
	NonceField string
	Users      []users.User
	Generated  *GeneratedToken
	Settings   Settings
	Choices    []int
}

var pageTemplate = template.Must(template.New("graphql_tokens").Parse(`<h1>GraphQL Tokens</h1>
{{if .Generated}}<section>
<h2>Generated Token</h2>
<p>Copy this token now. It will not be shown again.</p>
<code class="token">{{.Generated.Token}}</code>
<p><small>User: {{.Generated.User.DisplayName}} ({{.Generated.User.Login}}).
Expires: {{.Generated.ExpiresAt.Format "2006-01-02 15:04:05 MST"}}.</small></p>
<p>Send it with each request:</p>
<code class="token">Authorization: Bearer {{.Generated.Token}}</code>
</section>{{end}}

<section>
<h2>Generate Token</h2>
<form method="post" action="{{.Action}}">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<input type="hidden" name="{{.NonceField}}" value="{{.Nonce}}">
<input type="hidden" name="action" value="generate_token">
<label for="user_id">User</label>
<select id="user_id" name="user_id">
<option value="">Select a user</option>
{{range .Users}}<option value="{{.ID}}">{{.Name}} ({{.Login}})</option>
{{end}}</select>
<label for="expiry_days">Expires in</label>
<select id="expiry_days" name="expiry_days">
{{range .Choices}}<option value="{{.}}"{{if eq . $.Settings.ExpiryDays}} selected{{end}}>{{.}} {{if eq . 1}}day{{else}}days{{end}}</option>
{{end}}</select>
<button type="submit">Generate Token</button>
</form>
</section>

<section>
<h2>Token Settings</h2>
<form method="post" action="{{.Action}}">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<input type="hidden" name="{{.NonceField}}" value="{{.Nonce}}">
<input type="hidden" name="action" value="update_settings">
<label for="default_expiry">Default expiry (days)</label>
<input id="default_expiry" name="default_expiry" type="text" inputmode="numeric" value="{{.Settings.ExpiryDays}}">
<label for="issuer">Issuer</label>
<input id="issuer" name="issuer" type="text" value="{{.Settings.Issuer}}">
<button type="submit">Save Settings</button>
</form>
</section>

<section>
<h2>Signing Secret</h2>
<p>Regenerating the secret invalidates every token issued so far.</p>
<form method="post" action="{{.Action}}" onsubmit="return confirm('Invalidate all existing tokens?')">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<input type="hidden" name="{{.NonceField}}" value="{{.Nonce}}">
<input type="hidden" name="action" value="regenerate_secret">
<button type="submit">Regenerate Secret</button>
</form>
</section>`))

// TokensPage renders the token admin screen.
func TokensPage(v pageView) templ.Component {
	v.NonceField = middleware.NonceField
	v.Choices = expiryChoices
	return layouts.Page("GraphQL Tokens", layouts.Template(pageTemplate, v))
}

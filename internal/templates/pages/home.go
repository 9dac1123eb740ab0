package pages

import (
	"html/template"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/headless/internal/templates/layouts"
)

var homeTemplate = template.Must(template.New("home").Parse(`<h1>Headless CMS</h1>
<p>This site serves content through its GraphQL API only.</p>`))

// Home is the bare landing page served at "/".
func Home() templ.Component {
	return layouts.Page("Headless CMS", layouts.Template(homeTemplate, nil))
}

// DashboardLink is one entry on the admin dashboard.
type DashboardLink struct {
	Title       string
	Description string
	URL         string
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<h1>Dashboard</h1>
<ul>
{{range .}}<li><a href="{{.URL}}">{{.Title}}</a><br><small>{{.Description}}</small></li>
{{end}}</ul>`))

// Dashboard lists the admin screens.
func Dashboard(links []DashboardLink) templ.Component {
	return layouts.Page("Dashboard", layouts.Template(dashboardTemplate, links))
}

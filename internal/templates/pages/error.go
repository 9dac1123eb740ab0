// Package pages holds page components shared across plugins.
package pages

import (
	"html/template"
	"net/http"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/headless/internal/templates/layouts"
)

var errorTemplate = template.Must(template.New("error").Parse(`<h1>{{.Status}}</h1>
<p>{{.Message}}</p>
{{if .BackLink}}<p><a href="{{.BackLink}}">&larr; Back</a></p>{{end}}`))

type errorData struct {
	Status   string
	Message  string
	BackLink string
}

// ErrorPage renders a halt page: the status text and a user-safe message.
func ErrorPage(code int, message string) templ.Component {
	return ErrorPageWithBack(code, message, "")
}

// ErrorPageWithBack is ErrorPage plus a link back to backLink.
func ErrorPageWithBack(code int, message, backLink string) templ.Component {
	status := http.StatusText(code)
	if status == "" {
		status = "Error"
	}
	return layouts.Page(status, layouts.Template(errorTemplate, errorData{
		Status:   status,
		Message:  message,
		BackLink: backLink,
	}))
}

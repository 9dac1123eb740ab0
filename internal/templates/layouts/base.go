package layouts

import (
	"bytes"
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

// baseData is the view model for the page shell.
type baseData struct {
	Title           string
	Body            template.HTML
	IsAuthenticated bool
	IsAdmin         bool
	UserName        string
	FlashType       string
	FlashMessage    string
	Nav             []navItem
}

type navItem struct {
	NavLink
	Active bool
}

var baseTemplate = template.Must(template.New("base").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex, nofollow">
<title>{{.Title}}</title>
<style>
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,sans-serif;background:#f0f0f1;color:#1d2327;margin:0}
main{max-width:720px;margin:48px auto;background:#fff;padding:32px;border:1px solid #c3c4c7;border-radius:4px}
nav{background:#1d2327;color:#f0f0f1;padding:8px 24px}
nav a{color:#f0f0f1;margin-right:16px;text-decoration:none}
nav a.active{font-weight:600;text-decoration:underline}
.notice{padding:12px;margin-bottom:16px;border-left:4px solid #00a32a;background:#f6f7f7}
.notice.error{border-left-color:#d63638}
label{display:block;margin:12px 0 4px}
input[type=text],input[type=password],input[type=url],select,textarea{width:100%;box-sizing:border-box;padding:6px}
button{margin-top:16px;padding:8px 16px}
code.token{display:block;word-break:break-all;padding:12px;background:#f6f7f7}
</style>
</head>
<body>
{{if .IsAdmin}}<nav>
{{range .Nav}}<a href="{{.URL}}"{{if .Active}} class="active"{{end}}>{{.Title}}</a>
{{end}}<a href="/?action=logout">Log out {{.UserName}}</a>
</nav>{{end}}
<main>
{{if .FlashMessage}}<div class="notice {{.FlashType}}">{{.FlashMessage}}</div>{{end}}
{{.Body}}
</main>
</body>
</html>
`))

// Page wraps content in the page shell. The shell reads the signed-in user
// and flash notice from ctx (see data.go).
func Page(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var body bytes.Buffer
		if err := content.Render(ctx, &body); err != nil {
			return err
		}

		kind, msg := GetFlash(ctx)
		return baseTemplate.Execute(w, baseData{
			Title:           title,
			Body:            template.HTML(body.String()),
			IsAuthenticated: IsAuthenticated(ctx),
			IsAdmin:         GetIsAdmin(ctx),
			UserName:        GetUserName(ctx),
			FlashType:       kind,
			FlashMessage:    msg,
			Nav:             navItems(ctx),
		})
	})
}

func navItems(ctx context.Context) []navItem {
	active := GetActivePath(ctx)
	var items []navItem
	for _, l := range GetNav(ctx) {
		items = append(items, navItem{NavLink: l, Active: l.URL == active})
	}
	return items
}

// Template adapts a parsed html/template into a component. data is passed
// to Execute unchanged.
func Template(t *template.Template, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return t.Execute(w, data)
	})
}

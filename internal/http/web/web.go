// Package web embeds the server-rendered pages.
package web

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every page. Each page is registered under its file name
// (e.g. "status.html").
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"since": func(t time.Time) string { return time.Since(t).Truncate(time.Second).String() },
	}).ParseFS(files, "templates/*.html"))
}

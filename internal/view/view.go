// Package view renders the board's HTML pages from embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/moderated-board/internal/model"
)

//go:embed templates
var files embed.FS

// Data is the template context. Common keys: User, Notices, AdminContact, Title.
type Data map[string]any

type Renderer struct {
	pages map[string]*template.Template
	Log   logrus.FieldLogger
}

var funcs = template.FuncMap{
	"naturaltime": func(t time.Time) string { return humanize.Time(t) },
	"datetime":    func(t time.Time) string { return t.Local().Format("Jan 2, 2006, 15:04") },
	"errorsFor": func(errs map[string][]string, field string) []string {
		return errs[field]
	},
	"checked": func(v bool) template.HTMLAttr {
		if v {
			return "checked"
		}
		return ""
	},
	"linebreaks": func(s string) template.HTML {
		var b strings.Builder
		for i, line := range strings.Split(s, "\n") {
			if i > 0 {
				b.WriteString("<br>")
			}
			b.WriteString(template.HTMLEscapeString(line))
		}
		return template.HTML(b.String())
	},
	"isOwner": func(u *model.User, m *model.Message) bool {
		return u != nil && m != nil && u.ID == m.AuthorID
	},
}

// New parses every page together with the base layout.
func New(log logrus.FieldLogger) (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}, Log: log}

	err := fs.WalkDir(files, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == "templates/base.html" || path.Ext(p) != ".html" {
			return nil
		}
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(files, "templates/base.html", p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		r.pages[strings.TrimPrefix(p, "templates/")] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Render writes the named page. Output is buffered so a template error never leaves half a page.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data Data) {
	tmpl, ok := r.pages[name]
	if !ok {
		r.Log.WithField("template", name).Error("Unknown template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		r.Log.WithError(err).WithField("template", name).Error("Failed to render template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/myrjola/survey/internal/contexthelpers"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/ssr"
	"github.com/myrjola/survey/ui"
)

// pageTemplate returns a template for the given page name.
//
// pageName corresponds to directory inside ui/templates/pages folder. It has to include a template named "page".
// Templates are read from the embedded [ui.Files].
func (app *application) pageTemplate(pageName string) (*template.Template, error) {
	files := []string{
		"templates/base.gohtml",
	}

	pageTemplateFiles, err := fs.Glob(ui.Files, fmt.Sprintf("templates/pages/%s/*.gohtml", pageName))
	if err != nil {
		return nil, errors.Wrap(err, "glob page template files")
	}
	files = append(files, pageTemplateFiles...)

	// We need to initialize the FuncMap before parsing the files. These will be overridden in the render function.
	t, err := template.New(pageName).Funcs(template.FuncMap{
		"nonce": func() string {
			panic("not implemented")
		},
		"csrf": func() string {
			panic("not implemented")
		},
	}).ParseFS(ui.Files, files...)
	if err != nil {
		return nil, errors.Wrap(err, "parse template files", slog.String("page", pageName))
	}
	return t, nil
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, file string, data any) {
	var (
		err error
		t   *template.Template
	)

	if t, err = app.pageTemplate(file); err != nil {
		app.serverError(w, r, errors.Wrap(err, "parse template", slog.String("template", file)))
		return
	}

	buf := new(bytes.Buffer)
	ctx := r.Context()
	nonce := fmt.Sprintf("nonce=\"%s\"", contexthelpers.CSPNonce(ctx))
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\"/>", contexthelpers.CSRFToken(ctx))
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // we trust the nonce since it's not provided by user.
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec // we trust the csrf since it's not provided by user.
		},
	})
	if err = t.ExecuteTemplate(buf, "base", data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("template", file)))
		return
	}

	out := new(bytes.Buffer)
	if err = ssr.ReplaceCustomElements(out, buf); err != nil {
		app.serverError(w, r, errors.Wrap(err, "replace custom elements", slog.String("template", file)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = out.WriteTo(w)
}

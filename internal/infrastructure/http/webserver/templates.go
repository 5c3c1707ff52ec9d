package webserver

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"
)

// templateSet holds one template tree per view. Every tree shares the
// layout and partials and adds the view's "content" block.
type templateSet struct {
	views     map[string]*template.Template
	fragments *template.Template
}

var funcMap = template.FuncMap{
	"seconds": func(d time.Duration) int {
		return int(d.Round(time.Second) / time.Second)
	},
	"inc": func(i int) int {
		return i + 1
	},
	"join": func(sep string, elems []string) string {
		return strings.Join(elems, sep)
	},
}

func parseTemplates() (*templateSet, error) {
	base, err := template.New("layout").Funcs(funcMap).ParseFS(templatesFS,
		"templates/layout.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	files, err := fs.Glob(templatesFS, "templates/views/*.html")
	if err != nil {
		return nil, err
	}

	set := &templateSet{views: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")

		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templatesFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse view %s: %w", name, err)
		}
		set.views[name] = clone
	}

	set.fragments, err = base.Clone()
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (t *templateSet) names() []string {
	names := make([]string, 0, len(t.views))
	for name := range t.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// page renders a full view inside the layout
func (t *templateSet) page(name string, data interface{}) ([]byte, error) {
	tmpl, ok := t.views[name]
	if !ok {
		return nil, fmt.Errorf("no template for view %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fragment renders a partial on its own
func (t *templateSet) fragment(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeHTML sends a rendered body. Templates render into a buffer first so
// a failure never leaves half a page on the wire.
func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

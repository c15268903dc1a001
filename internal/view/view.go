package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var files embed.FS

type Page string

const (
	PageLogin    Page = "login.html"
	PageRegister Page = "register.html"
	PageProfile  Page = "profile.html"
	PageError    Page = "error.html"
)

// Form is the data behind the login and register pages.
type Form struct {
	Notice      string
	Error       bool
	Email       string
	Username    string
	ClientID    string
	RedirectURL string
	Providers   []string
}

type Profile struct {
	Notice          string
	Username        string
	Email           string
	DisplayImageURL string
	Providers       []string
}

type ErrorPage struct {
	Title   string
	Message string
}

type Renderer struct {
	pages map[Page]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[Page]*template.Template)}
	for _, p := range []Page{PageLogin, PageRegister, PageProfile, PageError} {
		t, err := template.ParseFS(files, "templates/layout.html", "templates/"+string(p))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		r.pages[p] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, page Page, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

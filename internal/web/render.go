// Copyright (c) 2026 Blood Bridge. All rights reserved.

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/bloodbridge/portal/internal/access"
	"github.com/bloodbridge/portal/internal/backend"
	"github.com/bloodbridge/portal/internal/identity"
	"github.com/bloodbridge/portal/internal/platform/apperr"
	"github.com/bloodbridge/portal/internal/platform/constants"
	"github.com/bloodbridge/portal/internal/platform/ctxutil"
	"github.com/bloodbridge/portal/internal/platform/respond"
	"github.com/bloodbridge/portal/internal/role"
	"github.com/bloodbridge/portal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// View is the data every page template receives.
type View struct {
	Title string

	// User is nil for anonymous visitors.
	User *identity.Identity

	// Role is the role the access gate admitted, or none on public pages.
	Role role.Role

	// Path is the request path, used to highlight navigation.
	Path string

	// Error is a page-level failure shown above the content.
	Error *apperr.AppError

	Data any
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"pageURL": func(base string, page int) string {
		target, err := url.Parse(base)
		if err != nil {
			return base
		}
		query := target.Query()
		query.Set("page", strconv.Itoa(page))
		target.RawQuery = query.Encode()
		return target.String()
	},
	"add":              func(a, b int) int { return a + b },
	"donationStatuses": func() []string { return donationStatuses },
	"isStaff": func(r role.Role) bool {
		return r == role.Admin || r == role.Volunteer
	},
}

// NewRenderer parses every page against the shared layout.
func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	renderer := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		page, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", base, err)
		}
		renderer.pages[base[:len(base)-len(".html")]] = page
	}
	return renderer, nil
}

// Render writes a full page with status.
func (r *Renderer) Render(writer http.ResponseWriter, request *http.Request, status int, name string, view View) {
	var buffer bytes.Buffer
	if err := r.execute(&buffer, name, r.fill(request, view)); err != nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "template_failed",
			slog.String("template", name), slog.Any("error", err))
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(status)
	_, _ = buffer.WriteTo(writer)
}

// Body writes a page without touching status or headers. The access gate's
// loading view uses it after setting its own.
func (r *Renderer) Body(writer http.ResponseWriter, request *http.Request, name string, view View) {
	if err := r.execute(writer, name, r.fill(request, view)); err != nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "template_failed",
			slog.String("template", name), slog.Any("error", err))
	}
}

// Error renders err as a page unless the session interceptor already
// answered the request with a redirect.
func (r *Renderer) Error(writer http.ResponseWriter, request *http.Request, err error) {
	if session.Handled(err) {
		return
	}
	appError := respond.Classify(request, classifyUpstream(err))
	r.Render(writer, request, appError.HTTPStatus, "error", View{Title: "Something went wrong", Error: appError})
}

func (r *Renderer) execute(writer io.Writer, name string, view View) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("web: unknown template %q", name)
	}
	return page.ExecuteTemplate(writer, "layout.html", view)
}

func (r *Renderer) fill(request *http.Request, view View) View {
	ctx := request.Context()
	if sess, ok := session.FromContext(ctx); ok && view.User == nil {
		who := sess.Identity
		view.User = &who
	}
	if view.Role == role.None {
		view.Role = access.RoleFromContext(ctx)
	}
	view.Path = request.URL.Path
	return view
}

// classifyUpstream maps REST API failures onto page errors.
func classifyUpstream(err error) error {
	if apperr.As(err) != nil {
		return err
	}
	if backend.IsNotFound(err) {
		return apperr.NotFound("Record")
	}
	return apperr.Upstream(err)
}

// seeOther redirects after a successful form post.
func seeOther(writer http.ResponseWriter, request *http.Request, target string) {
	writer.Header().Set(constants.HeaderCacheControl, "no-store")
	http.Redirect(writer, request, target, http.StatusSeeOther)
}

package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"delivery-portal/internal/authz"
	"delivery-portal/internal/middleware"
)

const unauthorizedRedirectDelay = 5 * time.Second

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}} | Delivery Portal</title>
    {{- if .RefreshTo}}
    <meta http-equiv="refresh" content="{{.RefreshSeconds}};url={{.RefreshTo}}" />
    {{- end}}
  </head>
  <body>
    <main>
      <h1>{{.Title}}</h1>
      {{- if .Message}}
      <p>{{.Message}}</p>
      {{- end}}
      {{- if .Role}}
      <p>Signed in as <strong>{{.Role}}</strong>.</p>
      {{- end}}
      {{- range .Links}}
      <a href="{{.Href}}">{{.Label}}</a>
      {{- end}}
    </main>
  </body>
</html>
`))

type pageLink struct {
	Href  string
	Label string
}

type pageData struct {
	Title          string
	Message        string
	Role           string
	Links          []pageLink
	RefreshTo      string
	RefreshSeconds int
}

// PageHandler renders the placeholder pages behind the route guard. The
// real UI is served elsewhere; these pages exist so navigation and
// redirects can be exercised end to end.
type PageHandler struct {
	signInPath string
}

func NewPageHandler(signInPath string) *PageHandler {
	if signInPath == "" {
		signInPath = "/signin"
	}
	return &PageHandler{signInPath: signInPath}
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, pageData{
		Title: "Delivery Portal",
		Links: []pageLink{{Href: h.signInPath, Label: "Sign in"}, {Href: "/signup", Label: "Create an account"}},
	})
}

func (h *PageHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, pageData{
		Title:   "Sign in",
		Message: "Sign in with your email and password.",
		Links:   []pageLink{{Href: "/signup", Label: "Create an account"}},
	})
}

func (h *PageHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, pageData{
		Title:   "Create an account",
		Message: "Register as a customer or as a rider.",
		Links:   []pageLink{{Href: h.signInPath, Label: "Already registered? Sign in"}},
	})
}

// Unauthorized offers the visitor's own dashboard and moves them there after
// a short delay.
func (h *PageHandler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	home := authz.HomePath(roleFromCookies(r))
	render(w, http.StatusForbidden, pageData{
		Title:          "Access denied",
		Message:        "You do not have permission to view that page. Redirecting you to your dashboard.",
		Links:          []pageLink{{Href: home, Label: "Go to my dashboard"}},
		RefreshTo:      home,
		RefreshSeconds: int(unauthorizedRedirectDelay / time.Second),
	})
}

func (h *PageHandler) Dashboard(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decision, _ := middleware.DecisionFromContext(r.Context())
		render(w, http.StatusOK, pageData{
			Title: title,
			Role:  string(decision.Role),
			Links: []pageLink{{Href: h.signInPath, Label: "Switch account"}},
		})
	}
}

// roleFromCookies prefers the role cookie and falls back to the token claim.
func roleFromCookies(r *http.Request) authz.Role {
	if cookie, err := r.Cookie(authz.RoleCookie); err == nil {
		if role, ok := authz.ParseRole(cookie.Value); ok {
			return role
		}
	}
	if cookie, err := r.Cookie(authz.TokenCookie); err == nil {
		if role, err := authz.RoleFromToken(cookie.Value); err == nil {
			return role
		}
	}
	return ""
}

func render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		slog.Error("render page", "title", data.Title, "error", err)
	}
}

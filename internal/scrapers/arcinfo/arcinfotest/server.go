// Package arcinfotest runs a fake ArcInfo site for tests.
package arcinfotest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"arcinfo-pdf/internal/assembler/pdftest"
)

const (
	Username    = "reader@example.ch"
	Password    = "hunter2"
	AccessToken = "token-1234"
)

// Site is the state of the fake site, fields may be changed between runs.
type Site struct {
	// Listings maps an edition date (YYYY-MM-DD) to the HTML of its view page,
	// missing dates answer with 404.
	Listings map[string]string
	// Pages maps a page path to its PDF, missing pages answer with 404.
	Pages map[string][]byte
	// PageStatus overrides the status code of a page.
	PageStatus map[string]int
	// RejectLogin makes the login endpoint ignore the credentials.
	RejectLogin bool
	// RequireAuth makes listings and pages answer 403 without the token.
	RequireAuth bool
	// CookiePath is the path the access token cookie is scoped to, "/" when
	// empty.
	CookiePath string
	// Redirects maps a page path to the url it is redirected to with 302.
	Redirects map[string]string

	mutex    sync.Mutex
	requests []string
	agents   []string
}

// Server starts the fake site, it is closed when the test ends.
func Server(t testing.TB, site *Site) *httptest.Server {
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	return srv
}

// Requests returns "METHOD path" of every request received so far.
func (s *Site) Requests() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.requests...)
}

// UserAgents returns the user agent of every request received so far.
func (s *Site) UserAgents() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.agents...)
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	s.requests = append(s.requests, fmt.Sprintf("%s %s", r.Method, r.URL.Path))
	s.agents = append(s.agents, r.UserAgent())
	s.mutex.Unlock()

	switch {
	case r.URL.Path == "/arcinfo/login/":
		s.login(w, r)
	case strings.HasPrefix(r.URL.Path, "/arcinfo/") && strings.HasSuffix(r.URL.Path, "/view"):
		if !s.authorized(w, r) {
			return
		}
		date := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/arcinfo/"), "/view")
		listing, ok := s.Listings[date]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, listing)
	case strings.HasPrefix(r.URL.Path, "/editions/"):
		if !s.authorized(w, r) {
			return
		}
		if target, ok := s.Redirects[r.URL.Path]; ok {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		if status, ok := s.PageStatus[r.URL.Path]; ok {
			w.WriteHeader(status)
			return
		}
		page, ok := s.Pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(page)
	default:
		http.NotFound(w, r)
	}
}

func (s *Site) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	err := r.ParseForm()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !s.RejectLogin && r.PostForm.Get("_username") == Username && r.PostForm.Get("_password") == Password {
		path := s.CookiePath
		if path == "" {
			path = "/"
		}
		http.SetCookie(w, &http.Cookie{
			Name:  "arcinfo_access_token",
			Value: AccessToken,
			Path:  path,
		})
	}
	fmt.Fprint(w, "<html><body>login</body></html>")
}

func (s *Site) authorized(w http.ResponseWriter, r *http.Request) bool {
	if !s.RequireAuth {
		return true
	}
	cookie, err := r.Cookie("arcinfo_access_token")
	if err != nil || cookie.Value != AccessToken {
		w.WriteHeader(http.StatusForbidden)
		return false
	}
	return true
}

// PagePath returns the asset path of a page of an edition.
func PagePath(token string, page int) string {
	return fmt.Sprintf("/editions/arcinfo/%s/pdf/page%d.pdf", token, page)
}

// Listing renders a view page linking to the given asset paths in order.
func Listing(paths ...string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body><div class=\"pages\">\n")
	for _, p := range paths {
		fmt.Fprintf(&b, "\t<a class=\"page\" href=\"%s\">page</a>\n", p)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

// Edition returns a site serving one edition with `pages` pages, page i is a
// PDF of width 100+i so tests can check the assembled order.
func Edition(date, token string, pages int) *Site {
	site := &Site{
		Listings:   map[string]string{},
		Pages:      map[string][]byte{},
		PageStatus: map[string]int{},
		Redirects:  map[string]string{},
	}
	var paths []string
	for i := 1; i <= pages; i++ {
		path := PagePath(token, i)
		paths = append(paths, path)
		site.Pages[path] = pdftest.SinglePage(100 + i)
	}
	site.Listings[date] = Listing(paths...)
	return site
}

// CDN serves the given page PDFs from a separate server and returns its
// origin. The origin uses "localhost" so its hostname differs from the one
// of Server.
func CDN(t testing.TB, pages map[string][]byte) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(page)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	u.Host = fmt.Sprintf("localhost:%s", u.Port())
	return u.String()
}

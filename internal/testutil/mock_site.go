// Package testutil provides testing utilities for the scraper core.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// loginToken is the hidden anti-CSRF input the mock login form carries.
const loginToken = "tok-3f9a1c"

// MockSite is a configurable login-protected target site for testing.
// Every path except /login requires a session cookie obtained through the
// login form, mirroring how real record sites gate their pages.
type MockSite struct {
	server *httptest.Server

	mu       sync.RWMutex
	pages    map[string]string
	username string
	password string
	sessions map[string]bool
	nextID   int

	// FailLogin rejects all credential posts when set.
	FailLogin bool

	// Tracking
	RequestCount int
	LoginCount   int
	LoginPosts   int
}

// NewMockSite creates a mock site accepting the given credentials.
func NewMockSite(username, password string) *MockSite {
	mock := &MockSite{
		pages:    make(map[string]string),
		username: username,
		password: password,
		sessions: make(map[string]bool),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.mu.Unlock()

		if r.URL.Path == "/login" {
			mock.loginHandler(w, r)
			return
		}
		mock.pageHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockSite) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSite) Close() {
	m.server.Close()
}

// SetPage registers the HTML served for a protected path.
func (m *MockSite) SetPage(path, html string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[path] = html
}

// InvalidateSessions revokes all issued session cookies, simulating a
// server-side session expiry.
func (m *MockSite) InvalidateSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]bool)
}

// Logins returns how many successful login flows completed.
func (m *MockSite) Logins() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LoginCount
}

func (m *MockSite) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		m.serveLoginForm(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.LoginPosts++
	ok := !m.FailLogin &&
		r.PostFormValue("logintoken") == loginToken &&
		r.PostFormValue("username") == m.username &&
		r.PostFormValue("password") == m.password
	if !ok {
		m.mu.Unlock()
		m.serveLoginForm(w)
		return
	}

	m.nextID++
	sessionID := fmt.Sprintf("sess-%d", m.nextID)
	m.sessions[sessionID] = true
	m.LoginCount++
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "botsession", Value: sessionID, Path: "/"})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (m *MockSite) pageHandler(w http.ResponseWriter, r *http.Request) {
	if !m.authenticated(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	m.mu.RLock()
	html, exists := m.pages[r.URL.Path]
	m.mu.RUnlock()

	if !exists {
		html = `<html><body><main id="landing">records portal</main></body></html>`
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, html)
}

func (m *MockSite) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie("botsession")
	if err != nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[cookie.Value]
}

func (m *MockSite) serveLoginForm(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<html><body>
<form action="/login" method="post">
<input type="hidden" name="logintoken" value="%s">
<input type="text" name="username">
<input type="password" name="password">
<button type="submit">Sign in</button>
</form>
</body></html>`, loginToken)
}

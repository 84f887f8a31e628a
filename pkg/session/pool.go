package session

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ballotline/scraper-core/pkg/logging"
)

// Credentials identify the bot account on the remote site.
type Credentials struct {
	Username string
	Password string
}

// Config holds pool configuration.
type Config struct {
	// Credentials for the login flow.
	Credentials Credentials

	// UserAgent sent on every request.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// ProbeInterval is the recency window in which a session is trusted
	// without a health probe. Zero probes on every Authenticate.
	ProbeInterval time.Duration

	// LoginPath identifies the remote login page; a navigation whose final
	// URL lands on this path means the session lost its authentication.
	LoginPath string

	// UsernameField and PasswordField are the login form input names.
	UsernameField string
	PasswordField string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(creds Credentials) Config {
	return Config{
		Credentials:   creds,
		UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		Timeout:       30 * time.Second,
		ProbeInterval: 2 * time.Minute,
		LoginPath:     "/login",
		UsernameField: "username",
		PasswordField: "password",
	}
}

// Pool maintains at most one live authenticated session per category,
// reusing healthy sessions and serializing re-authentication so that
// concurrent callers for the same category share a single login flow.
type Pool struct {
	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	// group collapses concurrent (re)authentication attempts per category.
	group singleflight.Group
}

// NewPool creates a session pool.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.Credentials.Username == "" {
		return nil, fmt.Errorf("credentials username is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig(cfg.Credentials).Timeout
	}
	if cfg.UsernameField == "" {
		cfg.UsernameField = "username"
	}
	if cfg.PasswordField == "" {
		cfg.PasswordField = "password"
	}

	return &Pool{
		cfg:      cfg,
		logger:   logging.NewLogger("session"),
		sessions: make(map[string]*Session),
	}, nil
}

// Authenticate returns the live session for category, creating or repairing
// it if needed. Concurrent callers for a category that needs
// (re)authentication share a single in-flight login flow. A failed login
// returns an ErrAuthFailed-wrapped error and is not retried here.
func (p *Pool) Authenticate(ctx context.Context, category, seedURL string) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	existing := p.sessions[category]
	p.mu.Unlock()

	if existing != nil && p.IsHealthy(ctx, existing) {
		p.logger.Debug().Str("category", category).Msg("Reusing healthy session")
		return existing, nil
	}

	value, err, shared := p.group.Do(category, func() (any, error) {
		// A caller that was queued behind the flight re-checks: the session
		// may have been repaired while it waited.
		p.mu.Lock()
		current := p.sessions[category]
		p.mu.Unlock()
		if current != nil && current != existing && p.IsHealthy(ctx, current) {
			return current, nil
		}

		sess, err := p.login(ctx, category, seedURL)
		if err != nil {
			loginsTotal.WithLabelValues("failed").Inc()
			p.logger.Error().Err(err).Str("category", category).Msg("Login flow failed")
			return nil, fmt.Errorf("%w: category %q: %v", ErrAuthFailed, category, err)
		}
		loginsTotal.WithLabelValues("ok").Inc()

		p.mu.Lock()
		if old := p.sessions[category]; old != nil {
			old.closed = true
			p.logger.Warn().Str("category", category).Msg("Replaced unhealthy session")
		}
		p.sessions[category] = sess
		activeSessions.Set(float64(len(p.sessions)))
		p.mu.Unlock()

		p.logger.Info().Str("category", category).Str("seed_url", seedURL).Msg("Authenticated new session")
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.logger.Debug().Str("category", category).Msg("Shared in-flight authentication result")
	}
	return value.(*Session), nil
}

// IsHealthy reports whether a session can still be used. Recently used
// sessions are trusted without I/O; older ones are probed against their
// seed URL, where a redirect to the login page or a non-2xx status means
// the authentication is gone.
func (p *Pool) IsHealthy(ctx context.Context, s *Session) bool {
	if s == nil {
		return false
	}

	p.mu.Lock()
	if s.closed {
		p.mu.Unlock()
		return false
	}
	if time.Since(s.lastUsed) < p.cfg.ProbeInterval {
		p.mu.Unlock()
		return true
	}
	p.mu.Unlock()

	resp, err := s.http.R().SetContext(ctx).Get(s.seedURL)
	if err != nil || resp.StatusCode() < 200 || resp.StatusCode() >= 300 || p.onLoginPage(resp) {
		probeFailuresTotal.Inc()
		p.logger.Debug().Str("category", s.category).Err(err).Msg("Health probe failed")
		p.setHealthy(s, false)
		return false
	}

	p.mu.Lock()
	s.healthy = true
	s.lastUsed = time.Now()
	p.mu.Unlock()
	return true
}

// Navigate loads url in the session's authenticated context and returns the
// rendered markup plus the resolved final URL. The session is never closed
// here; failures are returned as *NavigationError for the caller's retry
// policy.
func (p *Pool) Navigate(ctx context.Context, s *Session, targetURL, waitCondition string) (Page, error) {
	p.mu.Lock()
	closed := s == nil || s.closed
	p.mu.Unlock()
	if closed {
		navigationsTotal.WithLabelValues("error").Inc()
		return Page{}, fmt.Errorf("navigate %s: %w", targetURL, ErrSessionClosed)
	}

	resp, err := s.http.R().SetContext(ctx).Get(targetURL)
	if err != nil {
		navigationsTotal.WithLabelValues("error").Inc()
		return Page{}, &NavigationError{URL: targetURL, Reason: "request failed", Err: err}
	}

	finalURL := targetURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		navigationsTotal.WithLabelValues("error").Inc()
		return Page{}, &NavigationError{URL: targetURL, StatusCode: resp.StatusCode(), Reason: "unexpected status"}
	}

	if p.onLoginPage(resp) {
		navigationsTotal.WithLabelValues("error").Inc()
		return Page{}, &NavigationError{URL: targetURL, StatusCode: resp.StatusCode(), Reason: "redirected to login"}
	}

	html := string(resp.Body())
	if waitCondition != "" {
		ok, err := selectorPresent(html, waitCondition)
		if err != nil {
			navigationsTotal.WithLabelValues("error").Inc()
			return Page{}, &NavigationError{URL: targetURL, Reason: "parse page", Err: err}
		}
		if !ok {
			navigationsTotal.WithLabelValues("error").Inc()
			return Page{}, &NavigationError{
				URL:        targetURL,
				StatusCode: resp.StatusCode(),
				Reason:     fmt.Sprintf("wait condition %q not satisfied", waitCondition),
			}
		}
	}

	p.mu.Lock()
	s.lastUsed = time.Now()
	p.mu.Unlock()

	navigationsTotal.WithLabelValues("ok").Inc()
	p.logger.Debug().Str("category", s.category).Str("url", finalURL).Msg("Navigation ok")

	return Page{HTML: html, FinalURL: finalURL}, nil
}

// Sessions returns a read-only view of the live sessions.
func (p *Pool) Sessions() []Info {
	p.mu.Lock()
	defer p.mu.Unlock()

	infos := make([]Info, 0, len(p.sessions))
	for _, s := range p.sessions {
		infos = append(infos, Info{
			Category:  s.category,
			CreatedAt: s.createdAt,
			LastUsed:  s.lastUsed,
			Healthy:   s.healthy && !s.closed,
		})
	}
	return infos
}

// Close shuts down the pool and closes all sessions.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for _, s := range p.sessions {
		s.closed = true
	}
	p.sessions = make(map[string]*Session)
	activeSessions.Set(0)

	p.logger.Info().Msg("Session pool closed")
}

// newSession builds the per-session resty client with its own cookie jar.
func (p *Pool) newSession(category, seedURL string) (*Session, error) {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("parse seed url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", p.cfg.UserAgent)
	client.SetTimeout(p.cfg.Timeout)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(seed.Hostname()))

	now := time.Now()
	return &Session{
		category:  category,
		seedURL:   seedURL,
		http:      client,
		createdAt: now,
		lastUsed:  now,
		healthy:   true,
	}, nil
}

// onLoginPage reports whether a response landed on the configured login
// path after redirects.
func (p *Pool) onLoginPage(resp *resty.Response) bool {
	if p.cfg.LoginPath == "" || resp.RawResponse == nil || resp.RawResponse.Request == nil {
		return false
	}
	return strings.HasPrefix(resp.RawResponse.Request.URL.Path, p.cfg.LoginPath)
}

// setHealthy flips the cached health flag.
func (p *Pool) setHealthy(s *Session, healthy bool) {
	p.mu.Lock()
	s.healthy = healthy
	p.mu.Unlock()
}

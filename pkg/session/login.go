package session

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// login runs the form login flow against seedURL and returns a fresh
// authenticated session. The shape follows what login-protected record
// sites actually serve: a form with hidden anti-CSRF inputs that must be
// carried into the credential POST.
func (p *Pool) login(ctx context.Context, category, seedURL string) (*Session, error) {
	sess, err := p.newSession(category, seedURL)
	if err != nil {
		return nil, err
	}

	resp, err := sess.http.R().SetContext(ctx).Get(seedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch seed page: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("fetch seed page: unexpected status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse seed page: %w", err)
	}

	form := findLoginForm(doc, p.cfg.PasswordField)
	if form == nil {
		// No login form on the seed page: the category is already
		// reachable without credentials.
		p.logger.Debug().Str("category", category).Msg("Seed page has no login form, skipping login")
		return sess, nil
	}

	formData := map[string]string{}
	form.Find("input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		formData[name] = input.AttrOr("value", "")
	})
	formData[p.cfg.UsernameField] = p.cfg.Credentials.Username
	formData[p.cfg.PasswordField] = p.cfg.Credentials.Password

	actionURL, err := resolveFormAction(resp.RawResponse.Request.URL, form.AttrOr("action", ""))
	if err != nil {
		return nil, fmt.Errorf("resolve login form action: %w", err)
	}

	if _, err := sess.http.R().SetContext(ctx).SetFormData(formData).Post(actionURL); err != nil {
		return nil, fmt.Errorf("submit login form: %w", err)
	}

	// Verify by re-fetching the seed page with the fresh cookies.
	verify, err := sess.http.R().SetContext(ctx).Get(seedURL)
	if err != nil {
		return nil, fmt.Errorf("verify login: %w", err)
	}
	if p.onLoginPage(verify) {
		return nil, fmt.Errorf("login rejected: still on login page")
	}
	verifyDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(verify.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse page after login: %w", err)
	}
	if findLoginForm(verifyDoc, p.cfg.PasswordField) != nil {
		return nil, fmt.Errorf("login rejected: form still present after submit")
	}

	return sess, nil
}

// findLoginForm locates the form carrying a password input. Returns nil if
// the page has none.
func findLoginForm(doc *goquery.Document, passwordField string) *goquery.Selection {
	form := doc.Find("form").FilterFunction(func(_ int, form *goquery.Selection) bool {
		if form.Find("input[type=password]").Length() > 0 {
			return true
		}
		return form.Find(fmt.Sprintf("input[name=%s]", passwordField)).Length() > 0
	}).First()

	if form.Length() == 0 {
		return nil
	}
	return form
}

// resolveFormAction resolves a form action attribute against the page URL.
func resolveFormAction(pageURL *url.URL, action string) (string, error) {
	if action == "" {
		return pageURL.String(), nil
	}
	resolved, err := pageURL.Parse(action)
	if err != nil {
		return "", err
	}
	return resolved.String(), nil
}

// selectorPresent reports whether a CSS selector matches the markup.
// The selector is caller input, so it is compiled instead of using
// goquery's panicking Find.
func selectorPresent(html, selector string) (bool, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return false, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, err
	}
	return doc.FindMatcher(sel).Length() > 0, nil
}

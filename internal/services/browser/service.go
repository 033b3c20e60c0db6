// Package browser implements the page snapshot provider on headless Chrome
// via chromedp. It is the only package that touches the browser; everything
// above it consumes structured PageSnapshot values.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// Service renders pages and extracts DOM snapshots
type Service struct {
	pool   *Pool
	config common.BrowserConfig
	logger arbor.ILogger
}

// NewService creates a browser service backed by a fresh pool
func NewService(config common.BrowserConfig, logger arbor.ILogger) (*Service, error) {
	pool, err := NewPool(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser pool: %w", err)
	}
	return &Service{
		pool:   pool,
		config: config,
		logger: logger,
	}, nil
}

// Capture navigates to url and returns a structured snapshot of the rendered
// page. Session cookies, when given, are injected before navigation.
func (s *Service) Capture(ctx context.Context, url string, session *models.Session) (*models.PageSnapshot, error) {
	tabCtx, release, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	navCtx, cancel := context.WithTimeout(tabCtx, s.config.NavigationTimeout)
	defer cancel()

	if session != nil {
		if err := s.injectCookies(navCtx, session); err != nil {
			return nil, fmt.Errorf("failed to inject session cookies: %w", err)
		}
	}

	var snapshot models.PageSnapshot
	err = chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(s.config.StabilizeWait),
		chromedp.Evaluate(extractScript, &snapshot),
	)
	if err != nil {
		return nil, fmt.Errorf("navigation failed for %s: %w", url, err)
	}

	snapshot.CapturedAt = time.Now()

	s.logger.Debug().
		Str("url", url).
		Int("element_count", len(snapshot.Elements)).
		Bool("session_used", session != nil).
		Msg("Page snapshot captured")

	return &snapshot, nil
}

// SubmitLogin fills the located credential inputs, submits, waits for
// navigation or for the password input to disappear, and reports the
// resulting page state.
func (s *Service) SubmitLogin(ctx context.Context, sub *interfaces.LoginSubmission) (*interfaces.LoginAttempt, error) {
	tabCtx, release, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	navCtx, cancel := context.WithTimeout(tabCtx, s.config.NavigationTimeout)
	defer cancel()

	if sub.Session != nil {
		if err := s.injectCookies(navCtx, sub.Session); err != nil {
			return nil, fmt.Errorf("failed to inject session cookies: %w", err)
		}
	}

	var startURL string
	err = chromedp.Run(navCtx,
		chromedp.Navigate(sub.URL),
		chromedp.Sleep(s.config.StabilizeWait),
		chromedp.Location(&startURL),
		chromedp.SendKeys(sub.UsernameSelector, sub.Credentials.Username, chromedp.ByQuery),
		chromedp.SendKeys(sub.PasswordSelector, sub.Credentials.Password, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fill login form: %w", err)
	}

	if sub.SubmitSelector != "" {
		err = chromedp.Run(navCtx, chromedp.Click(sub.SubmitSelector, chromedp.ByQuery))
	} else {
		// No submit control located; Enter in the password field submits
		// the enclosing form
		err = chromedp.Run(navCtx, chromedp.SendKeys(sub.PasswordSelector, kb.Enter, chromedp.ByQuery))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to submit login form: %w", err)
	}

	s.waitForSettlement(navCtx, startURL)

	var snapshot models.PageSnapshot
	var finalURL string
	err = chromedp.Run(navCtx,
		chromedp.Location(&finalURL),
		chromedp.Evaluate(extractScript, &snapshot),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture post-login state: %w", err)
	}
	snapshot.CapturedAt = time.Now()

	cookies, err := s.captureCookies(navCtx, finalURL)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to capture cookies after login")
	}

	return &interfaces.LoginAttempt{
		StartURL: startURL,
		FinalURL: finalURL,
		Snapshot: &snapshot,
		Cookies:  cookies,
	}, nil
}

// waitForSettlement polls until the URL changes, the password input
// disappears, or the submit wait elapses. Whichever occurs first ends the
// wait; classification of the outcome is the prober's job.
func (s *Service) waitForSettlement(ctx context.Context, startURL string) {
	deadline := time.Now().Add(s.config.StabilizeWait * 5)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var currentURL string
		var passwordGone bool
		err := chromedp.Run(ctx,
			chromedp.Location(&currentURL),
			chromedp.Evaluate(`(() => {
				const el = document.querySelector('input[type="password"]');
				if (!el) return true;
				const style = window.getComputedStyle(el);
				return style.display === 'none' || style.visibility === 'hidden';
			})()`, &passwordGone),
		)
		if err != nil {
			// Evaluation races a navigation; the page is changing, which is
			// itself settlement
			return
		}
		if currentURL != startURL || passwordGone {
			return
		}
	}
}

func (s *Service) injectCookies(ctx context.Context, session *models.Session) error {
	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		return fmt.Errorf("failed to enable network domain: %w", err)
	}

	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range session.Cookies {
			domain := strings.TrimPrefix(c.Domain, ".")
			action := network.SetCookie(c.Name, c.Value).
				WithDomain(domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if !c.Expires.IsZero() && c.Expires.After(time.Now()) {
				expires := cdp.TimeSinceEpoch(c.Expires)
				action = action.WithExpires(&expires)
			}
			if err := action.Do(ctx); err != nil {
				s.logger.Warn().
					Err(err).
					Str("cookie_name", c.Name).
					Str("domain", domain).
					Msg("Failed to inject cookie")
				// Continue with remaining cookies
			}
		}
		return nil
	}))
}

func (s *Service) captureCookies(ctx context.Context, url string) ([]models.SessionCookie, error) {
	var raw []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().WithURLs([]string{url}).Do(ctx)
		if err != nil {
			return err
		}
		raw = cookies
		return nil
	}))
	if err != nil {
		return nil, err
	}

	cookies := make([]models.SessionCookie, 0, len(raw))
	for _, c := range raw {
		cookie := models.SessionCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

// Close releases all browser resources
func (s *Service) Close() error {
	return s.pool.Close()
}

var _ interfaces.PageProvider = (*Service)(nil)

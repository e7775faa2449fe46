package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mxshs/oddsranker/src/apperr"
	"mxshs/oddsranker/src/browser"
	"mxshs/oddsranker/src/config"
	"mxshs/oddsranker/src/domain"

	"go.uber.org/zap"
)

type Session struct {
	LandedOn string
	Since    time.Time
}

type SessionManager struct {
	page browser.Page
	site *config.Site
	log  *zap.Logger
}

func NewSessionManager(page browser.Page, site *config.Site, log *zap.Logger) *SessionManager {
	return &SessionManager{
		page: page,
		site: site,
		log:  log.Named("session"),
	}
}

// Login submits the credentials once. Landing back on the login surface is
// reported as AuthenticationFailed and must not be retried, since repeated
// attempts risk locking the account.
func (sm *SessionManager) Login(ctx context.Context, creds domain.Credentials) (*Session, error) {
	sel := sm.site.Selector

	sm.log.Info("logging in", zap.String("username", creds.Username))

	if err := sm.page.Navigate(ctx, sm.site.LoginURL()); err != nil {
		return nil, fmt.Errorf("open login page: %w", err)
	}
	if err := sm.page.WaitReady(ctx, sel.LoginUsername); err != nil {
		return nil, fmt.Errorf("login form: %w", err)
	}
	if err := sm.page.SetValue(ctx, sel.LoginUsername, creds.Username); err != nil {
		return nil, fmt.Errorf("fill username: %w", err)
	}
	if err := sm.page.SetValue(ctx, sel.LoginPassword, creds.Password); err != nil {
		return nil, fmt.Errorf("fill password: %w", err)
	}

	if sm.site.RememberMe && sel.LoginRemember != "" {
		if err := sm.tickRememberMe(ctx); err != nil {
			return nil, err
		}
	}

	if err := sm.page.Click(ctx, sel.LoginSubmit); err != nil {
		return nil, fmt.Errorf("submit login form: %w", err)
	}

	loc, err := sm.page.Location(ctx)
	if err != nil {
		return nil, fmt.Errorf("read location after login: %w", err)
	}
	if strings.Contains(strings.ToLower(loc), strings.ToLower(sm.site.LoginMarker)) {
		return nil, apperr.New(apperr.CodeAuthenticationFailed, "still on login page %s", loc)
	}

	sm.log.Info("logged in", zap.String("url", loc))
	return &Session{LandedOn: loc, Since: time.Now()}, nil
}

func (sm *SessionManager) tickRememberMe(ctx context.Context) error {
	sel := sm.site.Selector.LoginRemember

	boxes, err := sm.page.Checkboxes(ctx, sel)
	if err != nil {
		return fmt.Errorf("read remember-me: %w", err)
	}
	if len(boxes) == 0 {
		sm.log.Debug("no remember-me checkbox on login form")
		return nil
	}
	if boxes[0].Checked {
		return nil
	}

	if err := sm.page.Toggle(ctx, sel); err != nil && !errors.Is(err, browser.ErrNotFound) {
		return fmt.Errorf("tick remember-me: %w", err)
	}

	return nil
}

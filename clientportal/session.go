package clientportal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrNotAuthenticated is returned when the gateway session is not logged in.
var ErrNotAuthenticated = errors.New("gateway session is not authenticated, log in through the gateway page")

// AuthStatus is the brokerage session state.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Connected     bool   `json:"connected"`
	Competing     bool   `json:"competing"`
	Message       string `json:"message"`
}

// Status returns the brokerage session state.
func (c *Client) Status(ctx context.Context) (AuthStatus, error) {
	var s AuthStatus
	if err := c.search(ctx, "/iserver/auth/status", nil, &s); err != nil {
		return s, fmt.Errorf("auth status: %w", err)
	}
	return s, nil
}

// Ping checks the gateway is reachable and authenticated.
func (c *Client) Ping(ctx context.Context) error {
	s, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if !s.Authenticated || !s.Connected {
		return ErrNotAuthenticated
	}
	return nil
}

// Tickle keeps the session alive.
func (c *Client) Tickle(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/tickle", nil, nil)
}

// KeepAlive tickles the session every interval until ctx is done.
func (c *Client) KeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Tickle(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn().Err(err).Msg("session keep alive failed")
			}
		}
	}
}

// InvalidatePositions drops the gateway's positions cache and asks for the
// account list, which starts refilling it.
func (c *Client) InvalidatePositions(ctx context.Context) error {
	acct, err := c.Account(ctx)
	if err != nil {
		return err
	}
	if err := c.send(ctx, http.MethodPost, "/portfolio/"+url.PathEscape(acct)+"/positions/invalidate", nil, nil); err != nil {
		return fmt.Errorf("invalidating positions cache: %w", err)
	}
	if err := c.get(ctx, "/portfolio/accounts", nil, nil); err != nil {
		return fmt.Errorf("priming positions cache: %w", err)
	}
	c.log.Info().Str("account", acct).Msg("positions cache invalidated")
	return nil
}

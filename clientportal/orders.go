package clientportal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/etnz/rebalance"
)

// maxReplies bounds the precautionary questions answered for one order.
const maxReplies = 10

// ticket is the order payload of the gateway.
type ticket struct {
	Conid     json.Number `json:"conid"`
	ClientID  string      `json:"cOID,omitempty"`
	OrderType string      `json:"orderType"`
	Price     json.Number `json:"price"`
	Side      string      `json:"side"`
	Quantity  json.Number `json:"quantity"`
	TIF       string      `json:"tif"`
}

// SubmitOrder places a day limit order and answers the gateway's
// precautionary questions. The order request itself is sent once; a failure
// is returned to the caller, never retried.
func (c *Client) SubmitOrder(ctx context.Context, t rebalance.OrderTicket) (string, error) {
	acct, err := c.Account(ctx)
	if err != nil {
		return "", err
	}
	payload := map[string][]ticket{"orders": {{
		Conid:     json.Number(t.ID),
		ClientID:  t.ClientID,
		OrderType: "LMT",
		Price:     json.Number(t.Limit.String()),
		Side:      t.Side.String(),
		Quantity:  json.Number(t.Quantity.String()),
		TIF:       "DAY",
	}}}
	var doc any
	path := "/iserver/account/" + url.PathEscape(acct) + "/orders"
	if err := c.send(ctx, http.MethodPost, path, payload, &doc); err != nil {
		return "", rejection(err)
	}
	for i := 0; i < maxReplies; i++ {
		if msg := text("$.error", doc); msg != "" {
			return "", &rebalance.RejectedError{Reason: msg}
		}
		if id := text("$[0].order_id", doc); id != "" {
			if status := text("$[0].order_status", doc); status != "" {
				c.log.Info().Str("order", id).Str("status", status).Str("symbol", t.Symbol).Msg("order placed")
			}
			return id, nil
		}
		reply := text("$[0].id", doc)
		if reply == "" {
			return "", fmt.Errorf("unexpected order answer: %v", doc)
		}
		c.log.Info().Str("reply", reply).Str("message", text("$[0].message[0]", doc)).Msg("confirming gateway question")
		if err := c.send(ctx, http.MethodPost, "/iserver/reply/"+url.PathEscape(reply), map[string]bool{"confirmed": true}, &doc); err != nil {
			return "", rejection(err)
		}
	}
	return "", fmt.Errorf("order for %s still unconfirmed after %d questions", t.Symbol, maxReplies)
}

// rejection turns a client error answer into a *rebalance.RejectedError.
func rejection(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
		reason := strings.TrimSpace(string(apiErr.Body))
		var body map[string]any
		if json.Unmarshal(apiErr.Body, &body) == nil {
			if msg := text("$.error", body); msg != "" {
				reason = msg
			}
		}
		return &rebalance.RejectedError{Reason: reason}
	}
	return err
}

// CancelOrder cancels a working order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	acct, err := c.Account(ctx)
	if err != nil {
		return err
	}
	var doc any
	path := "/iserver/account/" + url.PathEscape(acct) + "/order/" + url.PathEscape(orderID)
	if err := c.send(ctx, http.MethodDelete, path, nil, &doc); err != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, rejection(err))
	}
	if msg := text("$.error", doc); msg != "" {
		return fmt.Errorf("cancelling order %s: %s", orderID, msg)
	}
	return nil
}

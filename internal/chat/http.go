// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPGateway talks JSON to the bot process that holds the platform
// connection. 403 maps to ErrForbidden, 409 to ErrAlreadyExists and a 404
// on lookups to "not found".
type HTTPGateway struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewHTTPGateway creates a gateway for the bot API at baseURL.
func NewHTTPGateway(baseURL, token string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type membershipRequest struct {
	RoleIDs []string `json:"role_ids"`
}

// FindRoleByName implements Gateway.
func (g *HTTPGateway) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	var r Role
	found, err := g.lookup(ctx, "/roles", url.Values{"name": {name}}, &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}

// CreateRole implements Gateway.
func (g *HTTPGateway) CreateRole(ctx context.Context, spec RoleSpec) (*Role, error) {
	var r Role
	if err := g.do(ctx, http.MethodPost, "/roles", nil, spec, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// FindGroupByName implements Gateway.
func (g *HTTPGateway) FindGroupByName(ctx context.Context, name string) (*Group, error) {
	var gr Group
	found, err := g.lookup(ctx, "/groups", url.Values{"name": {name}}, &gr)
	if err != nil || !found {
		return nil, err
	}
	return &gr, nil
}

// CreateGroup implements Gateway.
func (g *HTTPGateway) CreateGroup(ctx context.Context, spec GroupSpec) (*Group, error) {
	var gr Group
	if err := g.do(ctx, http.MethodPost, "/groups", nil, spec, &gr); err != nil {
		return nil, err
	}
	return &gr, nil
}

// FindChannel implements Gateway.
func (g *HTTPGateway) FindChannel(ctx context.Context, name, groupID string) (*Channel, error) {
	q := url.Values{"name": {name}}
	if groupID != "" {
		q.Set("group_id", groupID)
	}
	var c Channel
	found, err := g.lookup(ctx, "/channels", q, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// CreateChannel implements Gateway.
func (g *HTTPGateway) CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error) {
	var c Channel
	if err := g.do(ctx, http.MethodPost, "/channels", nil, spec, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GrantMembership implements Gateway.
func (g *HTTPGateway) GrantMembership(ctx context.Context, accountID string, roles ...Role) error {
	return g.do(ctx, http.MethodPut, "/members/"+url.PathEscape(accountID)+"/roles", nil, roleIDs(roles), nil)
}

// RevokeMembership implements Gateway.
func (g *HTTPGateway) RevokeMembership(ctx context.Context, accountID string, roles ...Role) error {
	return g.do(ctx, http.MethodDelete, "/members/"+url.PathEscape(accountID)+"/roles", nil, roleIDs(roles), nil)
}

func roleIDs(roles []Role) membershipRequest {
	ids := make([]string, len(roles))
	for i, r := range roles {
		ids[i] = r.ID
	}
	return membershipRequest{RoleIDs: ids}
}

// lookup performs a GET and reports false on 404.
func (g *HTTPGateway) lookup(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	err := g.do(ctx, http.MethodGet, path, query, nil, out)
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	return err == nil, err
}

var errNotFound = errors.New("chat: not found")

func (g *HTTPGateway) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := g.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusConflict:
		return ErrAlreadyExists
	case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
		return errNotFound
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

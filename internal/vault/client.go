package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"timecapsule/internal/domain"
)

// Client is the JSON-over-HTTP view of a vault server.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient returns a client for the vault at base.
func NewClient(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Base: base, HTTP: httpClient}
}

func (c *Client) Seal(ctx context.Context, l domain.Letter) (domain.Token, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/letters", toSealRequest(l), &out); err != nil {
		return "", err
	}
	return domain.Token(out.Token), nil
}

func (c *Client) Resolve(ctx context.Context, token domain.Token) (domain.Disclosure, error) {
	var out domain.Disclosure
	err := c.do(ctx, http.MethodGet, "/l/"+url.PathEscape(string(token)), nil, &out)
	return out, err
}

func (c *Client) Open(ctx context.Context, token domain.Token) (domain.OpenResult, error) {
	var out domain.OpenResult
	err := c.do(ctx, http.MethodPost, "/l/"+url.PathEscape(string(token))+"/open", nil, &out)
	return out, err
}

func (c *Client) Revoke(ctx context.Context, id domain.LetterID, reason string) (domain.RevokeResult, error) {
	var out domain.RevokeResult
	err := c.do(ctx, http.MethodPost, "/letters/"+url.PathEscape(string(id))+"/revoke", revokeRequest{Reason: reason}, &out)
	return out, err
}

func (c *Client) Rotate(ctx context.Context, id domain.LetterID) (domain.Token, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/letters/"+url.PathEscape(string(id))+"/rotate", nil, &out); err != nil {
		return "", err
	}
	return domain.Token(out.Token), nil
}

func (c *Client) Regenerate(ctx context.Context, id domain.LetterID, env domain.Envelope) error {
	return c.do(ctx, http.MethodPost, "/letters/"+url.PathEscape(string(id))+"/regenerate", regenerateRequest{Envelope: env}, nil)
}

func (c *Client) Cancel(ctx context.Context, id domain.LetterID) error {
	return c.do(ctx, http.MethodPost, "/letters/"+url.PathEscape(string(id))+"/cancel", nil, nil)
}

func (c *Client) Delete(ctx context.Context, id domain.LetterID) error {
	return c.do(ctx, http.MethodDelete, "/letters/"+url.PathEscape(string(id)), nil, nil)
}

// do sends one request. Protocol failures come back as the taxonomy
// sentinels via their wire codes; transport failures are wrapped as
// transient so callers can retry them.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Buffer
	if in != nil {
		body = new(bytes.Buffer)
		if err := json.NewEncoder(body).Encode(in); err != nil {
			return err
		}
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &domain.TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return &domain.TransientError{Err: fmt.Errorf("vault %s %s: %s", method, path, resp.Status)}
		}
		return domain.FromErrorCode(er.Error)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ domain.VaultClient = (*Client)(nil)

package gatewaysvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Client is a thin JSON client for one upstream school microservice. Every
// request carries the bearer token from the configured provider; every non-2xx
// reply becomes a core.GatewayError preserving the server's own message so it
// can be surfaced to the user verbatim.
type Client struct {
	http    *http.Client
	baseURL string
	token   core.TokenProvider
}

func NewClient(baseURL string, timeout time.Duration, token core.TokenProvider) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// do performs one request. A nil body sends no payload; a non-nil out decodes
// a non-empty 2xx reply into it. An empty 2xx body (204 and friends) leaves
// out untouched and returns errNoBody so callers can tell the cases apart.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		payload = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return errors.Wrap(err, "acquiring token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.NewGatewayError(0, transportMessage(err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.NewGatewayError(resp.StatusCode, "reading response: "+err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.NewGatewayError(resp.StatusCode, serverMessage(raw, resp.StatusCode))
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return errNoBody
		}
		return nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

var errNoBody = errors.New("empty response body")

func transportMessage(err error) string {
	if uerr, ok := err.(*url.Error); ok {
		if uerr.Timeout() {
			return "request timed out"
		}
		err = uerr.Err
	}
	return err.Error()
}

// serverMessage digs the human-readable message out of an error reply body.
// Upstream services answer {"message": ...}; some proxies answer {"error": ...}.
func serverMessage(raw []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" && !strings.HasPrefix(msg, "{") && !strings.HasPrefix(msg, "<") {
		return msg
	}
	return http.StatusText(status)
}

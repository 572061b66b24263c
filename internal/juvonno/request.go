package juvonno

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Result is the outcome of a generic pass-through request. It is always
// well-formed: transport and protocol failures populate Err instead of
// surfacing as Go errors, and a non-JSON upstream body is wrapped as
// {"raw_text": ...}.
type Result struct {
	StatusCode int         `json:"status_code,omitempty"`
	Response   interface{} `json:"response,omitempty"`
	Err        string      `json:"error,omitempty"`
}

// Do issues an arbitrary request against the tenant API. Supported methods
// are GET, POST, PUT, and DELETE; anything else yields a structured error
// without touching the network, as does a client missing credentials.
func (c *Client) Do(ctx context.Context, endpoint, method string, params map[string]string, body interface{}) Result {
	if c.apiKey == "" || c.subdomain == "" {
		return Result{Err: ErrMissingCredentials.Error()}
	}

	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return Result{Err: "unsupported HTTP method: " + method}
	}

	// GET and DELETE carry no body.
	if method == http.MethodGet || method == http.MethodDelete {
		body = nil
	}

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("generic Juvonno API request")

	req, err := c.newRequest(ctx, method, endpoint, query, body)
	if err != nil {
		return Result{Err: err.Error()}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("generic request failed")
		return Result{Err: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{StatusCode: resp.StatusCode, Err: err.Error()}
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = map[string]interface{}{"raw_text": string(raw)}
	}

	return Result{StatusCode: resp.StatusCode, Response: decoded}
}

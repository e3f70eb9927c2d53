// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

// Package whm talks to the WHM JSON API of a cPanel server.
package whm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/toeirei/cpcm/internal/logging"
	"github.com/toeirei/cpcm/internal/model"
)

const (
	// DefaultPort is the WHM HTTPS port.
	DefaultPort = 2087
	// DefaultTimeout bounds a single inventory request.
	DefaultTimeout = 30 * time.Second

	domainInfoPath = "/json-api/get_domain_info"
	maxBodyBytes   = 64 << 20
)

// Options configures a Client.
type Options struct {
	Port    int
	Timeout time.Duration
	// InsecureSkipVerify disables certificate verification. Panel hosts
	// usually present self-signed certificates, so cpcm enables this by
	// default; operators with a proper PKI should turn it off.
	InsecureSkipVerify bool
	// Transport replaces the default transport, mainly for tests.
	Transport http.RoundTripper
}

// Client fetches domain inventory from WHM servers.
type Client struct {
	port    int
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a Client. Zero options fall back to the defaults.
func NewClient(opts Options) *Client {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	rt := opts.Transport
	if rt == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // self-signed panel certificates
			MinVersion:         tls.VersionTLS12,
		}
		rt = tr
	}
	return &Client{
		port:    opts.Port,
		timeout: opts.Timeout,
		http:    &http.Client{Transport: rt},
	}
}

// envelope is the WHM API 1 response wrapper.
type envelope struct {
	Data *struct {
		Domains json.RawMessage `json:"domains"`
	} `json:"data"`
	Metadata *struct {
		Result *int   `json:"result"`
		Reason string `json:"reason"`
	} `json:"metadata"`
}

// URL returns the inventory endpoint for srv.
func (c *Client) URL(srv model.Server) string {
	u := url.URL{
		Scheme:   "https",
		Host:     net.JoinHostPort(srv.IP, strconv.Itoa(c.port)),
		Path:     domainInfoPath,
		RawQuery: "api.version=1",
	}
	return u.String()
}

// FetchDomains returns the raw entries of data.domains, one message per
// array element. A response without data.domains yields no records.
//
// Errors are *model.FetchError for transport, TLS, timeout, non-2xx and
// result=0 envelopes, and *model.MalformedResponseError for bodies that are
// not a JSON object.
func (c *Client) FetchDomains(ctx context.Context, srv model.Server) ([]json.RawMessage, error) {
	key := srv.Key()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(srv), nil)
	if err != nil {
		return nil, &model.FetchError{Server: key, Err: err}
	}
	req.Header.Set("Authorization", "whm "+srv.User+":"+srv.APIKey.Reveal())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", c.timeout, context.DeadlineExceeded)
		}
		return nil, &model.FetchError{Server: key, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &model.FetchError{Server: key, Err: fmt.Errorf("read body: %w", err)}
	}
	logging.Debugf("whm: %s answered %d (%d bytes) in %s", key, resp.StatusCode, len(body), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := http.StatusText(resp.StatusCode)
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Metadata != nil && env.Metadata.Reason != "" {
			reason = env.Metadata.Reason
		}
		return nil, &model.FetchError{Server: key, StatusCode: resp.StatusCode, Reason: reason}
	}

	return decodeDomains(key, body)
}

func decodeDomains(key model.ServerKey, body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &model.MalformedResponseError{Server: key, Err: errors.New("top-level value is not a JSON object")}
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &model.MalformedResponseError{Server: key, Err: err}
	}
	if env.Metadata != nil && env.Metadata.Result != nil && *env.Metadata.Result == 0 {
		reason := env.Metadata.Reason
		if reason == "" {
			reason = "request failed"
		}
		return nil, &model.FetchError{Server: key, Reason: reason}
	}
	if env.Data == nil || len(env.Data.Domains) == 0 || bytes.Equal(bytes.TrimSpace(env.Data.Domains), []byte("null")) {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(env.Data.Domains, &records); err != nil {
		return nil, &model.MalformedResponseError{Server: key, Err: fmt.Errorf("data.domains: %w", err)}
	}
	return records, nil
}

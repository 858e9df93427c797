package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Observer receives the outcome of every backend call, for metrics.
// status is 0 when no response was received.
type Observer func(op string, status int, elapsed time.Duration)

// Client talks to the backend REST API.
type Client struct {
	cfg     Config
	base    string
	http    *http.Client
	log     *slog.Logger
	observe Observer

	Employees     *Collection[Employee, EmployeeInput]
	LeaveRequests *Collection[LeaveRequest, LeaveRequestInput]
	Contracts     *Collection[Contract, ContractInput]
	Events        *Collection[Event, EventInput]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Its Timeout is replaced
// by Config.Timeout when unset.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver registers a call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

// New builds a Client.
func New(cfg Config, log *slog.Logger, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = def.MaxResponseBytes
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}

	c := &Client{
		cfg:  cfg,
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{},
		log:  log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http.Timeout <= 0 {
		c.http.Timeout = cfg.Timeout
	}

	employeePopulate := Query{
		"picture": Fields("url"),
		"user":    Fields("email"),
	}
	withEmployee := Query{
		"employee": Query{
			"fields":   []string{"firstName", "lastName"},
			"populate": Query{"picture": Fields("url")},
		},
	}

	c.Employees = newCollection[Employee, EmployeeInput](c, "employees", "employee", employeePopulate, nil)
	c.LeaveRequests = newCollection[LeaveRequest, LeaveRequestInput](c, "leave-requests", "leave request", withEmployee, nil)
	c.Contracts = newCollection[Contract, ContractInput](c, "contracts", "contract", withEmployee, nil)
	c.Events = newCollection[Event, EventInput](c, "events", "event",
		Query{"employee": Fields("firstName", "lastName", "position")},
		[]string{"startDate:asc"},
	)
	return c, nil
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string { return c.base }

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: "ping", Message: "backend unreachable", Err: err}
	}
	_ = resp.Body.Close()
	return nil
}

type call struct {
	op       string
	method   string
	path     string
	query    Query
	token    string
	body     any
	fallback string
}

// do performs one request and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, cl call, out any) error {
	start := time.Now()
	status := 0
	defer func() {
		if c.observe != nil {
			c.observe(cl.op, status, time.Since(start))
		}
	}()

	target := c.base + cl.path
	if qs := cl.query.Encode(); qs != "" {
		target += "?" + qs
	}

	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", cl.op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return fmt.Errorf("%s: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.DebugContext(ctx, "backend.request.fail", "op", cl.op, "err", err)
		return &Error{Op: cl.op, Message: cl.fallback, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	limited := io.LimitReader(resp.Body, c.cfg.MaxResponseBytes)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := cl.fallback
		var env errorEnvelope
		if raw, rerr := io.ReadAll(limited); rerr == nil && json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return &Error{Op: cl.op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, limited)
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{Op: cl.op, Status: resp.StatusCode, Message: cl.fallback, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

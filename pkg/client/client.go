package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/panelnav/panelnav/pkg/panel"
)

const tracerName = "github.com/panelnav/panelnav/pkg/client"

// ErrInvalidServerID is returned for ids that cannot be a URL segment.
var ErrInvalidServerID = errors.New("invalid server id")

// Client is a panel client API client.
type Client struct {
	base      *url.URL
	apiKey    string
	http      *http.Client
	tracer    trace.Tracer
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithTracerProvider sets the provider spans are created from.
// Default: the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for the panel at baseURL.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse panel url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("panel url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:      u,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: 15 * time.Second},
		tracer:    otel.Tracer(tracerName),
		userAgent: "panelnav",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type serverEnvelope struct {
	Object     string           `json:"object"`
	Attributes serverAttributes `json:"attributes"`
}

type serverAttributes struct {
	Identifier     string  `json:"identifier"`
	UUID           string  `json:"uuid"`
	InternalID     int     `json:"internal_id"`
	Name           string  `json:"name"`
	Node           string  `json:"node"`
	Status         *string `json:"status"`
	IsTransferring bool    `json:"is_transferring"`

	// Older panels report these flags instead of a status.
	IsSuspended  bool `json:"is_suspended"`
	IsInstalling bool `json:"is_installing"`
}

func (a serverAttributes) server() *panel.Server {
	s := &panel.Server{
		ID:             a.Identifier,
		UUID:           a.UUID,
		InternalID:     a.InternalID,
		Name:           a.Name,
		Node:           a.Node,
		IsTransferring: a.IsTransferring,
	}
	switch {
	case a.Status != nil:
		s.Status = panel.Status(*a.Status)
	case a.IsSuspended:
		s.Status = panel.StatusSuspended
	case a.IsInstalling:
		s.Status = panel.StatusInstalling
	}
	return s
}

// LoadServer fetches the identity of server id. It implements session.Loader.
func (c *Client) LoadServer(ctx context.Context, id string) (*panel.Server, error) {
	ctx, span := c.tracer.Start(ctx, "panel.LoadServer",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("panel.server_id", id)),
	)
	defer span.End()

	var env serverEnvelope
	if err := c.get(ctx, span, "/api/client/servers/"+id, id, &env); err != nil {
		return nil, err
	}
	if env.Object != "" && env.Object != "server" {
		err := fmt.Errorf("load server %s: unexpected object %q", id, env.Object)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	server := env.Attributes.server()
	span.SetAttributes(
		attribute.String("panel.server_uuid", server.UUID),
		attribute.String("panel.server_status", string(server.Status)),
	)
	return server, nil
}

// Credentials authenticate a daemon websocket connection.
type Credentials struct {
	Token  string `json:"token"`
	Socket string `json:"socket"`
}

// WebsocketCredentials fetches a fresh daemon websocket token for server id.
func (c *Client) WebsocketCredentials(ctx context.Context, id string) (Credentials, error) {
	ctx, span := c.tracer.Start(ctx, "panel.WebsocketCredentials",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("panel.server_id", id)),
	)
	defer span.End()

	var env struct {
		Data Credentials `json:"data"`
	}
	if err := c.get(ctx, span, "/api/client/servers/"+id+"/websocket", id, &env); err != nil {
		return Credentials{}, err
	}
	if env.Data.Token == "" || env.Data.Socket == "" {
		err := fmt.Errorf("websocket credentials for %s: empty token or socket", id)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Credentials{}, err
	}
	return env.Data, nil
}

func (c *Client) get(ctx context.Context, span trace.Span, path, id string, out any) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/?#") {
		span.SetStatus(codes.Error, ErrInvalidServerID.Error())
		return fmt.Errorf("%w: %q", ErrInvalidServerID, id)
	}

	u := *c.base
	u.Path = c.base.Path + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("GET %s: read body: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp.StatusCode, body)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("GET %s: decode response: %w", path, err)
	}
	return nil
}

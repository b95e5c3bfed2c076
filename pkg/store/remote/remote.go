// Package remote is a Graph Store client for a running kitchenboard server.
//
// Requests carry the session's bearer token. Failures come back as the
// server's JSON error envelope and are decoded into *errors.Error values
// with the same codes the server-side store produced, so a board attached
// to a remote store behaves exactly like one attached locally.
//
// Idempotent requests (reads, moves, deletes, imports) are retried with
// backoff on connection errors and 5xx/429 answers. Creates and toggles are
// sent once: repeating them after an ambiguous failure would duplicate or
// undo the change.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/httputil"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/observability"
	"github.com/matzehuels/kitchenboard/pkg/store"
)

// Defaults for Options.
const (
	DefaultAttempts = 3
	DefaultDelay    = 250 * time.Millisecond
)

// Options configures a Store.
type Options struct {
	// Endpoint is the server's base URL, e.g. http://localhost:8080.
	Endpoint string
	// Token is sent as a bearer token. Empty disables the header.
	Token string

	HTTPClient *http.Client
	Attempts   int
	Delay      time.Duration
	Logger     *log.Logger
}

// Store talks to the kitchenboard HTTP API.
type Store struct {
	base     *url.URL
	token    string
	http     *http.Client
	attempts int
	delay    time.Duration
	logger   *log.Logger
}

// New validates opts and returns a client. No request is made.
func New(opts Options) (*Store, error) {
	if err := errors.ValidateURL(opts.Endpoint); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(opts.Endpoint, "/"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse endpoint")
	}
	s := &Store{
		base:     base,
		token:    opts.Token,
		http:     opts.HTTPClient,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		logger:   opts.Logger,
	}
	if s.http == nil {
		s.http = httputil.NewClient(0)
	}
	if s.attempts <= 0 {
		s.attempts = DefaultAttempts
	}
	if s.delay <= 0 {
		s.delay = DefaultDelay
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s, nil
}

// Endpoint returns the base URL.
func (s *Store) Endpoint() string { return s.base.String() }

// Graph fetches the restaurant's snapshot.
func (s *Store) Graph(ctx context.Context, restaurantID string) (*kitchen.Graph, error) {
	if err := errors.ValidateID("restaurant_id", restaurantID); err != nil {
		return nil, err
	}
	var g *kitchen.Graph
	err := s.do(ctx, request{
		method:     http.MethodGet,
		path:       "/restaurants/" + url.PathEscape(restaurantID) + "/graph",
		idempotent: true,
		decode: func(r io.Reader) (err error) {
			g, err = kitchen.ReadGraph(r)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// CreateNode posts a new node.
func (s *Store) CreateNode(ctx context.Context, in kitchen.NodeInput) (*kitchen.Node, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var n kitchen.Node
	err := s.do(ctx, request{
		method: http.MethodPost,
		path:   "/restaurants/" + url.PathEscape(in.RestaurantID) + "/nodes",
		body:   in,
		decode: decodeJSON(&n),
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MoveNode sends the new position.
func (s *Store) MoveNode(ctx context.Context, nodeID string, in kitchen.MoveInput) (*kitchen.Node, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var n kitchen.Node
	err := s.do(ctx, request{
		method:     http.MethodPatch,
		path:       nodePath(nodeID) + "/move",
		body:       in,
		idempotent: true,
		decode:     decodeJSON(&n),
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ToggleNode flips availability.
func (s *Store) ToggleNode(ctx context.Context, nodeID string) (*kitchen.Node, error) {
	var n kitchen.Node
	err := s.do(ctx, request{
		method: http.MethodPatch,
		path:   nodePath(nodeID) + "/toggle",
		decode: decodeJSON(&n),
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNode soft-deletes a node.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) error {
	return s.do(ctx, request{method: http.MethodDelete, path: nodePath(nodeID), idempotent: true, deletes: true})
}

// CreateEdge posts a new edge.
func (s *Store) CreateEdge(ctx context.Context, in kitchen.EdgeInput) (*kitchen.Edge, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var e kitchen.Edge
	err := s.do(ctx, request{
		method: http.MethodPost,
		path:   "/restaurants/" + url.PathEscape(in.RestaurantID) + "/edges",
		body:   in,
		decode: decodeJSON(&e),
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEdge removes an edge.
func (s *Store) DeleteEdge(ctx context.Context, edgeID string) error {
	return s.do(ctx, request{method: http.MethodDelete, path: "/edges/" + url.PathEscape(edgeID), idempotent: true, deletes: true})
}

// Import uploads a whole graph, replacing the restaurant's data.
func (s *Store) Import(ctx context.Context, g *kitchen.Graph) error {
	if g == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil graph")
	}
	if err := errors.ValidateID("restaurant_id", g.RestaurantID); err != nil {
		return err
	}
	return s.do(ctx, request{
		method:     http.MethodPut,
		path:       "/restaurants/" + url.PathEscape(g.RestaurantID) + "/graph",
		body:       g,
		idempotent: true,
	})
}

// Ping calls the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, request{method: http.MethodGet, path: "/healthz", idempotent: true})
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

// =============================================================================
// Transport
// =============================================================================

type request struct {
	method     string
	path       string
	body       any
	idempotent bool
	// deletes marks a delete. A retry that finds the target gone means an
	// earlier attempt landed and its response was lost.
	deletes bool
	decode  func(io.Reader) error
}

func (s *Store) do(ctx context.Context, r request) error {
	var payload []byte
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "encode request")
		}
		payload = data
	}
	attempts := 1
	if r.idempotent {
		attempts = s.attempts
	}
	attempt := 0
	return httputil.Retry(ctx, attempts, s.delay, func() error {
		attempt++
		err := s.once(ctx, r, payload)
		if r.deletes && attempt > 1 && errors.IsNotFound(err) {
			s.logger.Debug("delete already applied", "path", r.path, "attempt", attempt)
			return nil
		}
		return err
	})
}

func (s *Store) once(ctx context.Context, r request, payload []byte) error {
	hooks := observability.HTTP()
	host := s.base.Host

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, s.base.String()+r.path, body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	hooks.OnRequest(ctx, r.method, host, r.path)
	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, r.method, host, r.path, err)
		return transportError(ctx, r, err)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, r.method, host, r.path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 300 {
		e := httputil.DecodeError(resp)
		s.logger.Debug("remote store error", "method", r.method, "path", r.path, "status", resp.StatusCode, "code", e.Code)
		if httputil.Transient(resp.StatusCode) {
			return &httputil.RetryableError{Err: e}
		}
		return e
	}
	if r.decode == nil {
		return nil
	}
	if err := r.decode(resp.Body); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "decode %s response", r.path)
	}
	return nil
}

// transportError classifies a failed round trip. Context ends are returned
// as is; timeouts and connection failures get codes, the latter retryable.
func transportError(ctx context.Context, r request, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeTimeout, err, "%s %s timed out", r.method, r.path)}
	}
	return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", r.method, r.path)}
}

func decodeJSON(v any) func(io.Reader) error {
	return func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(v); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		return nil
	}
}

func nodePath(id string) string { return "/nodes/" + url.PathEscape(id) }

var (
	_ store.Store    = (*Store)(nil)
	_ store.Importer = (*Store)(nil)
	_ store.Pinger   = (*Store)(nil)
)

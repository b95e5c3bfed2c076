package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/httputil"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

func newClient(t *testing.T, h http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	s, err := New(Options{
		Endpoint:   srv.URL,
		Token:      "secret",
		HTTPClient: srv.Client(),
		Delay:      time.Millisecond,
		Logger:     log.New(io.Discard),
	})
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	_, err := New(Options{Endpoint: "ftp://example.com"})
	assert.Error(t, err)
	_, err = New(Options{})
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	s := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/restaurants/r1/graph", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = kitchen.WriteGraph(&kitchen.Graph{
			RestaurantID: "r1",
			Nodes: []kitchen.Node{{
				ID: "n1", RestaurantID: "r1", EntityType: kitchen.EntityDish, EntityID: "1",
				X: kitchen.Float(3), Y: kitchen.Float(4),
			}},
		}, w)
	})

	g, err := s.Graph(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, 3.0, *g.Nodes[0].X)
}

func TestMoveNodeSendsBody(t *testing.T) {
	s := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/nodes/n1/move", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in kitchen.MoveInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		n := kitchen.Node{ID: "n1", RestaurantID: "r1", EntityType: kitchen.EntityDish, EntityID: "1"}
		in.Apply(&n)
		httputil.WriteJSON(w, http.StatusOK, n)
	})

	n, err := s.MoveNode(context.Background(), "n1", kitchen.MoveInput{XPosition: kitchen.Float(0.75), YPosition: kitchen.Float(0.25)})
	require.NoError(t, err)
	assert.Equal(t, 0.75, *n.XPosition)
	assert.Nil(t, n.X)
}

func TestErrorEnvelopeIsDecoded(t *testing.T) {
	tests := []struct {
		name   string
		err    *errors.Error
		code   errors.Code
		fields []string
	}{
		{"validation", errors.Validation("x", "y"), errors.ErrCodeValidation, []string{"x", "y"}},
		{"not found", errors.New(errors.ErrCodeNodeNotFound, "node n1 not found"), errors.ErrCodeNodeNotFound, nil},
		{"unauthorized", errors.New(errors.ErrCodeUnauthorized, "missing token"), errors.ErrCodeUnauthorized, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				httputil.WriteError(w, tt.err)
			})
			_, err := s.ToggleNode(context.Background(), "n1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
			assert.Equal(t, tt.fields, errors.FieldsOf(err))
		})
	}
}

func TestIdempotentRequestsRetry(t *testing.T) {
	var calls atomic.Int32
	s := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, s.DeleteNode(context.Background(), "n1"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriedDeleteOfGoneTargetSucceeds(t *testing.T) {
	tests := []struct {
		name string
		gone *errors.Error
		del  func(*Store) error
	}{
		{"node", errors.New(errors.ErrCodeNodeNotFound, "node n1 not found"), func(s *Store) error {
			return s.DeleteNode(context.Background(), "n1")
		}},
		{"edge", errors.New(errors.ErrCodeEdgeNotFound, "edge e1 not found"), func(s *Store) error {
			return s.DeleteEdge(context.Background(), "e1")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			s := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				// The first delete lands but its response is lost.
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				httputil.WriteError(w, tt.gone)
			})

			require.NoError(t, tt.del(s))
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestDeleteOfMissingTargetIsNotFound(t *testing.T) {
	var calls atomic.Int32
	s := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		httputil.WriteError(w, errors.New(errors.ErrCodeNodeNotFound, "node n9 not found"))
	})

	err := s.DeleteNode(context.Background(), "n9")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestTogglesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	s := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := s.ToggleNode(context.Background(), "n1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNetwork))
	assert.Equal(t, int32(1), calls.Load())
}

func TestValidationFailsLocally(t *testing.T) {
	var calls atomic.Int32
	s := newClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	_, err := s.CreateEdge(context.Background(), kitchen.EdgeInput{RestaurantID: "r1", SourceNodeID: "n1", TargetNodeID: "n1"})
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
	assert.Zero(t, calls.Load())
}

func TestConnectionRefusedIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := New(Options{Endpoint: url, Attempts: 2, Delay: time.Millisecond, Logger: log.New(io.Discard)})
	require.NoError(t, err)

	err = s.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNetwork), "got %v", err)
}

func TestCancelledContextPassesThrough(t *testing.T) {
	s := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Graph(ctx, "r1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

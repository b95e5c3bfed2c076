package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/httputil"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/mutation"
	"github.com/matzehuels/kitchenboard/pkg/pipeline"
	"github.com/matzehuels/kitchenboard/pkg/store"
	"github.com/matzehuels/kitchenboard/pkg/visibility"
)

// =============================================================================
// Health
// =============================================================================

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(store.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// =============================================================================
// Graph
// =============================================================================

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Graph(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := kitchen.WriteGraph(g, w); err != nil {
		s.logger.Debug("write graph", "err", err)
	}
}

func (s *Server) importGraph(w http.ResponseWriter, r *http.Request) {
	imp, ok := s.store.(store.Importer)
	if !ok {
		s.fail(w, r, errors.New(errors.ErrCodeUnsupported, "store does not support import"))
		return
	}
	g, err := kitchen.ReadGraph(http.MaxBytesReader(w, r.Body, maxGraphBytes))
	if err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid graph"))
		return
	}
	rid := chi.URLParam(r, "restaurantID")
	if g.RestaurantID == "" {
		g.RestaurantID = rid
	}
	if g.RestaurantID != rid {
		s.fail(w, r, errors.Validation("restaurant_id"))
		return
	}
	if err := imp.Import(r.Context(), g); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("imported graph", "restaurant", rid, "nodes", len(g.Nodes), "edges", len(g.Edges))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Nodes
// =============================================================================

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var in kitchen.NodeInput
	if !s.decode(w, r, &in) {
		return
	}
	if !bindRestaurant(&in.RestaurantID, chi.URLParam(r, "restaurantID")) {
		s.fail(w, r, errors.Validation("restaurant_id"))
		return
	}
	n, err := s.store.CreateNode(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("created node", "node", n.ID, "restaurant", n.RestaurantID, "entity", string(n.EntityType)+"#"+n.EntityID)
	httputil.WriteJSON(w, http.StatusCreated, n)
}

func (s *Server) moveNode(w http.ResponseWriter, r *http.Request) {
	var in kitchen.MoveInput
	if !s.decode(w, r, &in) {
		return
	}
	n, err := s.store.MoveNode(r.Context(), chi.URLParam(r, "nodeID"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Debug("moved node", "node", n.ID)
	httputil.WriteJSON(w, http.StatusOK, n)
}

func (s *Server) toggleNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.ToggleNode(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("toggled node", "node", n.ID, "available", n.Available)
	httputil.WriteJSON(w, http.StatusOK, n)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "nodeID")
	if err := s.store.DeleteNode(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("deleted node", "node", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Edges
// =============================================================================

func (s *Server) createEdge(w http.ResponseWriter, r *http.Request) {
	var in kitchen.EdgeInput
	if !s.decode(w, r, &in) {
		return
	}
	if !bindRestaurant(&in.RestaurantID, chi.URLParam(r, "restaurantID")) {
		s.fail(w, r, errors.Validation("restaurant_id"))
		return
	}
	e, err := s.store.CreateEdge(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("created edge", "edge", e.ID, "source", e.SourceNodeID, "target", e.TargetNodeID)
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (s *Server) deleteEdge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "edgeID")
	if err := s.store.DeleteEdge(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("deleted edge", "edge", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Render
// =============================================================================

// render draws the restaurant's board. Query parameters: width, height,
// scale, detailed, availability, category, types (comma separated) and q.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "unsupported format %q", format))
		return
	}
	opts, filter, err := renderQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opts.Formats = []string{format}

	facade := mutation.NewFacade(s.store, nil, s.logger)
	b := board.New(facade, board.Options{
		RestaurantID: chi.URLParam(r, "restaurantID"),
		Layout:       s.layout,
		Filter:       &filter,
		Logger:       s.logger,
	})
	if err := b.Load(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.runner.Execute(r.Context(), b, opts)
	if err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format))
		return
	}

	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	w.Header().Set("ETag", strconv.Quote(res.SceneHash))
	if res.CacheInfo.RenderHit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[format])
}

func renderQuery(r *http.Request) (pipeline.Options, visibility.Filter, error) {
	q := r.URL.Query()
	var opts pipeline.Options
	filter := visibility.DefaultFilter()

	num := func(key string, dst *float64) error {
		v := q.Get(key)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return errors.Validation(key)
		}
		*dst = f
		return nil
	}
	for key, dst := range map[string]*float64{"width": &opts.Width, "height": &opts.Height, "scale": &opts.Scale} {
		if err := num(key, dst); err != nil {
			return opts, filter, err
		}
	}
	if v := q.Get("detailed"); v != "" {
		d, err := strconv.ParseBool(v)
		if err != nil {
			return opts, filter, errors.Validation("detailed")
		}
		opts.Detailed = d
	}

	a, err := visibility.ParseAvailability(q.Get("availability"))
	if err != nil {
		return opts, filter, errors.Validation("availability")
	}
	filter.Availability = a
	filter.CategoryID = q.Get("category")
	filter.Search = q.Get("q")
	if v := q.Get("types"); v != "" {
		filter.EntityTypes = map[kitchen.EntityType]bool{}
		for _, name := range strings.Split(v, ",") {
			t, err := kitchen.ParseEntityType(strings.TrimSpace(name))
			if err != nil {
				return opts, filter, errors.Validation("types")
			}
			filter.EntityTypes[t] = true
		}
	}
	return opts, filter, nil
}

// =============================================================================
// Helpers
// =============================================================================

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		if err == io.EOF {
			msg = "empty body"
		}
		s.fail(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", msg))
		return false
	}
	return true
}

// bindRestaurant fills an empty body restaurant id from the path and
// reports whether the two agree.
func bindRestaurant(body *string, path string) bool {
	if *body == "" {
		*body = path
	}
	return *body == path
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" || httputil.StatusFor(code) >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	httputil.WriteError(w, err)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, errors.New(errors.ErrCodeNotFound, "no route for %s", r.URL.Path))
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorBody{
		Error: httputil.ErrorDetail{Code: errors.ErrCodeInvalidInput, Message: fmt.Sprintf("%s not allowed", r.Method)},
	})
}

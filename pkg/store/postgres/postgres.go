// Package postgres is a Graph Store backed by PostgreSQL.
//
// It talks to the database through database/sql with the pgx driver
// registered under the name "pgx", so any *sql.DB can be injected (tests
// use sqlmock). Call Migrate once to create the schema.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
	"github.com/matzehuels/kitchenboard/pkg/store"
)

// DriverName is the database/sql driver used by Open.
const DriverName = "pgx"

// PostgreSQL error codes that map to validation failures.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

const nodeColumns = "id, restaurant_id, category_id, entity_type, entity_id, display_name, available, " +
	"x, y, x_position, y_position, metadata, created_at, updated_at, deleted_at"

const edgeColumns = "id, restaurant_id, source_node_id, target_node_id, label, created_at, updated_at"

const categoryColumns = "id, restaurant_id, name, description, display_order, color, created_at, updated_at"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id            TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		name          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		display_order INTEGER NOT NULL DEFAULT 0,
		color         TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS nodes (
		id            TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		category_id   TEXT,
		entity_type   TEXT NOT NULL,
		entity_id     TEXT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		available     BOOLEAN NOT NULL DEFAULT TRUE,
		x             DOUBLE PRECISION,
		y             DOUBLE PRECISION,
		x_position    DOUBLE PRECISION,
		y_position    DOUBLE PRECISION,
		metadata      JSONB,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL,
		deleted_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS nodes_restaurant_idx ON nodes (restaurant_id)`,
	`CREATE TABLE IF NOT EXISTS edges (
		id             TEXT PRIMARY KEY,
		restaurant_id  TEXT NOT NULL,
		source_node_id TEXT NOT NULL REFERENCES nodes (id),
		target_node_id TEXT NOT NULL REFERENCES nodes (id),
		label          TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS edges_restaurant_idx ON edges (restaurant_id)`,
}

// Store persists graphs in PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *log.Logger
	newID  func() string
}

// Open connects to dsn with the pgx driver and pings the server.
func Open(ctx context.Context, dsn string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to postgres")
	}
	return New(db, logger), nil
}

// New wraps an existing database handle.
func New(db *sql.DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{db: db, logger: logger, newID: uuid.NewString}
}

// Migrate creates tables and indexes that do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.logger.Debug("postgres schema ready", "statements", len(schema))
	return nil
}

// Graph loads every category, node and edge of the restaurant.
func (s *Store) Graph(ctx context.Context, restaurantID string) (*kitchen.Graph, error) {
	if err := errors.ValidateID("restaurant_id", restaurantID); err != nil {
		return nil, err
	}
	g := &kitchen.Graph{
		RestaurantID: restaurantID,
		Categories:   []kitchen.Category{},
		Nodes:        []kitchen.Node{},
		Edges:        []kitchen.Edge{},
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE restaurant_id = $1 ORDER BY display_order, id", restaurantID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	for rows.Next() {
		var c kitchen.Category
		if err := rows.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.Description, &c.DisplayOrder, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan category: %w", err)
		}
		g.Categories = append(g.Categories, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE restaurant_id = $1 ORDER BY created_at, id", restaurantID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		g.Nodes = append(g.Nodes, *n)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE restaurant_id = $1 ORDER BY created_at, id", restaurantID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	for rows.Next() {
		var e kitchen.Edge
		if err := rows.Scan(&e.ID, &e.RestaurantID, &e.SourceNodeID, &e.TargetNodeID, &e.Label, &e.CreatedAt, &e.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		g.Edges = append(g.Edges, e)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	return g, nil
}

// CreateNode inserts a validated node.
func (s *Store) CreateNode(ctx context.Context, in kitchen.NodeInput) (*kitchen.Node, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	cat, err := s.category(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := store.CheckCategory(in, cat); err != nil {
		return nil, err
	}
	n := in.Node()
	n.ID = s.newID()
	n.CreatedAt = store.Now()
	n.UpdatedAt = n.CreatedAt

	meta, err := encodeMetadata(n.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO nodes ("+nodeColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULL)",
		n.ID, n.RestaurantID, nullString(n.CategoryID), string(n.EntityType), n.EntityID, n.DisplayName, n.Available,
		nullFloat(n.X), nullFloat(n.Y), nullFloat(n.XPosition), nullFloat(n.YPosition), meta, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "insert node")
	}
	return &n, nil
}

// category returns nil when no category has the id.
func (s *Store) category(ctx context.Context, id string) (*kitchen.Category, error) {
	c := kitchen.Category{ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT restaurant_id FROM categories WHERE id = $1", id).Scan(&c.RestaurantID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "load category")
	}
	return &c, nil
}

// MoveNode writes the supplied coordinate pairs.
func (s *Store) MoveNode(ctx context.Context, nodeID string, in kitchen.MoveInput) (*kitchen.Node, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var (
		sets []string
		args []any
	)
	set := func(col string, v *float64) {
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.X != nil && in.Y != nil {
		set("x", in.X)
		set("y", in.Y)
	}
	if in.XPosition != nil && in.YPosition != nil {
		set("x_position", in.XPosition)
		set("y_position", in.YPosition)
	}
	args = append(args, store.Now(), nodeID)
	query := fmt.Sprintf("UPDATE nodes SET %s, updated_at = $%d WHERE id = $%d AND deleted_at IS NULL RETURNING %s",
		strings.Join(sets, ", "), len(args)-1, len(args), nodeColumns)
	return s.updateNode(ctx, nodeID, query, args...)
}

// ToggleNode flips availability.
func (s *Store) ToggleNode(ctx context.Context, nodeID string) (*kitchen.Node, error) {
	return s.updateNode(ctx, nodeID,
		"UPDATE nodes SET available = NOT available, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL RETURNING "+nodeColumns,
		store.Now(), nodeID)
}

func (s *Store) updateNode(ctx context.Context, nodeID, query string, args ...any) (*kitchen.Node, error) {
	n, err := scanNode(s.db.QueryRowContext(ctx, query, args...))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, store.NodeNotFound(nodeID)
	}
	if err != nil {
		return nil, mapError(err, "update node")
	}
	return n, nil
}

// DeleteNode soft-deletes a node. Edges are left in place.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) error {
	now := store.Now()
	res, err := s.db.ExecContext(ctx,
		"UPDATE nodes SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL", now, nodeID)
	if err != nil {
		return mapError(err, "delete node")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.NodeNotFound(nodeID)
	}
	return nil
}

// CreateEdge validates the endpoints and inserts the edge.
func (s *Store) CreateEdge(ctx context.Context, in kitchen.EdgeInput) (*kitchen.Edge, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	src, err := s.endpoint(ctx, in.SourceNodeID)
	if err != nil {
		return nil, err
	}
	dst, err := s.endpoint(ctx, in.TargetNodeID)
	if err != nil {
		return nil, err
	}
	if err := store.CheckEdge(in, src, dst); err != nil {
		return nil, err
	}

	e := in.Edge()
	e.ID = s.newID()
	e.CreatedAt = store.Now()
	e.UpdatedAt = e.CreatedAt
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO edges ("+edgeColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		e.ID, e.RestaurantID, e.SourceNodeID, e.TargetNodeID, e.Label, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "insert edge")
	}
	return &e, nil
}

// endpoint loads the identity of a node for edge validation. A missing node
// yields nil without error.
func (s *Store) endpoint(ctx context.Context, id string) (*kitchen.Node, error) {
	var (
		n       kitchen.Node
		deleted sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, restaurant_id, deleted_at FROM nodes WHERE id = $1", id).
		Scan(&n.ID, &n.RestaurantID, &deleted)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load endpoint %s: %w", id, err)
	}
	if deleted.Valid {
		t := deleted.Time
		n.DeletedAt = &t
	}
	return &n, nil
}

// DeleteEdge removes an edge.
func (s *Store) DeleteEdge(ctx context.Context, edgeID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM edges WHERE id = $1", edgeID)
	if err != nil {
		return mapError(err, "delete edge")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.EdgeNotFound(edgeID)
	}
	return nil
}

// Import replaces the restaurant's data in one transaction.
func (s *Store) Import(ctx context.Context, g *kitchen.Graph) (err error) {
	if g == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil graph")
	}
	if err := errors.ValidateID("restaurant_id", g.RestaurantID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rid := g.RestaurantID
	for _, table := range []string{"edges", "nodes", "categories"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE restaurant_id = $1", rid); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	now := store.Now()
	for _, c := range g.Categories {
		created, updated := stamp(c.CreatedAt, c.UpdatedAt, now)
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO categories ("+categoryColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
			c.ID, rid, c.Name, c.Description, c.DisplayOrder, c.Color, created, updated); err != nil {
			return mapError(err, "import category")
		}
	}
	for _, n := range g.Nodes {
		meta, merr := encodeMetadata(n.Metadata)
		if merr != nil {
			return merr
		}
		created, updated := stamp(n.CreatedAt, n.UpdatedAt, now)
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO nodes ("+nodeColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)",
			n.ID, rid, nullString(n.CategoryID), string(n.EntityType), n.EntityID, n.DisplayName, n.Available,
			nullFloat(n.X), nullFloat(n.Y), nullFloat(n.XPosition), nullFloat(n.YPosition), meta,
			created, updated, nullTime(n.DeletedAt)); err != nil {
			return mapError(err, "import node")
		}
	}
	for _, e := range g.Edges {
		created, updated := stamp(e.CreatedAt, e.UpdatedAt, now)
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO edges ("+edgeColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
			e.ID, rid, e.SourceNodeID, e.TargetNodeID, e.Label, created, updated); err != nil {
			return mapError(err, "import edge")
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	s.logger.Info("imported graph", "restaurant", rid, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// Helpers
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*kitchen.Node, error) {
	var (
		n          kitchen.Node
		category   sql.NullString
		entityType string
		x, y       sql.NullFloat64
		xp, yp     sql.NullFloat64
		meta       []byte
		deleted    sql.NullTime
	)
	err := row.Scan(&n.ID, &n.RestaurantID, &category, &entityType, &n.EntityID, &n.DisplayName, &n.Available,
		&x, &y, &xp, &yp, &meta, &n.CreatedAt, &n.UpdatedAt, &deleted)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan node: %w", err)
	}
	n.CategoryID = category.String
	n.EntityType = kitchen.EntityType(entityType)
	n.X, n.Y = floatPtr(x), floatPtr(y)
	n.XPosition, n.YPosition = floatPtr(xp), floatPtr(yp)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", n.ID, err)
		}
	}
	if deleted.Valid {
		t := deleted.Time
		n.DeletedAt = &t
	}
	return &n, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// encodeMetadata returns the JSONB argument for m, or SQL NULL when empty.
func encodeMetadata(m kitchen.Metadata) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Validation("metadata")
	}
	return data, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return kitchen.Float(v.Float64)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func stamp(created, updated, now time.Time) (time.Time, time.Time) {
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = created
	}
	return created, updated
}

// mapError turns constraint violations into validation errors.
func mapError(err error, op string) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return errors.Validation("source_node_id", "target_node_id")
		case pgUniqueViolation:
			return errors.Validation("id")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Importer = (*Store)(nil)
	_ store.Pinger   = (*Store)(nil)
)

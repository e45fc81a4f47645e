package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DefaultLimit bounds List when no limit is given.
const DefaultLimit = 100

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Neo4jRepo is a generic Neo4j-backed repository over nodes with one label.
type Neo4jRepo[T any, ID comparable] struct {
	driver     neo4j.DriverWithContext
	database   string
	label      string
	idKey      string
	toMap      func(T) map[string]any
	fromRecord func(*neo4j.Record) (T, error)
	newSession func(ctx context.Context) runner // for testing
}

// Neo4jOption configures a Neo4jRepo.
type Neo4jOption[T any, ID comparable] func(*Neo4jRepo[T, ID])

// WithIDKey sets the property name used as the ID (default "id").
func WithIDKey[T any, ID comparable](key string) Neo4jOption[T, ID] {
	return func(r *Neo4jRepo[T, ID]) { r.idKey = key }
}

// WithDatabase selects the database sessions open against.
func WithDatabase[T any, ID comparable](name string) Neo4jOption[T, ID] {
	return func(r *Neo4jRepo[T, ID]) { r.database = name }
}

// NewNeo4jRepo creates a new Neo4j-backed repository. The label and ID key
// are interpolated into Cypher and must be plain identifiers.
func NewNeo4jRepo[T any, ID comparable](
	driver neo4j.DriverWithContext,
	label string,
	toMap func(T) map[string]any,
	fromRecord func(*neo4j.Record) (T, error),
	opts ...Neo4jOption[T, ID],
) (*Neo4jRepo[T, ID], error) {
	r := &Neo4jRepo[T, ID]{
		driver:     driver,
		label:      label,
		idKey:      "id",
		toMap:      toMap,
		fromRecord: fromRecord,
	}
	for _, o := range opts {
		o(r)
	}
	if !validKey(r.label) {
		return nil, fmt.Errorf("%w: label %q", ErrInvalidKey, r.label)
	}
	if !validKey(r.idKey) {
		return nil, fmt.Errorf("%w: id key %q", ErrInvalidKey, r.idKey)
	}
	return r, nil
}

// Compile-time interface check.
var _ Repository[any, string] = (*Neo4jRepo[any, string])(nil)

// neo4jSessionAdapter adapts neo4j.SessionWithContext to the runner interface.
type neo4jSessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *neo4jSessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *neo4jSessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (r *Neo4jRepo[T, ID]) session(ctx context.Context) runner {
	if r.newSession != nil {
		return r.newSession(ctx)
	}
	return &neo4jSessionAdapter{sess: r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})}
}

func (r *Neo4jRepo[T, ID]) Get(ctx context.Context, id ID) (T, error) {
	var zero T
	sess := r.session(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) RETURN n", r.label, r.idKey)
	result, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return zero, err
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%s %v: %w", r.label, id, ErrNotFound)
	}
	return r.fromRecord(result.Record())
}

// listCypher renders the MATCH for opts and its parameters.
func (r *Neo4jRepo[T, ID]) listCypher(opts ListOpts) (string, map[string]any, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := map[string]any{"offset": max(0, opts.Offset), "limit": limit}

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (n:%s)", r.label)
	for i, c := range opts.Where {
		if !validKey(c.Key) {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidKey, c.Key)
		}
		switch c.Op {
		case OpEq, OpIn, OpGte, OpLte:
		default:
			return "", nil, fmt.Errorf("repo: unsupported operator %q", c.Op)
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		p := fmt.Sprintf("w%d", i)
		fmt.Fprintf(&b, "n.%s %s $%s", c.Key, c.Op, p)
		params[p] = c.Value
	}

	order := opts.OrderBy
	if order == "" {
		order = r.idKey
	}
	if !validKey(order) {
		return "", nil, fmt.Errorf("%w: order %q", ErrInvalidKey, order)
	}
	fmt.Fprintf(&b, " RETURN n ORDER BY n.%s", order)
	if opts.Desc {
		b.WriteString(" DESC")
	}
	b.WriteString(" SKIP $offset LIMIT $limit")
	return b.String(), params, nil
}

func (r *Neo4jRepo[T, ID]) List(ctx context.Context, opts ListOpts) ([]T, error) {
	cypher, params, err := r.listCypher(opts)
	if err != nil {
		return nil, err
	}

	sess := r.session(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	var items []T
	for result.Next(ctx) {
		item, err := r.fromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, result.Err()
}

// Upsert creates the node or overwrites the properties toMap returns.
func (r *Neo4jRepo[T, ID]) Upsert(ctx context.Context, entity T) (T, error) {
	var zero T
	props := r.toMap(entity)
	id, ok := props[r.idKey]
	if !ok {
		return zero, fmt.Errorf("repo: %s has no %q property", r.label, r.idKey)
	}

	sess := r.session(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MERGE (n:%s {%s: $id}) SET n += $props RETURN n", r.label, r.idKey)
	result, err := sess.Run(ctx, cypher, map[string]any{"id": id, "props": props})
	if err != nil {
		return zero, err
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("repo: upsert %s %v returned nothing", r.label, id)
	}
	return r.fromRecord(result.Record())
}

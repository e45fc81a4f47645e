// Package repo defines the generic Repository interface and list options.
package repo

import (
	"context"
	"errors"
	"regexp"
)

// ErrNotFound is returned by Get when no entity has the requested ID.
var ErrNotFound = errors.New("repo: not found")

// ErrInvalidKey is returned when a property name is not a plain identifier.
var ErrInvalidKey = errors.New("repo: invalid property key")

// Repository is a generic read/upsert interface.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Upsert(ctx context.Context, entity T) (T, error)
}

// Op is a comparison in a list condition.
type Op string

const (
	OpEq  Op = "="
	OpIn  Op = "IN"
	OpGte Op = ">="
	OpLte Op = "<="
)

// Cond constrains one property.
type Cond struct {
	Key   string
	Op    Op
	Value any
}

// Eq, In, Gte and Lte build conditions.
func Eq(key string, v any) Cond  { return Cond{Key: key, Op: OpEq, Value: v} }
func In(key string, v any) Cond  { return Cond{Key: key, Op: OpIn, Value: v} }
func Gte(key string, v any) Cond { return Cond{Key: key, Op: OpGte, Value: v} }
func Lte(key string, v any) Cond { return Cond{Key: key, Op: OpLte, Value: v} }

// ListOpts controls pagination and filtering for List operations. Where
// conditions are ANDed. OrderBy defaults to the ID property so pages are
// stable.
type ListOpts struct {
	Offset  int
	Limit   int
	Where   []Cond
	OrderBy string
	Desc    bool
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validKey(k string) bool { return identRe.MatchString(k) }

package source

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"github.com/WessleyAI/wessley-marketplace/pkg/fn"
	"github.com/WessleyAI/wessley-marketplace/pkg/repo"
)

// ListingLabel is the node label listings are stored under.
const ListingLabel = "Listing"

// DefaultGraphPageSize is the number of nodes read per List call.
const DefaultGraphPageSize = 100

// Neo4jSource loads listings stored as Listing nodes. Server-side filters
// map to property conditions; the random flag is not supported and results
// are always ordered by id.
type Neo4jSource struct {
	repo     repo.Repository[domain.RawVehicle, string]
	pageSize int
	maxPages int
}

// NewNeo4jSource creates a source over driver. database may be empty for
// the server default.
func NewNeo4jSource(driver neo4j.DriverWithContext, database string) (*Neo4jSource, error) {
	r, err := repo.NewNeo4jRepo[domain.RawVehicle, string](driver, ListingLabel, listingProps, listingFromRecord,
		repo.WithDatabase[domain.RawVehicle, string](database))
	if err != nil {
		return nil, err
	}
	return newNeo4jSource(r), nil
}

func newNeo4jSource(r repo.Repository[domain.RawVehicle, string]) *Neo4jSource {
	return &Neo4jSource{repo: r, pageSize: DefaultGraphPageSize, maxPages: DefaultMaxPages}
}

// Load implements Loader. A zero Page reads every page up to the cap;
// a positive Page reads only that page.
func (s *Neo4jSource) Load(ctx context.Context, q Query) ([]domain.RawVehicle, error) {
	opts := listOpts(q)
	opts.Limit = s.pageSize
	if q.Page > 0 {
		opts.Offset = (q.Page - 1) * s.pageSize
		vs, err := s.repo.List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("source: neo4j page %d: %w", q.Page, err)
		}
		return vs, nil
	}

	var all []domain.RawVehicle
	for n := 0; n < s.maxPages; n++ {
		opts.Offset = n * s.pageSize
		vs, err := s.repo.List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("source: neo4j page %d: %w", n+1, err)
		}
		all = append(all, vs...)
		if len(vs) < s.pageSize {
			break
		}
	}
	return all, nil
}

// Seed upserts vs and returns how many were written.
func (s *Neo4jSource) Seed(ctx context.Context, vs []domain.Vehicle) (int, error) {
	for i, v := range vs {
		if _, err := s.repo.Upsert(ctx, v.Raw()); err != nil {
			return i, fmt.Errorf("source: seed %s: %w", v.ID, err)
		}
	}
	return len(vs), nil
}

func listOpts(q Query) repo.ListOpts {
	var w []repo.Cond
	if q.Category != "" {
		w = append(w, repo.Eq("category", q.Category))
	}
	if q.MinPrice != nil {
		w = append(w, repo.Gte("price", *q.MinPrice))
	}
	if q.MaxPrice != nil {
		w = append(w, repo.Lte("price", *q.MaxPrice))
	}
	if q.MinYear != nil {
		w = append(w, repo.Gte("year", int64(*q.MinYear)))
	}
	if q.MaxYear != nil {
		w = append(w, repo.Lte("year", int64(*q.MaxYear)))
	}
	if len(q.Brands) > 0 {
		w = append(w, repo.In("brand", q.Brands))
	}
	if len(q.Conditions) > 0 {
		w = append(w, repo.In("condition", q.Conditions))
	}
	if len(q.Fuels) > 0 {
		w = append(w, repo.In("fuelType", q.Fuels))
	}
	if len(q.Transmissions) > 0 {
		w = append(w, repo.In("transmission", q.Transmissions))
	}
	return repo.ListOpts{Where: w}
}

// listingProps flattens a listing into node properties. Missing values are
// left out; createdAt is stored as Unix milliseconds.
func listingProps(r domain.RawVehicle) map[string]any {
	p := map[string]any{
		"id":          string(r.ID),
		"isFeatured":  r.IsFeatured,
		"negotiable":  r.Negotiable,
		"hasWarranty": r.HasWarranty,
	}
	for k, v := range map[string]string{
		"category":     r.Category,
		"brand":        r.Brand,
		"model":        r.Model,
		"condition":    r.Condition,
		"fuelType":     r.FuelType,
		"transmission": r.Transmission,
		"location":     r.Location,
		"description":  r.Description,
		"sellerName":   r.SellerName,
		"status":       r.Status,
	} {
		if v != "" {
			p[k] = v
		}
	}
	if r.Year != nil && r.Year.Valid {
		p["year"] = int64(r.Year.Value)
	}
	if r.Price != nil && r.Price.Valid {
		p["price"] = r.Price.Value
	}
	if r.Mileage != nil && r.Mileage.Valid {
		p["mileage"] = r.Mileage.Value
	}
	if len(r.Features) > 0 {
		p["features"] = r.Features
	}
	if !r.CreatedAt.IsZero() {
		p["createdAt"] = r.CreatedAt.UnixMilli()
	}
	return p
}

func listingFromRecord(rec *neo4j.Record) (domain.RawVehicle, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return domain.RawVehicle{}, fmt.Errorf("source: listing record: %w", err)
	}
	return listingFromProps(node.Props), nil
}

func listingFromProps(p map[string]any) domain.RawVehicle {
	r := domain.RawVehicle{
		ID:           domain.FlexString(strProp(p, "id")),
		Category:     strProp(p, "category"),
		Brand:        strProp(p, "brand"),
		Model:        strProp(p, "model"),
		Year:         numProp(p, "year"),
		Price:        numProp(p, "price"),
		Mileage:      numProp(p, "mileage"),
		Condition:    strProp(p, "condition"),
		FuelType:     strProp(p, "fuelType"),
		Transmission: strProp(p, "transmission"),
		Location:     strProp(p, "location"),
		IsFeatured:   boolProp(p, "isFeatured"),
		Negotiable:   boolProp(p, "negotiable"),
		HasWarranty:  boolProp(p, "hasWarranty"),
		Description:  strProp(p, "description"),
		SellerName:   strProp(p, "sellerName"),
		Status:       strProp(p, "status"),
	}
	if fs, ok := p["features"].([]any); ok {
		r.Features = fn.FilterMap(fs, func(f any) (string, bool) {
			s, ok := f.(string)
			return s, ok
		})
	}
	if ms, ok := p["createdAt"].(int64); ok {
		r.CreatedAt = domain.FlexTime{Time: time.UnixMilli(ms).UTC()}
	}
	return r
}

func strProp(p map[string]any, k string) string {
	s, _ := p[k].(string)
	return s
}

func boolProp(p map[string]any, k string) bool {
	b, _ := p[k].(bool)
	return b
}

func numProp(p map[string]any, k string) *domain.FlexNumber {
	switch v := p[k].(type) {
	case int64:
		return domain.Num(float64(v))
	case float64:
		return domain.Num(v)
	}
	return nil
}

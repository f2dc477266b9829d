// Package graph exposes an entity family as a GraphQL schema.
package graph

import (
	"context"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus"

	apierrors "github.com/ndrohith09/Zerobase/api_gateway/internal/errors"
	"github.com/ndrohith09/Zerobase/api_gateway/internal/schema"
	"github.com/ndrohith09/Zerobase/api_gateway/internal/store"
	"github.com/ndrohith09/Zerobase/pkg/logging"
)

// EntityStore is the persistence the resolvers need.
type EntityStore interface {
	List(ctx context.Context, e *schema.Entity) ([]store.Record, error)
	Get(ctx context.Context, e *schema.Entity, id int64) (*store.Record, error)
	Create(ctx context.Context, e *schema.Entity, input map[string]any) (*store.Record, error)
	Update(ctx context.Context, e *schema.Entity, id int64, input map[string]any) (*store.Record, error)
	Delete(ctx context.Context, e *schema.Entity, id int64) (*store.Record, error)
}

// GraphQLMetrics holds the resolver instruments.
type GraphQLMetrics struct {
	Operations *prometheus.CounterVec   // labels: field, status
	Duration   *prometheus.HistogramVec // labels: field
}

// Resolver implements every root field of a family.
type Resolver struct {
	Store   EntityStore
	Logger  logging.Logger
	Metrics *GraphQLMetrics
}

// NewResolver creates a resolver over st.
func NewResolver(st EntityStore, logger logging.Logger, metrics *GraphQLMetrics) *Resolver {
	return &Resolver{Store: st, Logger: logger, Metrics: metrics}
}

// DoList returns all records of e.
func (r *Resolver) DoList(ctx context.Context, e *schema.Entity) ([]map[string]interface{}, error) {
	records, err := r.Store.List(ctx, e)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, len(records))
	for i := range records {
		out[i] = toObject(e, &records[i])
	}
	return out, nil
}

// DoGet returns the record with the given external id.
func (r *Resolver) DoGet(ctx context.Context, e *schema.Entity, rawID string) (map[string]interface{}, error) {
	id, err := store.ParseID(e, rawID)
	if err != nil {
		return nil, err
	}
	rec, err := r.Store.Get(ctx, e, id)
	if err != nil {
		return nil, err
	}
	return toObject(e, rec), nil
}

// DoCreate inserts a record from GraphQL arguments.
func (r *Resolver) DoCreate(ctx context.Context, e *schema.Entity, args map[string]interface{}) (map[string]interface{}, error) {
	rec, err := r.Store.Create(ctx, e, toInput(e, args))
	if err != nil {
		return nil, err
	}
	r.Logger.WithFields(logging.Fields{"entity": e.Name, "id": rec.ID}).Debug("Record created")
	return toObject(e, rec), nil
}

// DoUpdate applies the supplied arguments to an existing record.
func (r *Resolver) DoUpdate(ctx context.Context, e *schema.Entity, rawID string, args map[string]interface{}) (map[string]interface{}, error) {
	id, err := store.ParseID(e, rawID)
	if err != nil {
		return nil, err
	}
	rec, err := r.Store.Update(ctx, e, id, toInput(e, args))
	if err != nil {
		return nil, err
	}
	r.Logger.WithFields(logging.Fields{"entity": e.Name, "id": rec.ID}).Debug("Record updated")
	return toObject(e, rec), nil
}

// DoDelete removes a record and returns its last values.
func (r *Resolver) DoDelete(ctx context.Context, e *schema.Entity, rawID string) (map[string]interface{}, error) {
	id, err := store.ParseID(e, rawID)
	if err != nil {
		return nil, err
	}
	rec, err := r.Store.Delete(ctx, e, id)
	if err != nil {
		return nil, err
	}
	r.Logger.WithFields(logging.Fields{"entity": e.Name, "id": rec.ID}).Debug("Record deleted")
	return toObject(e, rec), nil
}

// field wraps a root resolver with metrics and error presentation. A failed field
// resolves to null with one error entry; siblings are unaffected.
func (r *Resolver) field(name string, fn func(p graphql.ResolveParams) (interface{}, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		start := time.Now()
		out, err := fn(p)
		r.observe(name, start, err)
		if err != nil {
			ctx := p.Context
			if ctx == nil {
				ctx = context.Background()
			}
			return nil, apierrors.Present(ctx, r.Logger, err)
		}
		return out, nil
	}
}

func (r *Resolver) observe(field string, start time.Time, err error) {
	if r.Metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	if r.Metrics.Operations != nil {
		r.Metrics.Operations.WithLabelValues(field, status).Inc()
	}
	if r.Metrics.Duration != nil {
		r.Metrics.Duration.WithLabelValues(field).Observe(time.Since(start).Seconds())
	}
}

func toObject(e *schema.Entity, rec *store.Record) map[string]interface{} {
	obj := make(map[string]interface{}, len(e.Fields)+1)
	obj["id"] = strconv.FormatInt(rec.ID, 10)
	for _, f := range e.Fields {
		v := rec.Values[f.Name]
		if n, ok := v.(int64); ok && f.Kind == schema.KindInt {
			v = int(n)
		}
		obj[f.GraphQLName()] = v
	}
	return obj
}

func toInput(e *schema.Entity, args map[string]interface{}) map[string]any {
	input := make(map[string]any, len(args))
	for _, f := range e.Fields {
		if v, ok := args[f.GraphQLName()]; ok {
			input[f.Name] = v
		}
	}
	return input
}

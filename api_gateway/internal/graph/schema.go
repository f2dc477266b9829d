package graph

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/ndrohith09/Zerobase/api_gateway/internal/schema"
)

// NewSchema builds the executable schema for fam:
//
//	type E { id: ID!, <field>: String|Int|Decimal }
//	Query:    allE: [E!]          getE(id: ID!): E
//	Mutation: createE(...): E     updateE(id: ID!, ...): E     deleteE(id: ID!): E
func NewSchema(fam *schema.Family, r *Resolver) (graphql.Schema, error) {
	query := graphql.Fields{}
	mutation := graphql.Fields{}

	for i := range fam.Entities {
		e := &fam.Entities[i]
		obj := objectType(e)

		query["all"+e.Name] = &graphql.Field{
			Type:        graphql.NewList(graphql.NewNonNull(obj)),
			Description: fmt.Sprintf("All %s records ordered by id.", e.Name),
			Resolve: r.field("all"+e.Name, func(p graphql.ResolveParams) (interface{}, error) {
				return r.DoList(ctxOf(p), e)
			}),
		}
		query["get"+e.Name] = &graphql.Field{
			Type: obj,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: r.field("get"+e.Name, func(p graphql.ResolveParams) (interface{}, error) {
				return r.DoGet(ctxOf(p), e, idArg(p))
			}),
		}

		mutation["create"+e.Name] = &graphql.Field{
			Type: obj,
			Args: fieldArgs(e, true),
			Resolve: r.field("create"+e.Name, func(p graphql.ResolveParams) (interface{}, error) {
				return r.DoCreate(ctxOf(p), e, p.Args)
			}),
		}

		updateArgs := fieldArgs(e, false)
		updateArgs["id"] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}
		mutation["update"+e.Name] = &graphql.Field{
			Type: obj,
			Args: updateArgs,
			Resolve: r.field("update"+e.Name, func(p graphql.ResolveParams) (interface{}, error) {
				args := make(map[string]interface{}, len(p.Args))
				for k, v := range p.Args {
					if k != "id" {
						args[k] = v
					}
				}
				for _, name := range nullArguments(p) {
					if name != "id" {
						args[name] = nil
					}
				}
				return r.DoUpdate(ctxOf(p), e, idArg(p), args)
			}),
		}

		mutation["delete"+e.Name] = &graphql.Field{
			Type: obj,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: r.field("delete"+e.Name, func(p graphql.ResolveParams) (interface{}, error) {
				return r.DoDelete(ctxOf(p), e, idArg(p))
			}),
		}
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: query}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutation}),
	})
}

func objectType(e *schema.Entity) *graphql.Object {
	fields := graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
	}
	for _, f := range e.Fields {
		fields[f.GraphQLName()] = &graphql.Field{Type: outputType(f)}
	}
	return graphql.NewObject(graphql.ObjectConfig{
		Name:   e.Name,
		Fields: fields,
	})
}

func fieldArgs(e *schema.Entity, create bool) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{}
	for _, f := range e.Fields {
		var t graphql.Input = inputType(f)
		if create && f.IsRequired() {
			t = graphql.NewNonNull(t)
		}
		args[f.GraphQLName()] = &graphql.ArgumentConfig{Type: t}
	}
	return args
}

func outputType(f schema.Field) graphql.Output {
	switch f.Kind {
	case schema.KindInt:
		return graphql.Int
	case schema.KindDecimal:
		return Decimal
	default:
		return graphql.String
	}
}

func inputType(f schema.Field) graphql.Input {
	switch f.Kind {
	case schema.KindInt:
		return graphql.Int
	case schema.KindDecimal:
		return Decimal
	default:
		return graphql.String
	}
}

func idArg(p graphql.ResolveParams) string {
	switch v := p.Args["id"].(type) {
	case string:
		return v
	case int:
		return fmt.Sprint(v)
	}
	return ""
}

func ctxOf(p graphql.ResolveParams) context.Context {
	if p.Context == nil {
		return context.Background()
	}
	return p.Context
}

type variablesKey struct{}

// WithVariables attaches the variables exactly as the client sent them. The executor
// drops null arguments, so updates read this to clear optional fields.
func WithVariables(ctx context.Context, vars map[string]interface{}) context.Context {
	return context.WithValue(ctx, variablesKey{}, vars)
}

// nullArguments names the arguments of the current field bound to a variable the
// client explicitly set to null.
func nullArguments(p graphql.ResolveParams) []string {
	if p.Context == nil || len(p.Info.FieldASTs) == 0 {
		return nil
	}
	vars, _ := p.Context.Value(variablesKey{}).(map[string]interface{})
	if len(vars) == 0 {
		return nil
	}
	var names []string
	for _, arg := range p.Info.FieldASTs[0].Arguments {
		v, ok := arg.Value.(*ast.Variable)
		if !ok || arg.Name == nil || v.Name == nil {
			continue
		}
		if raw, set := vars[v.Name.Value]; set && raw == nil {
			names = append(names, arg.Name.Value)
		}
	}
	return names
}

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/ndrohith09/Zerobase/api_gateway/internal/graph"
	"github.com/ndrohith09/Zerobase/pkg/logging"
	"github.com/ndrohith09/Zerobase/pkg/middleware"
)

const maxBodyBytes = 1 << 20

type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// errorResponse is the body for requests rejected before execution.
type errorResponse struct {
	Errors gqlerror.List `json:"errors"`
	status int
}

func rejected(format string, args ...interface{}) errorResponse {
	return errorResponse{Errors: gqlerror.List{gqlerror.Errorf(format, args...)}}
}

// GraphQLHandler serves one executable schema over GET and POST.
type GraphQLHandler struct {
	schema   graphql.Schema
	logger   logging.Logger
	maxDepth int
}

// NewGraphQLHandler creates a handler. maxDepth <= 0 disables the depth limit.
func NewGraphQLHandler(schema graphql.Schema, logger logging.Logger, maxDepth int) *GraphQLHandler {
	return &GraphQLHandler{schema: schema, logger: logger, maxDepth: maxDepth}
}

// Post handles a single JSON request or a JSON array batch. Each batch entry is
// executed on its own; one failing entry does not affect the others.
func (h *GraphQLHandler) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, rejected("could not read request body"))
			return
		}
		body = bytes.TrimSpace(body)
		if len(body) == 0 {
			c.JSON(http.StatusBadRequest, rejected("request body is empty"))
			return
		}

		if body[0] == '[' {
			var batch []graphQLRequest
			if err := json.Unmarshal(body, &batch); err != nil {
				c.JSON(http.StatusBadRequest, rejected("invalid JSON batch: %v", err))
				return
			}
			if len(batch) == 0 {
				c.JSON(http.StatusBadRequest, rejected("batch contains no operations"))
				return
			}
			results := make([]interface{}, len(batch))
			for i, req := range batch {
				results[i] = h.execute(c, req, false)
			}
			c.JSON(http.StatusOK, results)
			return
		}

		var req graphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, rejected("invalid JSON body: %v", err))
			return
		}
		c.JSON(http.StatusOK, h.execute(c, req, false))
	}
}

// Get handles queries passed as URL parameters. Mutations are refused.
func (h *GraphQLHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := graphQLRequest{
			Query:         c.Query("query"),
			OperationName: c.Query("operationName"),
		}
		if raw := c.Query("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
				c.JSON(http.StatusBadRequest, rejected("variables must be a JSON object: %v", err))
				return
			}
		}
		result := h.execute(c, req, true)
		if resp, ok := result.(errorResponse); ok && resp.status != 0 {
			c.JSON(resp.status, resp)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *GraphQLHandler) execute(c *gin.Context, req graphQLRequest, readOnly bool) interface{} {
	if req.Query == "" {
		return rejected("no query provided")
	}

	// Syntax errors are left to the executor, which reports them with locations.
	if doc, err := parser.ParseQuery(&ast.Source{Input: req.Query}); err == nil {
		op := selectOperation(doc, req.OperationName)
		if readOnly && op != nil && op.Operation != ast.Query {
			resp := rejected("%s operations are not allowed over GET", op.Operation)
			resp.status = http.StatusMethodNotAllowed
			return resp
		}
		if h.maxDepth > 0 && op != nil && !isIntrospectionOperation(op) {
			if depth := operationDepth(doc, op); depth > h.maxDepth {
				middleware.GetContextLogger(c, h.logger).WithFields(logging.Fields{
					"depth":     depth,
					"max_depth": h.maxDepth,
				}).Warn("GraphQL query rejected by depth limit")
				return rejected("query exceeds maximum depth of %d (got %d)", h.maxDepth, depth)
			}
		}
	}

	return graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        graph.WithVariables(c.Request.Context(), req.Variables),
	})
}

// selectOperation mirrors executor rules: the named operation, or the only one.
func selectOperation(doc *ast.QueryDocument, name string) *ast.OperationDefinition {
	if name != "" {
		return doc.Operations.ForName(name)
	}
	if len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return nil
}

// isIntrospectionOperation reports whether every root selection is an introspection field.
func isIntrospectionOperation(op *ast.OperationDefinition) bool {
	if len(op.SelectionSet) == 0 {
		return false
	}
	for _, sel := range op.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok || len(field.Name) < 2 || field.Name[:2] != "__" {
			return false
		}
	}
	return true
}

// operationDepth returns the deepest field selection of op, counted from its root
// fields. Named fragments are expanded; a fragment cycle stops the walk.
func operationDepth(doc *ast.QueryDocument, op *ast.OperationDefinition) int {
	return selectionSetDepth(doc, op.SelectionSet, map[string]bool{})
}

func selectionSetDepth(doc *ast.QueryDocument, set ast.SelectionSet, visiting map[string]bool) int {
	maxDepth := 0
	for _, sel := range set {
		var childDepth int
		switch s := sel.(type) {
		case *ast.Field:
			childDepth = 1
			if s.SelectionSet != nil {
				childDepth += selectionSetDepth(doc, s.SelectionSet, visiting)
			}
		case *ast.InlineFragment:
			childDepth = selectionSetDepth(doc, s.SelectionSet, visiting)
		case *ast.FragmentSpread:
			frag := doc.Fragments.ForName(s.Name)
			if frag == nil || visiting[s.Name] {
				continue
			}
			visiting[s.Name] = true
			childDepth = selectionSetDepth(doc, frag.SelectionSet, visiting)
			delete(visiting, s.Name)
		}
		if childDepth > maxDepth {
			maxDepth = childDepth
		}
	}
	return maxDepth
}

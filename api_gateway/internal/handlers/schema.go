package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndrohith09/Zerobase/api_gateway/internal/schema"
)

type fieldView struct {
	Name     string `json:"name"`
	GraphQL  string `json:"graphql"`
	Kind     string `json:"kind"`
	SQLType  string `json:"sqlType"`
	Required bool   `json:"required"`
}

type entityView struct {
	Name   string      `json:"name"`
	Table  string      `json:"table"`
	Key    string      `json:"key"`
	Fields []fieldView `json:"fields"`
}

// SchemaHandler describes the served family: entities, tables and fields.
func SchemaHandler(fam *schema.Family) gin.HandlerFunc {
	entities := make([]entityView, len(fam.Entities))
	for i, e := range fam.Entities {
		fields := make([]fieldView, len(e.Fields))
		for j, f := range e.Fields {
			fields[j] = fieldView{
				Name:     f.Name,
				GraphQL:  f.GraphQLName(),
				Kind:     string(f.Kind),
				SQLType:  f.SQLType(),
				Required: f.IsRequired(),
			}
		}
		entities[i] = entityView{Name: e.Name, Table: e.Table, Key: string(e.Key), Fields: fields}
	}
	body := gin.H{"family": fam.Name, "entities": entities}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, body)
	}
}

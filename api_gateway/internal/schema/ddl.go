package schema

import (
	"fmt"
	"strings"

	"github.com/ndrohith09/Zerobase/pkg/database"
)

// SQLType is the column type a field is provisioned with.
func (f Field) SQLType() string {
	switch f.Kind {
	case KindInt:
		return "INT"
	case KindDecimal:
		return "DECIMAL"
	default:
		if f.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", f.Length)
		}
		return "VARCHAR"
	}
}

// CreateTable renders the entity's CREATE TABLE IF NOT EXISTS statement.
func (e *Entity) CreateTable() string {
	cols := make([]string, 0, len(e.Fields)+1)
	cols = append(cols, "id "+strings.ToUpper(string(e.Key))+" PRIMARY KEY")
	for _, f := range e.Fields {
		cols = append(cols, f.Name+" "+f.SQLType())
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", e.Table, strings.Join(cols, ", "))
}

// DDL returns one provisioning statement per entity, in declaration order.
func (fam *Family) DDL() []database.DDL {
	out := make([]database.DDL, len(fam.Entities))
	for i := range fam.Entities {
		out[i] = database.DDL{Table: fam.Entities[i].Table, SQL: fam.Entities[i].CreateTable()}
	}
	return out
}

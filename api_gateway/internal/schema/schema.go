// Package schema describes entity families: the tables a process provisions and the
// GraphQL types it serves over them.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the scalar kind of a field.
type Kind string

const (
	KindString  Kind = "string"
	KindInt     Kind = "int"
	KindDecimal Kind = "decimal"
)

// KeyType is the column type of an entity's generated identifier.
type KeyType string

const (
	KeySerial    KeyType = "serial"
	KeyBigSerial KeyType = "bigserial"
)

// Field is one declared column.
type Field struct {
	Name string `yaml:"name" json:"name"`
	Kind Kind   `yaml:"kind" json:"kind"`
	// Length bounds string fields (VARCHAR(n)). Zero means unbounded.
	Length int `yaml:"length,omitempty" json:"length,omitempty"`
	// Required defaults to true when omitted.
	Required *bool `yaml:"required,omitempty" json:"-"`
}

// IsRequired reports whether create must supply the field.
func (f Field) IsRequired() bool {
	return f.Required == nil || *f.Required
}

// GraphQLName is the camelCase name the field is exposed under.
func (f Field) GraphQLName() string {
	return camelCase(f.Name)
}

// Entity is a record type backed by one table.
type Entity struct {
	Name   string  `yaml:"name" json:"name"`
	Table  string  `yaml:"table,omitempty" json:"table"`
	Key    KeyType `yaml:"key,omitempty" json:"key"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Field looks up a field by column name.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Columns returns the declared column names in order, without id.
func (e *Entity) Columns() []string {
	cols := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Family is a named set of entities served together.
type Family struct {
	Name     string   `yaml:"name" json:"name"`
	Entities []Entity `yaml:"entities" json:"entities"`
}

// Entity looks up an entity by name.
func (fam *Family) Entity(name string) (*Entity, bool) {
	for i := range fam.Entities {
		if fam.Entities[i].Name == name {
			return &fam.Entities[i], true
		}
	}
	return nil, false
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Type names the GraphQL schema already uses.
var reservedTypeNames = map[string]bool{
	"Query": true, "Mutation": true, "Subscription": true, "Decimal": true,
	"ID": true, "String": true, "Int": true, "Float": true, "Boolean": true,
}

// Postgres keywords that cannot name an unquoted table or column.
var sqlReserved = func() map[string]bool {
	words := strings.Fields(`
		all analyse analyze and any array as asc asymmetric authorization binary both case cast
		check collate collation column concurrently constraint create cross current_catalog
		current_date current_role current_schema current_time current_timestamp current_user
		default deferrable desc distinct do else end except false fetch for foreign freeze from
		full grant group having ilike in initially inner intersect into is isnull join lateral
		leading left like limit localtime localtimestamp natural not notnull null offset on only
		or order outer overlaps placing primary references returning right select session_user
		similar some symmetric table tablesample then to trailing true union unique user using
		variadic verbose when where window with`)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}()

// normalize fills defaults and validates the family. It is called by every loader.
func (fam *Family) normalize() error {
	if !identPattern.MatchString(fam.Name) {
		return fmt.Errorf("family name %q is not a valid identifier", fam.Name)
	}
	if len(fam.Entities) == 0 {
		return fmt.Errorf("family %s declares no entities", fam.Name)
	}

	names := make(map[string]bool)
	tables := make(map[string]bool)
	for i := range fam.Entities {
		e := &fam.Entities[i]
		if e.Table == "" {
			e.Table = e.Name
		}
		if e.Key == "" {
			e.Key = KeySerial
		}
		if err := e.validate(); err != nil {
			return fmt.Errorf("family %s: %w", fam.Name, err)
		}
		if names[e.Name] {
			return fmt.Errorf("family %s: duplicate entity %s", fam.Name, e.Name)
		}
		// Unquoted identifiers fold to lower case in Postgres.
		table := strings.ToLower(e.Table)
		if tables[table] {
			return fmt.Errorf("family %s: duplicate table %s", fam.Name, e.Table)
		}
		names[e.Name] = true
		tables[table] = true
	}
	return nil
}

func (e *Entity) validate() error {
	if !identPattern.MatchString(e.Name) || strings.HasPrefix(e.Name, "__") {
		return fmt.Errorf("entity name %q is not a valid identifier", e.Name)
	}
	if reservedTypeNames[e.Name] {
		return fmt.Errorf("entity name %s is reserved", e.Name)
	}
	if !identPattern.MatchString(e.Table) {
		return fmt.Errorf("entity %s: table name %q is not a valid identifier", e.Name, e.Table)
	}
	if sqlReserved[strings.ToLower(e.Table)] {
		return fmt.Errorf("entity %s: table name %s is an SQL keyword", e.Name, e.Table)
	}
	if e.Key != KeySerial && e.Key != KeyBigSerial {
		return fmt.Errorf("entity %s: unknown key type %q", e.Name, e.Key)
	}
	if len(e.Fields) == 0 {
		return fmt.Errorf("entity %s declares no fields", e.Name)
	}

	columns := make(map[string]bool)
	exposed := map[string]bool{"id": true}
	for _, f := range e.Fields {
		if !identPattern.MatchString(f.Name) {
			return fmt.Errorf("entity %s: field name %q is not a valid identifier", e.Name, f.Name)
		}
		lower := strings.ToLower(f.Name)
		if lower == "id" {
			return fmt.Errorf("entity %s: field name id is reserved", e.Name)
		}
		if sqlReserved[lower] {
			return fmt.Errorf("entity %s: field name %s is an SQL keyword", e.Name, f.Name)
		}
		switch f.Kind {
		case KindString:
			if f.Length < 0 {
				return fmt.Errorf("entity %s: field %s has negative length", e.Name, f.Name)
			}
		case KindInt, KindDecimal:
			if f.Length != 0 {
				return fmt.Errorf("entity %s: field %s: length applies to string fields only", e.Name, f.Name)
			}
		default:
			return fmt.Errorf("entity %s: field %s has unknown kind %q", e.Name, f.Name, f.Kind)
		}
		if columns[lower] {
			return fmt.Errorf("entity %s: duplicate field %s", e.Name, f.Name)
		}
		if exposed[f.GraphQLName()] {
			return fmt.Errorf("entity %s: field %s collides with another field as %s", e.Name, f.Name, f.GraphQLName())
		}
		columns[lower] = true
		exposed[f.GraphQLName()] = true
	}
	return nil
}

// camelCase turns snake_case column names into GraphQL field names: e_id -> eId.
func camelCase(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(strings.ToLower(p[:1]) + p[1:])
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	if b.Len() == 0 {
		return name
	}
	return b.String()
}

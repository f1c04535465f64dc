// Package query renders parameterized PostgreSQL for listing endpoints.
// Callers name fields by their JSON-facing view names; a Projection resolves
// those names to qualified columns so client input never reaches the SQL text.
package query

import "strings"

// Projection maps view names onto the columns of one aliased table.
type Projection struct {
	from    string
	alias   string
	columns map[string]string
	order   []string
}

// NewProjection starts a projection over schema.table aliased as alias.
func NewProjection(schema, table, alias string) *Projection {
	return &Projection{
		from:    schema + "." + table + " " + alias,
		alias:   alias,
		columns: map[string]string{},
	}
}

// Project exposes column under view. Columns are selected in projection order.
func (p *Projection) Project(column, view string) *Projection {
	qualified := p.alias + "." + column
	p.columns[view] = qualified
	p.order = append(p.order, qualified)
	return p
}

// From returns the FROM target.
func (p *Projection) From() string { return p.from }

// Column resolves a view name. ok is false for names that are not projected.
func (p *Projection) Column(view string) (col string, ok bool) {
	col, ok = p.columns[view]
	return col, ok
}

// Columns returns the select list.
func (p *Projection) Columns() string {
	return strings.Join(p.order, ", ")
}

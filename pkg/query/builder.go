package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term, named by view name.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields reads "a,-b" into ascending a then descending b.
// Empty input returns nil.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	fields := []SortField{}
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// clause renders a predicate, calling bind once per argument to obtain its
// placeholder.
type clause func(bind func(any) string) string

// Builder accumulates predicates and ordering for one Projection. Nil filter
// values are skipped so optional filters can be applied unconditionally.
type Builder struct {
	projection  *Projection
	where       []clause
	sort        []SortField
	defaultSort []SortField
}

// NewBuilder starts a query over projection. defaultSort applies when
// OrderByFields is never given a resolvable field.
func NewBuilder(projection *Projection, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, defaultSort: defaultSort}
}

// OrderByFields replaces the default ordering. Unprojected fields are dropped.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// WhereEquals matches field = value.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	col := b.column(field)
	b.where = append(b.where, func(bind func(any) string) string {
		return col + " = " + bind(value)
	})
	return b
}

// WhereAny matches field against any of values. An empty slice is skipped.
func (b *Builder) WhereAny(field string, values []string) *Builder {
	if len(values) == 0 {
		return b
	}
	col := b.column(field)
	b.where = append(b.where, func(bind func(any) string) string {
		return col + " = ANY(" + bind(values) + ")"
	})
	return b
}

// WhereCompare matches field op value for op in <, <=, >, >=, <>.
// Any other operator panics.
func (b *Builder) WhereCompare(field, op string, value any) *Builder {
	switch op {
	case "<", "<=", ">", ">=", "<>":
	default:
		panic(fmt.Sprintf("query: unsupported operator %q", op))
	}
	if isNil(value) {
		return b
	}
	col := b.column(field)
	b.where = append(b.where, func(bind func(any) string) string {
		return col + " " + op + " " + bind(value)
	})
	return b
}

// WhereSearch matches a case-insensitive substring in any of fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = b.column(f)
	}
	pattern := "%" + *search + "%"

	b.where = append(b.where, func(bind func(any) string) string {
		terms := make([]string, len(cols))
		for i, col := range cols {
			terms[i] = col + " ILIKE " + bind(pattern)
		}
		return "(" + strings.Join(terms, " OR ") + ")"
	})
	return b
}

// BuildCount renders SELECT COUNT(*) with the current predicates.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.render()
	return "SELECT COUNT(*) FROM " + b.projection.From() + where, args
}

// BuildPage renders one page of rows. page is 1-based.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.render()
	sql := "SELECT " + b.projection.Columns() +
		" FROM " + b.projection.From() +
		where +
		b.orderBy() +
		" LIMIT " + strconv.Itoa(pageSize) +
		" OFFSET " + strconv.Itoa((page-1)*pageSize)
	return sql, args
}

// BuildSingle renders a lookup of one row by idField, ignoring other predicates.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	sql := "SELECT " + b.projection.Columns() +
		" FROM " + b.projection.From() +
		" WHERE " + b.column(idField) + " = $1"
	return sql, []any{id}
}

func (b *Builder) render() (string, []any) {
	if len(b.where) == 0 {
		return "", nil
	}

	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	parts := make([]string, len(b.where))
	for i, c := range b.where {
		parts[i] = c(bind)
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func (b *Builder) orderBy() string {
	var terms []string
	for _, fields := range [][]SortField{b.sort, b.defaultSort} {
		for _, f := range fields {
			col, ok := b.projection.Column(f.Field)
			if !ok {
				continue
			}
			if f.Descending {
				col += " DESC"
			} else {
				col += " ASC"
			}
			terms = append(terms, col)
		}
		if len(terms) > 0 {
			break
		}
	}

	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

// column panics on unprojected names: those come from code, not clients.
func (b *Builder) column(field string) string {
	col, ok := b.projection.Column(field)
	if !ok {
		panic(fmt.Sprintf("query: field %q is not projected", field))
	}
	return col
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

package graphql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/erpgraph/erpgraph/internal/connector"
	"github.com/erpgraph/erpgraph/internal/metrics"
	"github.com/erpgraph/erpgraph/internal/model"
)

// maxRootFields bounds the number of top-level fields one document may
// resolve, since each one becomes a query against the ERP database.
const maxRootFields = 20

// errDataSource marks failures inside the ERP database round trip. Their
// detail is logged; clients only see a generic field error.
var errDataSource = errors.New("data source error")

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Response is a GraphQL result. Data is omitted when the document never
// reached execution.
type Response struct {
	Data   *Object       `json:"data,omitempty"`
	Errors gqlerror.List `json:"errors,omitempty"`
}

// resolver binds a root Query field to its entity.
type resolver struct {
	entity *model.Entity
	list   bool
}

// Executor validates and runs GraphQL documents against the ERP database.
type Executor struct {
	schema       *ast.Schema
	conn         connector.Connector
	resolvers    map[string]resolver
	metrics      *metrics.Metrics
	queryTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records field outcomes and execution time on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithQueryTimeout bounds each SQL query. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Executor) { e.queryTimeout = d }
}

// NewExecutor builds the schema for entities and binds it to conn.
func NewExecutor(conn connector.Connector, entities []model.Entity, opts ...Option) (*Executor, error) {
	schema, err := LoadSchema(entities)
	if err != nil {
		return nil, err
	}

	e := &Executor{
		schema:       schema,
		conn:         conn,
		resolvers:    make(map[string]resolver, 2*len(entities)),
		queryTimeout: 30 * time.Second,
	}
	for i := range entities {
		ent := &entities[i]
		e.resolvers[ent.ListField] = resolver{entity: ent, list: true}
		e.resolvers[ent.SingleField] = resolver{entity: ent}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Schema returns the validated schema.
func (e *Executor) Schema() *ast.Schema { return e.schema }

// Execute validates req and resolves its operation. Validation failures come
// back as errors with no data; resolver failures null their field and add an
// error carrying the field's path.
func (e *Executor) Execute(ctx context.Context, req Request) *Response {
	start := time.Now()
	defer func() { e.metrics.ObserveGraphQLDuration(time.Since(start)) }()

	doc, errs := gqlparser.LoadQuery(e.schema, req.Query)
	if len(errs) > 0 {
		return &Response{Errors: errs}
	}

	op, err := selectOperation(doc, req.OperationName)
	if err != nil {
		return &Response{Errors: gqlerror.List{err}}
	}
	if op.Operation != ast.Query {
		return &Response{Errors: gqlerror.List{gqlerror.ErrorPosf(op.Position, "only query operations are supported")}}
	}

	vars, verr := validator.VariableValues(e.schema, op, req.Variables)
	if verr != nil {
		var gerr *gqlerror.Error
		if errors.As(verr, &gerr) {
			return &Response{Errors: gqlerror.List{gerr}}
		}
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("%s", verr.Error())}}
	}

	fields, err := collectFields(op.SelectionSet, "Query", vars)
	if err != nil {
		return &Response{Errors: gqlerror.List{err}}
	}
	if len(fields) > maxRootFields {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("too many root fields: %d (max %d)", len(fields), maxRootFields)}}
	}

	resp := &Response{Data: &Object{}}
	for _, f := range fields {
		key := responseKey(f)

		if f.Name == "__typename" {
			resp.Data.Set(key, "Query")
			continue
		}
		if f.Name == "__schema" || f.Name == "__type" {
			resp.Data.Set(key, nil)
			resp.Errors = append(resp.Errors, fieldError(f, key, "introspection is not supported; fetch the SDL from /graphql/schema"))
			continue
		}

		r, ok := e.resolvers[f.Name]
		if !ok {
			resp.Data.Set(key, nil)
			resp.Errors = append(resp.Errors, fieldError(f, key, "no resolver for field "+f.Name))
			continue
		}

		value, err := e.resolve(ctx, r, f, vars)
		e.metrics.ObserveGraphQLField(f.Name, err == nil)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, errDataSource) {
				slog.Error("graphql field failed", "field", f.Name, "error", err)
				msg = "internal error resolving " + f.Name
			}
			resp.Data.Set(key, nil)
			resp.Errors = append(resp.Errors, fieldError(f, key, msg))
			continue
		}
		resp.Data.Set(key, value)
	}
	return resp
}

func (e *Executor) resolve(ctx context.Context, r resolver, f *ast.Field, vars map[string]interface{}) (interface{}, error) {
	ent := r.entity
	args := f.ArgumentMap(vars)

	sel, gerr := collectFields(f.SelectionSet, ent.TypeName, vars)
	if gerr != nil {
		return nil, gerr
	}
	columns, err := selectedColumns(ent, sel)
	if err != nil {
		return nil, err
	}

	req := connector.SelectRequest{
		Table:   ent.Table,
		Columns: columns,
		OrderBy: ent.Key,
	}

	if r.list {
		for _, name := range ent.Filters {
			v, ok := args[name]
			if !ok || v == nil {
				continue
			}
			field, _ := ent.Field(name)
			val, err := bindArg(field.Type, v)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", name, err)
			}
			req.Where = append(req.Where, connector.Condition{Column: field.Column, Value: val})
		}
		if req.Limit, req.Offset, err = pageArgs(args); err != nil {
			return nil, err
		}
	} else {
		id, err := bindArg("ID", args["id"])
		if err != nil {
			return nil, fmt.Errorf("argument \"id\": %w", err)
		}
		req.Where = []connector.Condition{{Column: ent.Key, Value: id}}
		req.Limit = 1
	}

	rows, err := e.query(ctx, req)
	if err != nil {
		return nil, err
	}

	objects := make([]*Object, 0, len(rows))
	for _, row := range rows {
		obj, err := buildObject(ent, sel, columns, row)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	if r.list {
		return objects, nil
	}
	if len(objects) == 0 {
		return nil, nil
	}
	return objects[0], nil
}

func (e *Executor) query(ctx context.Context, req connector.SelectRequest) ([][]interface{}, error) {
	query, args, err := e.conn.BuildSelect(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: build query: %w", errDataSource, err)
	}

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	rows, err := e.conn.DB().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", errDataSource, req.Table, err)
	}
	defer rows.Close()

	var out [][]interface{}
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", errDataSource, req.Table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", errDataSource, req.Table, err)
	}
	return out, nil
}

// selectOperation picks the operation to run. A document with several
// operations needs operationName.
func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, *gqlerror.Error) {
	if name != "" {
		op := doc.Operations.ForName(name)
		if op == nil {
			return nil, gqlerror.Errorf("unknown operation %q", name)
		}
		return op, nil
	}
	switch len(doc.Operations) {
	case 0:
		return nil, gqlerror.Errorf("document contains no operations")
	case 1:
		return doc.Operations[0], nil
	default:
		return nil, gqlerror.Errorf("operationName is required when the document has several operations")
	}
}

// collectFields flattens fragments and applies @skip/@include, keeping
// selection order. Fields sharing a response key are merged.
func collectFields(set ast.SelectionSet, typeName string, vars map[string]interface{}) ([]*ast.Field, *gqlerror.Error) {
	var out []*ast.Field
	seen := make(map[string]int)

	var walk func(ast.SelectionSet) *gqlerror.Error
	walk = func(set ast.SelectionSet) *gqlerror.Error {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				if !included(s.Directives, vars) {
					continue
				}
				key := responseKey(s)
				if i, ok := seen[key]; ok {
					merged := *out[i]
					merged.SelectionSet = append(append(ast.SelectionSet{}, merged.SelectionSet...), s.SelectionSet...)
					out[i] = &merged
					continue
				}
				seen[key] = len(out)
				out = append(out, s)
			case *ast.InlineFragment:
				if !included(s.Directives, vars) {
					continue
				}
				if s.TypeCondition != "" && s.TypeCondition != typeName {
					continue
				}
				if err := walk(s.SelectionSet); err != nil {
					return err
				}
			case *ast.FragmentSpread:
				if !included(s.Directives, vars) {
					continue
				}
				if s.Definition == nil {
					return gqlerror.ErrorPosf(s.Position, "unknown fragment %q", s.Name)
				}
				if s.Definition.TypeCondition != typeName {
					continue
				}
				if err := walk(s.Definition.SelectionSet); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(set); err != nil {
		return nil, err
	}
	return out, nil
}

func included(dirs ast.DirectiveList, vars map[string]interface{}) bool {
	if d := dirs.ForName("skip"); d != nil {
		if v, _ := d.ArgumentMap(vars)["if"].(bool); v {
			return false
		}
	}
	if d := dirs.ForName("include"); d != nil {
		if v, _ := d.ArgumentMap(vars)["if"].(bool); !v {
			return false
		}
	}
	return true
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func fieldError(f *ast.Field, key, msg string) *gqlerror.Error {
	err := gqlerror.ErrorPosf(f.Position, "%s", msg)
	err.Path = ast.Path{ast.PathName(key)}
	return err
}

// selectedColumns returns the distinct columns behind sel, in first-use
// order. A selection of only __typename still reads the key column.
func selectedColumns(ent *model.Entity, sel []*ast.Field) ([]string, error) {
	var cols []string
	seen := make(map[string]bool)
	for _, f := range sel {
		if f.Name == "__typename" {
			continue
		}
		field, ok := ent.Field(f.Name)
		if !ok {
			return nil, fmt.Errorf("unknown field %s.%s", ent.TypeName, f.Name)
		}
		if !seen[field.Column] {
			seen[field.Column] = true
			cols = append(cols, field.Column)
		}
	}
	if len(cols) == 0 {
		cols = append(cols, ent.Key)
	}
	return cols, nil
}

// buildObject maps one scanned row (ordered as columns) onto the selection.
func buildObject(ent *model.Entity, sel []*ast.Field, columns []string, row []interface{}) (*Object, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	obj := &Object{}
	for _, f := range sel {
		key := responseKey(f)
		if f.Name == "__typename" {
			obj.Set(key, ent.TypeName)
			continue
		}
		field, _ := ent.Field(f.Name)
		v, err := coerce(field.Type, row[index[field.Column]])
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %w", errDataSource, ent.TypeName, f.Name, err)
		}
		obj.Set(key, v)
	}
	return obj, nil
}

func pageArgs(args map[string]interface{}) (limit, offset int, err error) {
	limit, offset = DefaultLimit, 0

	if v, ok := args["limit"]; ok && v != nil {
		n, ok := toInt64(v)
		if !ok || n < 1 {
			return 0, 0, fmt.Errorf("limit must be a positive integer")
		}
		if n > MaxLimit {
			return 0, 0, fmt.Errorf("limit must not exceed %d", MaxLimit)
		}
		limit = int(n)
	}
	if v, ok := args["offset"]; ok && v != nil {
		n, ok := toInt64(v)
		if !ok || n < 0 {
			return 0, 0, fmt.Errorf("offset must not be negative")
		}
		offset = int(n)
	}
	return limit, offset, nil
}

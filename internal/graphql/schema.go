// Package graphql serves the ERP entity catalog over GraphQL. Queries are
// parsed and validated with gqlparser against an SDL generated from the
// catalog, then resolved as parameterized SELECTs through the ERP connector.
package graphql

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/erpgraph/erpgraph/internal/model"
)

const (
	// DefaultLimit applies when a list field has no limit argument.
	DefaultLimit = 100
	// MaxLimit is the largest accepted limit argument.
	MaxLimit = 1000
)

// SchemaSDL renders the GraphQL schema for the given entity catalog.
func SchemaSDL(entities []model.Entity) string {
	var b strings.Builder

	b.WriteString("type Query {\n")
	for _, e := range entities {
		fmt.Fprintf(&b, "  %q\n", fmt.Sprintf("List %s records. Equality filters are ANDed.", e.TypeName))
		fmt.Fprintf(&b, "  %s(", e.ListField)
		for _, name := range e.Filters {
			f, _ := e.Field(name)
			fmt.Fprintf(&b, "%s: %s, ", f.Name, f.Type)
		}
		fmt.Fprintf(&b, "limit: Int = %d, offset: Int = 0): [%s!]!\n", DefaultLimit, e.TypeName)
		fmt.Fprintf(&b, "  %q\n", fmt.Sprintf("Fetch one %s by id.", e.TypeName))
		fmt.Fprintf(&b, "  %s(id: ID!): %s\n", e.SingleField, e.TypeName)
	}
	b.WriteString("}\n")

	for _, e := range entities {
		fmt.Fprintf(&b, "\ntype %s {\n", e.TypeName)
		for i, f := range e.Fields {
			if i == 0 {
				fmt.Fprintf(&b, "  %s: %s!\n", f.Name, f.Type)
				continue
			}
			fmt.Fprintf(&b, "  %s: %s\n", f.Name, f.Type)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

// LoadSchema parses and validates the SDL for entities.
func LoadSchema(entities []model.Entity) (*ast.Schema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "erpgraph.graphql", Input: SchemaSDL(entities)})
	if err != nil {
		return nil, fmt.Errorf("load graphql schema: %w", err)
	}
	return schema, nil
}

package openapi

// TypeMapping maps a GraphQL scalar onto an OpenAPI type/format pair.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean
	Format string // OpenAPI format: int64, double, etc.
}

var scalarToOpenAPI = map[string]TypeMapping{
	"ID":      {"string", ""},
	"String":  {"string", ""},
	"Int":     {"integer", "int64"},
	"Float":   {"number", "double"},
	"Boolean": {"boolean", ""},
}

// MapScalar returns the OpenAPI mapping for a GraphQL scalar. Unknown
// scalars fall back to string.
func MapScalar(scalar string) TypeMapping {
	if m, ok := scalarToOpenAPI[scalar]; ok {
		return m
	}
	return TypeMapping{Type: "string"}
}

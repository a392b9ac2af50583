// Package openapi describes the gateway's HTTP surface as an OpenAPI 3.1
// document. The GraphQL entity types are included as component schemas so
// REST tooling can render response shapes.
package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/erpgraph/erpgraph/internal/model"
	"github.com/erpgraph/erpgraph/internal/signature"
)

// Security scheme names.
const (
	SchemeAppKey    = "appKey"
	SchemeClientID  = "clientId"
	SchemeTimestamp = "timestamp"
	SchemeSignature = "signature"
	SchemeAdminKey  = "adminKey"
)

// Generate builds the OpenAPI document for the gateway.
func Generate(entities []model.Entity, baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title: "erpgraph API",
			Description: "GraphQL gateway over ERP business entities. GraphQL calls are signed with " +
				"HMAC-SHA256(appKey + clientId + timestamp) keyed by the client secret.",
			Version: version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	addSecuritySchemes(doc)
	addSharedSchemas(doc)
	for _, e := range entities {
		doc.Components.Schemas[e.TypeName] = entitySchema(e)
	}

	doc.Paths = openapi3.NewPaths()
	addGraphQLPaths(doc)
	addCredentialPaths(doc)
	addProbePaths(doc)

	return doc
}

func headerScheme(name, description string) *openapi3.SecuritySchemeRef {
	return &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "apiKey",
			In:          "header",
			Name:        name,
			Description: description,
		},
	}
}

func addSecuritySchemes(doc *openapi3.T) {
	ss := doc.Components.SecuritySchemes
	ss[SchemeAppKey] = headerScheme(signature.HeaderAppKey, "Application key of the issued credential.")
	ss[SchemeClientID] = headerScheme(signature.HeaderClientID, "Client ID of the issued credential.")
	ss[SchemeTimestamp] = headerScheme(signature.HeaderTimestamp, "Unix time in seconds; at most 300 seconds old.")
	ss[SchemeSignature] = headerScheme(signature.HeaderSignature, "Lowercase hex HMAC-SHA256 of appKey+clientId+timestamp.")
	ss[SchemeAdminKey] = headerScheme(signature.HeaderAdminKey, "Static administrator key.")
}

// signedRequest requires all four signature headers together.
func signedRequest() *openapi3.SecurityRequirements {
	return &openapi3.SecurityRequirements{{
		SchemeAppKey:    {},
		SchemeClientID:  {},
		SchemeTimestamp: {},
		SchemeSignature: {},
	}}
}

func adminOnly() *openapi3.SecurityRequirements {
	return &openapi3.SecurityRequirements{{SchemeAdminKey: {}}}
}

func noAuth() *openapi3.SecurityRequirements {
	return &openapi3.SecurityRequirements{}
}

func stringSchema(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description}}
}

func objectSchema(props openapi3.Schemas, required ...string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   required,
	}}
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func addSharedSchemas(doc *openapi3.T) {
	s := doc.Components.Schemas

	s["ErrorResponse"] = objectSchema(openapi3.Schemas{
		"error": objectSchema(openapi3.Schemas{
			"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
			"message": stringSchema(""),
			"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
		}),
	})

	s["IssueCredentialRequest"] = objectSchema(openapi3.Schemas{
		"login":    stringSchema("Operator login."),
		"password": stringSchema("Operator password."),
		"label":    stringSchema("Free-form description of the client."),
	}, "login", "password")

	s["IssuedCredential"] = objectSchema(openapi3.Schemas{
		"app_key":    stringSchema("32 lowercase hex characters."),
		"client_id":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}},
		"secret":     stringSchema("Shared secret. Returned once and never again."),
		"label":      stringSchema(""),
		"created_at": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
	}, "app_key", "client_id", "secret", "created_at")

	s["Credential"] = objectSchema(openapi3.Schemas{
		"app_key":        stringSchema(""),
		"client_id":      stringSchema(""),
		"label":          stringSchema(""),
		"issued_by":      stringSchema("Login of the operator that issued the credential."),
		"is_active":      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
		"created_at":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
		"deactivated_at": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string", "null"}, Format: "date-time"}},
	})

	s["GraphQLRequest"] = objectSchema(openapi3.Schemas{
		"query":         stringSchema("GraphQL document."),
		"operationName": stringSchema("Operation to run when the document has several."),
		"variables":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
	}, "query")

	s["GraphQLResponse"] = objectSchema(openapi3.Schemas{
		"data": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object", "null"}}},
		"errors": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type: &openapi3.Types{"array"},
			Items: objectSchema(openapi3.Schemas{
				"message": stringSchema(""),
				"path":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"array"}}},
			}, "message"),
		}},
	})
}

// entitySchema renders an entity's GraphQL fields. Only the id is never null.
func entitySchema(e model.Entity) *openapi3.SchemaRef {
	props := openapi3.Schemas{}
	for i, f := range e.Fields {
		m := MapScalar(f.Type)
		types := openapi3.Types{m.Type}
		if i > 0 {
			types = append(types, "null")
		}
		props[f.Name] = &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:        &types,
			Format:      m.Format,
			Description: fmt.Sprintf("Column %s.%s", e.Table, f.Column),
		}}
	}
	s := objectSchema(props, "id")
	s.Value.Description = fmt.Sprintf("Returned by the %s and %s GraphQL fields.", e.ListField, e.SingleField)
	return s
}

func addGraphQLPaths(doc *openapi3.T) {
	body := &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
		Required: true,
		Content:  openapi3.NewContentWithJSONSchemaRef(ref("GraphQLRequest")),
	}}

	doc.Paths.Set("/graphql", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"graphql"},
			Summary:     "Execute a GraphQL query",
			Description: "Validation and resolver errors are reported in the errors array with status 200.",
			OperationID: "graphql_query",
			Security:    signedRequest(),
			RequestBody: body,
			Responses:   newResponses("200", "GraphQL result", ref("GraphQLResponse")),
		},
	})

	sdlDesc := "Schema in GraphQL SDL"
	sdl := openapi3.NewResponses()
	sdl.Set("200", &openapi3.ResponseRef{Value: &openapi3.Response{
		Description: &sdlDesc,
		Content:     openapi3.Content{"text/plain": openapi3.NewMediaType().WithSchema(openapi3.NewStringSchema())},
	}})
	addErrorResponses(sdl, "401", "500")

	doc.Paths.Set("/graphql/schema", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"graphql"},
			Summary:     "Fetch the GraphQL schema",
			OperationID: "graphql_schema",
			Security:    signedRequest(),
			Responses:   sdl,
		},
	})
}

func addCredentialPaths(doc *openapi3.T) {
	listSchema := objectSchema(openapi3.Schemas{
		"resource": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: ref("Credential"),
		}},
		"meta": metaSchema(),
	})

	doc.Paths.Set("/api/v1/credentials", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"credentials"},
			Summary:     "List issued credentials",
			OperationID: "list_credentials",
			Security:    adminOnly(),
			Parameters: openapi3.Parameters{
				&openapi3.ParameterRef{Value: openapi3.NewQueryParameter("active").
					WithDescription("Only list active credentials.").
					WithSchema(openapi3.NewBoolSchema())},
			},
			Responses: newResponses("200", "Credentials without secrets", listSchema),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"credentials"},
			Summary:     "Issue a credential",
			Description: "Checks the operator login/password, then returns a new app key, client ID and secret.",
			OperationID: "issue_credential",
			Security:    adminOnly(),
			RequestBody: &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(ref("IssueCredentialRequest")),
			}},
			Responses: newResponses("201", "Issued credential", ref("IssuedCredential")),
		},
	})

	noContent := "Credential deactivated"
	deactivate := openapi3.NewResponses()
	deactivate.Set("204", &openapi3.ResponseRef{Value: &openapi3.Response{Description: &noContent}})
	addErrorResponses(deactivate, "401", "404", "500")

	doc.Paths.Set("/api/v1/credentials/{appKey}/{clientId}", &openapi3.PathItem{
		Delete: &openapi3.Operation{
			Tags:        []string{"credentials"},
			Summary:     "Deactivate a credential",
			OperationID: "deactivate_credential",
			Security:    adminOnly(),
			Parameters: openapi3.Parameters{
				&openapi3.ParameterRef{Value: openapi3.NewPathParameter("appKey").WithSchema(openapi3.NewStringSchema())},
				&openapi3.ParameterRef{Value: openapi3.NewPathParameter("clientId").WithSchema(openapi3.NewStringSchema())},
			},
			Responses: deactivate,
		},
	})
}

func addProbePaths(doc *openapi3.T) {
	status := objectSchema(openapi3.Schemas{
		"status": stringSchema("ok or degraded"),
		"checks": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
	})

	for _, p := range []struct{ path, id, summary string }{
		{"/healthz", "healthz", "Liveness probe"},
		{"/readyz", "readyz", "Readiness probe: config store and ERP database"},
	} {
		desc := p.summary
		resp := openapi3.NewResponses()
		resp.Set("200", &openapi3.ResponseRef{Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(status),
		}})
		doc.Paths.Set(p.path, &openapi3.PathItem{
			Get: &openapi3.Operation{
				Tags:        []string{"system"},
				Summary:     p.summary,
				OperationID: p.id,
				Security:    noAuth(),
				Responses:   resp,
			},
		})
	}
}

// newResponses builds a Responses map with a success response and standard error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})
	addErrorResponses(responses, "400", "401", "500")
	return responses
}

var errorDescriptions = map[string]string{
	"400": "Bad request",
	"401": "Unauthorized",
	"404": "Not found",
	"429": "Rate limit exceeded",
	"500": "Internal server error",
}

func addErrorResponses(responses *openapi3.Responses, codes ...string) {
	errorRef := ref("ErrorResponse")
	for _, code := range codes {
		desc := errorDescriptions[code]
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
}

// metaSchema returns the schema for the "meta" field in list responses.
func metaSchema() *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"count": &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:        &openapi3.Types{"integer"},
				Format:      "int64",
				Description: "Number of records returned.",
			},
		},
	})
}

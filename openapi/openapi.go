// Package openapi assembles the service's OpenAPI 3 document. Request and
// response schemas are derived from Go types through their json tags.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

type Document struct {
	mu      sync.RWMutex
	spec    *openapi3.T
	schemas map[reflect.Type]string
}

func New(title, version string) *Document {
	return &Document{
		spec: &openapi3.T{
			OpenAPI: "3.0.3",
			Info: &openapi3.Info{
				Title:   title,
				Version: version,
			},
			Paths: openapi3.NewPaths(),
			Components: &openapi3.Components{
				Schemas:         make(openapi3.Schemas),
				SecuritySchemes: make(openapi3.SecuritySchemes),
			},
		},
		schemas: make(map[reflect.Type]string),
	}
}

func (d *Document) Description(desc string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Info.Description = desc
	return d
}

func (d *Document) Server(url, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Servers = append(d.spec.Servers, &openapi3.Server{URL: url, Description: description})
	return d
}

func (d *Document) Tag(name, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Tags = append(d.spec.Tags, &openapi3.Tag{Name: name, Description: description})
	return d
}

// CookieAuth declares a session-cookie security scheme.
func (d *Document) CookieAuth(name, cookieName string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{Type: "apiKey", In: "cookie", Name: cookieName},
	}
	return d
}

func (d *Document) Spec() *openapi3.T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec
}

func (d *Document) JSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.MarshalIndent(d.spec, "", "  ")
}

func (d *Document) YAML() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	intermediate, err := d.spec.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(intermediate)
}

// Operation starts documenting method on path. Nothing is recorded until Add.
func (d *Document) Operation(method, path string) *Operation {
	return &Operation{
		doc:    d,
		method: strings.ToUpper(method),
		path:   path,
		op:     &openapi3.Operation{Responses: openapi3.NewResponses()},
	}
}

func (d *Document) add(method, path string, op *openapi3.Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	item := d.spec.Paths.Find(path)
	if item == nil {
		item = &openapi3.PathItem{}
		d.spec.Paths.Set(path, item)
	}

	switch method {
	case http.MethodGet:
		item.Get = op
	case http.MethodPost:
		item.Post = op
	case http.MethodPut:
		item.Put = op
	case http.MethodPatch:
		item.Patch = op
	case http.MethodDelete:
		item.Delete = op
	}
}

// schemaFor returns a schema for the type of example. Named structs are
// registered once under components and referenced afterwards.
func (d *Document) schemaFor(example any) *openapi3.SchemaRef {
	d.mu.Lock()
	defer d.mu.Unlock()

	if example == nil {
		return objectSchema()
	}
	return d.schemaOf(reflect.TypeOf(example), map[reflect.Type]bool{})
}

var timeType = reflect.TypeOf(time.Time{})

func (d *Document) schemaOf(t reflect.Type, seen map[reflect.Type]bool) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		inner := d.schemaOf(t.Elem(), seen)
		if inner.Ref != "" {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{AllOf: openapi3.SchemaRefs{inner}, Nullable: true}}
		}
		inner.Value.Nullable = true
		return inner
	}

	switch t.Kind() {
	case reflect.String:
		return typed("string")
	case reflect.Bool:
		return typed("boolean")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return typed("integer")
	case reflect.Float32, reflect.Float64:
		return typed("number")
	case reflect.Slice, reflect.Array:
		ref := typed("array")
		ref.Value.Items = d.schemaOf(t.Elem(), seen)
		return ref
	case reflect.Map:
		ref := objectSchema()
		ref.Value.AdditionalProperties = openapi3.AdditionalProperties{Schema: d.schemaOf(t.Elem(), seen)}
		return ref
	case reflect.Struct:
		return d.structSchema(t, seen)
	default:
		return objectSchema()
	}
}

func (d *Document) structSchema(t reflect.Type, seen map[reflect.Type]bool) *openapi3.SchemaRef {
	if t == timeType {
		ref := typed("string")
		ref.Value.Format = "date-time"
		return ref
	}

	if t.Name() == "" {
		return &openapi3.SchemaRef{Value: d.buildStruct(t, seen)}
	}

	if name, ok := d.schemas[t]; ok {
		return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
	}
	if seen[t] {
		return objectSchema()
	}
	seen[t] = true
	defer delete(seen, t)

	name := t.Name()
	if _, taken := d.spec.Components.Schemas[name]; taken {
		name = strings.ReplaceAll(t.String(), ".", "")
	}
	d.schemas[t] = name
	d.spec.Components.Schemas[name] = &openapi3.SchemaRef{Value: d.buildStruct(t, seen)}

	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}

func (d *Document) buildStruct(t reflect.Type, seen map[reflect.Type]bool) *openapi3.Schema {
	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		name := parts[0]
		if name == "" {
			name = field.Name
		}

		prop := d.schemaOf(field.Type, seen)
		if doc := field.Tag.Get("doc"); doc != "" && prop.Value != nil {
			prop.Value.Description = doc
		}
		schema.Properties[name] = prop

		if !hasOption(parts[1:], "omitempty") && field.Type.Kind() != reflect.Pointer {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

func hasOption(options []string, want string) bool {
	for _, o := range options {
		if o == want {
			return true
		}
	}
	return false
}

func typed(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{name}}}
}

func objectSchema() *openapi3.SchemaRef {
	return typed("object")
}

package openapi

import (
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
)

type Operation struct {
	doc    *Document
	method string
	path   string
	op     *openapi3.Operation
}

func (o *Operation) Summary(summary string) *Operation {
	o.op.Summary = summary
	return o
}

func (o *Operation) Tags(tags ...string) *Operation {
	o.op.Tags = append(o.op.Tags, tags...)
	return o
}

func (o *Operation) Query(name, description string, required bool) *Operation {
	o.op.Parameters = append(o.op.Parameters, &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:        name,
			In:          "query",
			Description: description,
			Required:    required,
			Schema:      typed("string"),
		},
	})
	return o
}

// Body documents a required JSON request body shaped like example.
func (o *Operation) Body(example any) *Operation {
	o.op.RequestBody = &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content:  openapi3.NewContentWithJSONSchemaRef(o.doc.schemaFor(example)),
		},
	}
	return o
}

// Response documents status code. A nil example documents a response
// without a body.
func (o *Operation) Response(code int, example any, description string) *Operation {
	resp := &openapi3.Response{Description: &description}
	if example != nil {
		resp.Content = openapi3.NewContentWithJSONSchemaRef(o.doc.schemaFor(example))
	}
	o.op.Responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{Value: resp})
	return o
}

func (o *Operation) Security(scheme string) *Operation {
	o.op.Security = &openapi3.SecurityRequirements{{scheme: []string{}}}
	return o
}

func (o *Operation) Add() {
	o.doc.add(o.method, o.path, o.op)
}

/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package schema derives tool parameter schemas from Go argument structs.
package schema

import "github.com/invopop/jsonschema"

// Generator wraps jsonschema.Reflector with the defaults tool schemas need:
// inline definitions, required-ness from tags, and no top-level $ref.
type Generator struct {
	reflector jsonschema.Reflector
}

// NewGenerator constructs a Generator.
func NewGenerator() *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			AllowAdditionalProperties:  true,
			DoNotReference:             true,
		},
	}
}

// Reflect returns the JSON schema for v.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	s := g.reflector.Reflect(v)
	// Provider APIs reject the meta-schema and $id on tool parameters.
	s.Version = ""
	s.ID = ""
	return s
}

// Reflect derives the JSON schema for v using a default Generator.
func Reflect(v any) *jsonschema.Schema {
	return NewGenerator().Reflect(v)
}

// ReflectType reflects the schema of T's zero value.
func ReflectType[T any]() *jsonschema.Schema {
	var zero T
	return Reflect(&zero)
}

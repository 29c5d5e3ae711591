/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package schema derives JSON schemas for model response types so prompts
// can state the exact output format they expect.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generator wraps jsonschema.Reflector with the defaults used for prompts.
type Generator struct {
	reflector jsonschema.Reflector
}

// NewGenerator returns a Generator that inlines every definition and only
// marks fields required when tagged `jsonschema:"required"`.
func NewGenerator() *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			DoNotReference:             true,
		},
	}
}

// Reflect returns the schema for v without the $schema and $id headers.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	s := g.reflector.Reflect(v)
	s.Version = ""
	s.ID = ""
	return s
}

// Reflect derives the schema for v with a default Generator.
func Reflect(v any) *jsonschema.Schema {
	return NewGenerator().Reflect(v)
}

// ReflectType reflects the zero value of T.
func ReflectType[T any]() *jsonschema.Schema {
	var zero T
	return Reflect(&zero)
}

// OutputFormat renders the schema of T as indented JSON for embedding in a
// prompt.
func OutputFormat[T any]() (string, error) {
	b, err := json.MarshalIndent(ReflectType[T](), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling schema: %w", err)
	}
	return string(b), nil
}

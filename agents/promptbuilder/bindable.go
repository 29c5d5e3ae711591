/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package promptbuilder assembles model prompts from constant templates and
// typed bindings. Runtime data (pull request text, community documents) can
// only enter a prompt through an escaping binding.
package promptbuilder

// Bindable is implemented by executor request types. Bind fills the
// request's values into the executor's prompt template.
type Bindable interface {
	Bind(prompt *Prompt) (*Prompt, error)
}

// Noop binds nothing.
type Noop struct{}

// Bind returns prompt unchanged.
func (Noop) Bind(prompt *Prompt) (*Prompt, error) {
	return prompt, nil
}

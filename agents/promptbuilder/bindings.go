/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

type binding interface {
	value() (string, error)
}

type unboundBinding struct {
	name string
}

func (u *unboundBinding) value() (string, error) {
	return "", fmt.Errorf("unbound placeholder: %s", u.name)
}

type literalBinding struct {
	val string
}

func (l *literalBinding) value() (string, error) {
	return l.val, nil
}

type xmlBinding struct {
	data any
}

func (x *xmlBinding) value() (string, error) {
	b, err := xml.MarshalIndent(x.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return string(b), nil
}

type jsonBinding struct {
	data any
}

func (j *jsonBinding) value() (string, error) {
	b, err := json.MarshalIndent(j.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(b), nil
}

type codeBlockBinding struct {
	lang string
	text string
}

func (c *codeBlockBinding) value() (string, error) {
	if strings.ContainsAny(c.lang, "`\n ") {
		return "", fmt.Errorf("invalid code block language %q", c.lang)
	}
	fence := strings.Repeat("`", max(3, longestRun(c.text, '`')+1))
	var sb strings.Builder
	sb.WriteString(fence)
	sb.WriteString(c.lang)
	sb.WriteString("\n")
	sb.WriteString(c.text)
	if !strings.HasSuffix(c.text, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(fence)
	return sb.String(), nil
}

// longestRun returns the length of the longest consecutive run of r in s.
func longestRun(s string, r rune) int {
	longest, cur := 0, 0
	for _, c := range s {
		if c != r {
			cur = 0
			continue
		}
		cur++
		longest = max(longest, cur)
	}
	return longest
}

func existsAndUnbound(bindings map[string]binding, name string) error {
	b, ok := bindings[name]
	if !ok {
		return fmt.Errorf("binding %q not found in template", name)
	}
	if _, unbound := b.(*unboundBinding); !unbound {
		return fmt.Errorf("binding %q already bound", name)
	}
	return nil
}

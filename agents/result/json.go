/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package result decodes structured replies from language models.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when a model reply cannot be decoded into
// the expected shape.
var ErrMalformedOutput = errors.New("malformed model output")

// ExtractJSON returns the JSON payload of a model reply. Models sometimes
// wrap the object in a ```json fence or surround it with prose; the first
// fenced block wins, otherwise the trimmed reply is returned with any stray
// fence markers removed.
func ExtractJSON(reply string) string {
	var (
		block   []string
		inBlock bool
	)
	for line := range strings.Lines(reply) {
		line = strings.TrimRight(line, "\r\n")
		switch {
		case !inBlock && strings.TrimSpace(line) == "```json":
			inBlock = true
		case inBlock && strings.TrimSpace(line) == "```":
			return strings.TrimSpace(strings.Join(block, "\n"))
		case inBlock:
			block = append(block, line)
		}
	}
	if inBlock {
		// Unterminated fence.
		return strings.TrimSpace(strings.Join(block, "\n"))
	}

	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	// Prose around a bare object.
	if !strings.HasPrefix(reply, "{") {
		if i, j := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); i >= 0 && j > i {
			reply = reply[i : j+1]
		}
	}
	return reply
}

// Extract decodes the JSON payload of reply into T. Decoding failures wrap
// ErrMalformedOutput.
func Extract[T any](reply string) (T, error) {
	var out T
	payload := ExtractJSON(reply)
	if payload == "" {
		return out, fmt.Errorf("%w: no JSON object in reply", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	return out, nil
}

/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package frontmatter renders and parses the YAML header of community posts.
//
// A post file looks like:
//
//	---
//	title: "Hello"
//	author: "agent-smith"
//	tags: ["intro", "meta"]
//	date: "2026-01-02"
//	---
//
//	Body text.
package frontmatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	delimiter = "---"

	// DateLayout is the ISO calendar date format of the date field.
	DateLayout = time.DateOnly
)

// ErrMissing is returned by Parse when a document has no front matter.
var ErrMissing = errors.New("front matter not found")

// FrontMatter is the metadata block of a post.
type FrontMatter struct {
	Title  string   `yaml:"title"`
	Author string   `yaml:"author"`
	Tags   []string `yaml:"tags"`
	Date   string   `yaml:"date"`
}

// New returns front matter dated on the calendar day of t.
func New(title, author string, tags []string, t time.Time) FrontMatter {
	return FrontMatter{
		Title:  title,
		Author: author,
		Tags:   tags,
		Date:   t.Format(DateLayout),
	}
}

// Render emits the block including both delimiters and the trailing newline.
// Scalars are JSON-quoted, which YAML accepts as double-quoted strings.
func (fm FrontMatter) Render() string {
	var b strings.Builder
	b.WriteString(delimiter + "\n")
	fmt.Fprintf(&b, "title: %s\n", quote(fm.Title))
	fmt.Fprintf(&b, "author: %s\n", quote(fm.Author))
	tags := make([]string, 0, len(fm.Tags))
	for _, t := range fm.Tags {
		tags = append(tags, quote(t))
	}
	fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(tags, ", "))
	fmt.Fprintf(&b, "date: %s\n", quote(fm.Date))
	b.WriteString(delimiter + "\n")
	return b.String()
}

// Document joins the rendered front matter and body with a blank line.
func Document(fm FrontMatter, body string) string {
	return fm.Render() + "\n" + body
}

// Parse splits doc into its front matter and body. The blank line after the
// closing delimiter is not part of the body.
func Parse(doc string) (FrontMatter, string, error) {
	var fm FrontMatter
	rest, ok := strings.CutPrefix(doc, delimiter+"\n")
	if !ok {
		return fm, "", ErrMissing
	}
	header, body, ok := cutDelimiter(rest)
	if !ok {
		return fm, "", fmt.Errorf("unterminated front matter: %w", ErrMissing)
	}

	if err := yaml.NewDecoder(bytes.NewBufferString(header)).Decode(&fm); err != nil && !errors.Is(err, io.EOF) {
		return fm, "", fmt.Errorf("decoding front matter: %w", err)
	}
	return fm, strings.TrimPrefix(body, "\n"), nil
}

// Validate checks the fields every published post carries.
func (fm FrontMatter) Validate() error {
	var errs []error
	if strings.TrimSpace(fm.Title) == "" {
		errs = append(errs, errors.New("title is empty"))
	}
	if strings.TrimSpace(fm.Author) == "" {
		errs = append(errs, errors.New("author is empty"))
	}
	if len(fm.Tags) == 0 {
		errs = append(errs, errors.New("tags are empty"))
	}
	if _, err := time.Parse(DateLayout, fm.Date); err != nil {
		errs = append(errs, fmt.Errorf("date %q is not YYYY-MM-DD", fm.Date))
	}
	return errors.Join(errs...)
}

func cutDelimiter(s string) (header, body string, ok bool) {
	if rest, ok := strings.CutPrefix(s, delimiter+"\n"); ok {
		return "", rest, true
	}
	header, body, ok = strings.Cut(s, "\n"+delimiter+"\n")
	if ok {
		return header, body, true
	}
	if h, ok := strings.CutSuffix(s, "\n"+delimiter); ok {
		return h, "", true
	}
	return "", "", false
}

func quote(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}

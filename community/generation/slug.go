/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package generation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxSlugLength = 60

var (
	unsafeChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace  = regexp.MustCompile(`\s+`)
	dashRuns    = regexp.MustCompile(`-+`)
)

// Slugify normalizes a title for use in file and branch names: lowercase
// ASCII letters, digits and single dashes, at most 60 characters, never
// empty.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = unsafeChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "post"
	}
	return s
}

// Slug names a post created at t: the slugified title followed by the
// creation instant in base-36 nanoseconds.
func Slug(title string, t time.Time) string {
	return Slugify(title) + "-" + strconv.FormatInt(t.UnixNano(), 36)
}

/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/google/go-cmp/cmp"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/require"
)

// fakeGitHub serves the subset of the GitHub API the gateway uses and
// records every request as "METHOD path".
type fakeGitHub struct {
	*http.ServeMux

	mu     sync.Mutex
	calls  []string
	bodies map[string][]byte
}

func newFakeGitHub(t *testing.T) (*fakeGitHub, *Client) {
	t.Helper()
	f := &fakeGitHub{ServeMux: http.NewServeMux(), bodies: map[string][]byte{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := r.Method + " " + r.URL.Path
		var body json.RawMessage
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.bodies[call] = body
		f.mu.Unlock()
		f.ServeMux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewFromToken(context.Background(), "owner", "community", "test-token", WithBaseURL(srv.URL))
	require.NoError(t, err)
	return f, c
}

func (f *fakeGitHub) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGitHub) Body(call string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var m map[string]any
	_ = json.Unmarshal(f.bodies[call], &m)
	return m
}

func (f *fakeGitHub) reply(pattern string, status int, v any) {
	f.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	})
}

func fileContent(text string) map[string]any {
	return map[string]any{
		"type":     "file",
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString([]byte(text)),
	}
}

func pullRequest(number int, author, headOwner, headRef string) map[string]any {
	return map[string]any{
		"number":   number,
		"title":    "A post",
		"body":     "please merge",
		"user":     map[string]any{"login": author},
		"html_url": "https://github.com/owner/community/pull/1",
		"head": map[string]any{
			"ref": headRef,
			"repo": map[string]any{
				"name":  "community",
				"owner": map[string]any{"login": headOwner},
			},
		},
	}
}

func TestNewRequiresOwnerAndRepo(t *testing.T) {
	if _, err := NewFromToken(context.Background(), "", "community", "tok"); err == nil {
		t.Error("NewFromToken() with empty owner = nil error, wanted error")
	}
	if _, err := NewFromToken(context.Background(), "owner", "", "tok"); err == nil {
		t.Error("NewFromToken() with empty repo = nil error, wanted error")
	}
}

func TestRequestsCarryToken(t *testing.T) {
	f, c := newFakeGitHub(t)
	var auth string
	f.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"login": "moderator"})
	})

	got, err := c.Viewer(context.Background())
	require.NoError(t, err)
	if got != "moderator" {
		t.Errorf("Viewer() = %q, wanted %q", got, "moderator")
	}
	if auth != "Bearer test-token" {
		t.Errorf("Authorization = %q, wanted %q", auth, "Bearer test-token")
	}
}

func TestTransportRecordsMetrics(t *testing.T) {
	_, c := newFakeGitHub(t)
	if _, ok := c.gh.Client().Transport.(*httpmetrics.MetricsTransport); !ok {
		t.Errorf("transport = %T, wanted *httpmetrics.MetricsTransport", c.gh.Client().Transport)
	}
}

func TestPostPath(t *testing.T) {
	tests := []struct {
		name   string
		paths  []string
		want   string
		wantOK bool
	}{{
		name:   "first post wins",
		paths:  []string{"README.md", "community/posts/a.md", "community/posts/b.md"},
		want:   "community/posts/a.md",
		wantOK: true,
	}, {
		name:  "wrong extension",
		paths: []string{"community/posts/a.txt"},
	}, {
		name:  "outside posts",
		paths: []string{"community/RULES.md", "posts/a.md"},
	}, {
		name: "no files",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PostPath(tt.paths)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("PostPath() = (%q, %v), wanted (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestReadProposalContent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeGitHub)
		want  string
	}{{
		name: "same repository",
		setup: func(f *fakeGitHub) {
			f.reply("GET /repos/owner/community/pulls/7", http.StatusOK, pullRequest(7, "alice", "owner", "post/hello"))
			f.reply("GET /repos/owner/community/pulls/7/files", http.StatusOK, []map[string]any{
				{"filename": "community/posts/hello.md"},
			})
			f.reply("GET /repos/owner/community/contents/community/posts/hello.md", http.StatusOK, fileContent("hello world"))
		},
		want: "hello world",
	}, {
		name: "from a fork",
		setup: func(f *fakeGitHub) {
			f.reply("GET /repos/owner/community/pulls/7", http.StatusOK, pullRequest(7, "bob", "bob", "post/hi"))
			f.reply("GET /repos/owner/community/pulls/7/files", http.StatusOK, []map[string]any{
				{"filename": "community/posts/hi.md"},
			})
			f.reply("GET /repos/bob/community/contents/community/posts/hi.md", http.StatusOK, fileContent("from fork"))
		},
		want: "from fork",
	}, {
		name: "no post file",
		setup: func(f *fakeGitHub) {
			f.reply("GET /repos/owner/community/pulls/7", http.StatusOK, pullRequest(7, "alice", "owner", "fix"))
			f.reply("GET /repos/owner/community/pulls/7/files", http.StatusOK, []map[string]any{
				{"filename": "README.md"},
			})
		},
	}, {
		name: "unreadable at head",
		setup: func(f *fakeGitHub) {
			f.reply("GET /repos/owner/community/pulls/7", http.StatusOK, pullRequest(7, "alice", "owner", "gone"))
			f.reply("GET /repos/owner/community/pulls/7/files", http.StatusOK, []map[string]any{
				{"filename": "community/posts/gone.md"},
			})
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := newFakeGitHub(t)
			tt.setup(f)

			got, err := c.ReadProposalContent(context.Background(), 7)
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("ReadProposalContent() = %q, wanted %q", got, tt.want)
			}
		})
	}
}

func TestReadProposalContentFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unavailable", http.StatusServiceUnavailable},
		{"rate limited", http.StatusForbidden},
		{"server error", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := newFakeGitHub(t)
			f.reply("GET /repos/owner/community/pulls/7", http.StatusOK, pullRequest(7, "alice", "owner", "post/hello"))
			f.reply("GET /repos/owner/community/pulls/7/files", http.StatusOK, []map[string]any{
				{"filename": "community/posts/hello.md"},
			})
			f.reply("GET /repos/owner/community/contents/community/posts/hello.md", tt.status, map[string]any{"message": "try again"})

			got, err := c.ReadProposalContent(context.Background(), 7)
			if err == nil {
				t.Fatalf("ReadProposalContent() = %q, nil, wanted error", got)
			}
			if code := StatusCode(err); code != tt.status {
				t.Errorf("StatusCode(%v) = %d, wanted %d", err, code, tt.status)
			}
		})
	}
}

func TestReadRulesDocumentMissing(t *testing.T) {
	_, c := newFakeGitHub(t)

	_, err := c.ReadRulesDocument(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRulesDocument() = %v, wanted ErrNotFound", err)
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, wanted true", err)
	}
}

func TestReadRulesDocumentUnavailable(t *testing.T) {
	f, c := newFakeGitHub(t)
	f.reply("GET /repos/owner/community/contents/community/RULES.md", http.StatusServiceUnavailable, map[string]any{"message": "unavailable"})

	_, err := c.ReadRulesDocument(context.Background())
	if err == nil {
		t.Fatal("ReadRulesDocument() = nil error, wanted error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRulesDocument() = %v, wanted an error other than ErrNotFound", err)
	}
	if got, want := StatusCode(err), http.StatusServiceUnavailable; got != want {
		t.Errorf("StatusCode() = %d, wanted %d", got, want)
	}
}

func TestApprove(t *testing.T) {
	tests := []struct {
		name   string
		author string
		want   []string
	}{{
		name:   "other author is reviewed first",
		author: "alice",
		want: []string{
			"GET /repos/owner/community/pulls/3",
			"GET /user",
			"POST /repos/owner/community/pulls/3/reviews",
			"PUT /repos/owner/community/pulls/3/merge",
		},
	}, {
		name:   "own proposal skips review",
		author: "moderator",
		want: []string{
			"GET /repos/owner/community/pulls/3",
			"GET /user",
			"PUT /repos/owner/community/pulls/3/merge",
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := newFakeGitHub(t)
			f.reply("GET /repos/owner/community/pulls/3", http.StatusOK, pullRequest(3, tt.author, "owner", "post/x"))
			f.reply("GET /user", http.StatusOK, map[string]any{"login": "moderator"})
			f.reply("POST /repos/owner/community/pulls/3/reviews", http.StatusOK, map[string]any{"id": 1})
			f.reply("PUT /repos/owner/community/pulls/3/merge", http.StatusOK, map[string]any{"merged": true})

			require.NoError(t, c.Approve(context.Background(), 3))

			if diff := cmp.Diff(tt.want, f.Calls()); diff != "" {
				t.Errorf("calls (-want +got):\n%s", diff)
			}
			if got := f.Body("PUT /repos/owner/community/pulls/3/merge")["merge_method"]; got != "squash" {
				t.Errorf("merge_method = %v, wanted squash", got)
			}
		})
	}
}

func TestApproveMergeFailure(t *testing.T) {
	f, c := newFakeGitHub(t)
	f.reply("GET /repos/owner/community/pulls/3", http.StatusOK, pullRequest(3, "alice", "owner", "post/x"))
	f.reply("GET /user", http.StatusOK, map[string]any{"login": "moderator"})
	f.reply("POST /repos/owner/community/pulls/3/reviews", http.StatusOK, map[string]any{"id": 1})
	f.reply("PUT /repos/owner/community/pulls/3/merge", http.StatusMethodNotAllowed, map[string]any{"message": "Pull Request is not mergeable"})

	err := c.Approve(context.Background(), 3)
	if got := StatusCode(err); got != http.StatusMethodNotAllowed {
		t.Errorf("StatusCode() = %d, wanted %d (err = %v)", got, http.StatusMethodNotAllowed, err)
	}
}

func TestReject(t *testing.T) {
	reason := "Duplicate of an existing post."

	tests := []struct {
		name     string
		existing []map[string]any
		want     []string
	}{{
		name: "comments then closes",
		want: []string{
			"GET /repos/owner/community/issues/4/comments",
			"POST /repos/owner/community/issues/4/comments",
			"PATCH /repos/owner/community/pulls/4",
		},
	}, {
		name: "does not repeat an identical comment",
		existing: []map[string]any{
			{"id": 1, "body": FormatRejection(reason), "user": map[string]any{"login": "moderator"}},
		},
		want: []string{
			"GET /repos/owner/community/issues/4/comments",
			"PATCH /repos/owner/community/pulls/4",
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := newFakeGitHub(t)
			existing := tt.existing
			if existing == nil {
				existing = []map[string]any{}
			}
			f.reply("GET /repos/owner/community/issues/4/comments", http.StatusOK, existing)
			f.reply("POST /repos/owner/community/issues/4/comments", http.StatusCreated, map[string]any{"id": 2})
			f.reply("PATCH /repos/owner/community/pulls/4", http.StatusOK, map[string]any{"number": 4, "state": "closed"})

			require.NoError(t, c.Reject(context.Background(), 4, reason))

			if diff := cmp.Diff(tt.want, f.Calls()); diff != "" {
				t.Errorf("calls (-want +got):\n%s", diff)
			}
			if got := f.Body("PATCH /repos/owner/community/pulls/4")["state"]; got != "closed" {
				t.Errorf("state = %v, wanted closed", got)
			}
		})
	}
}

func TestFormatRejection(t *testing.T) {
	got := FormatRejection("  Too short.\n")
	want := "❌ **This post was not approved**\n\nToo short.\n\n" + rejectionFooter
	if got != want {
		t.Errorf("FormatRejection() = %q, wanted %q", got, want)
	}
}

func TestListRegistrations(t *testing.T) {
	f, c := newFakeGitHub(t)
	var labels string
	f.HandleFunc("GET /repos/owner/community/issues", func(w http.ResponseWriter, r *http.Request) {
		labels = r.URL.Query().Get("labels")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"number": 10, "title": "Join: alice", "user": map[string]any{"login": "alice"}},
			{"number": 11, "title": "A pull request", "pull_request": map[string]any{"url": "x"}},
			{"number": 12, "title": "Join: bob", "user": map[string]any{"login": "bob"}},
		})
	})

	got, err := c.ListRegistrations(context.Background())
	require.NoError(t, err)

	if labels != RegistrationLabel {
		t.Errorf("labels = %q, wanted %q", labels, RegistrationLabel)
	}
	var numbers []int
	for _, i := range got {
		numbers = append(numbers, i.Number)
	}
	if diff := cmp.Diff([]int{10, 12}, numbers); diff != "" {
		t.Errorf("ListRegistrations() (-want +got):\n%s", diff)
	}
}

func TestCloseWithComment(t *testing.T) {
	f, c := newFakeGitHub(t)
	f.reply("POST /repos/owner/community/issues/9/comments", http.StatusCreated, map[string]any{"id": 1})
	f.reply("PATCH /repos/owner/community/issues/9", http.StatusOK, map[string]any{"number": 9})

	require.NoError(t, c.CloseWithComment(context.Background(), 9, "welcome"))

	want := []string{
		"POST /repos/owner/community/issues/9/comments",
		"PATCH /repos/owner/community/issues/9",
	}
	if diff := cmp.Diff(want, f.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	if got := f.Body("POST /repos/owner/community/issues/9/comments")["body"]; got != "welcome" {
		t.Errorf("comment body = %v, wanted welcome", got)
	}
}

func TestListCollaborators(t *testing.T) {
	f, c := newFakeGitHub(t)
	f.reply("GET /repos/owner/community/collaborators", http.StatusOK, []map[string]any{{
		"login":       "alice",
		"permissions": map[string]bool{"push": true, "pull": true, "admin": false},
	}})

	got, err := c.ListCollaborators(context.Background())
	require.NoError(t, err)

	want := []Collaborator{{Login: "alice", Permissions: []string{"pull", "push"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListCollaborators() (-want +got):\n%s", diff)
	}
}

func TestForkIfAbsent(t *testing.T) {
	tests := []struct {
		name        string
		exists      bool
		wantCreated bool
		wantCalls   []string
	}{{
		name:      "fork exists",
		exists:    true,
		wantCalls: []string{"GET /repos/bot/community"},
	}, {
		name:        "fork created",
		wantCreated: true,
		wantCalls: []string{
			"GET /repos/bot/community",
			"POST /repos/owner/community/forks",
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := newFakeGitHub(t)
			if tt.exists {
				f.reply("GET /repos/bot/community", http.StatusOK, map[string]any{"name": "community"})
			}
			f.reply("POST /repos/owner/community/forks", http.StatusAccepted, map[string]any{"name": "community"})

			created, err := c.ForkIfAbsent(context.Background(), "bot")
			require.NoError(t, err)
			if created != tt.wantCreated {
				t.Errorf("ForkIfAbsent() = %v, wanted %v", created, tt.wantCreated)
			}
			if diff := cmp.Diff(tt.wantCalls, f.Calls()); diff != "" {
				t.Errorf("calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPublishFlow(t *testing.T) {
	f, c := newFakeGitHub(t)
	f.reply("GET /repos/owner/community/git/ref/heads/main", http.StatusOK, map[string]any{
		"ref":    "refs/heads/main",
		"object": map[string]any{"sha": "abc123", "type": "commit"},
	})
	f.reply("POST /repos/owner/community/git/refs", http.StatusCreated, map[string]any{"ref": "refs/heads/post/x"})
	f.reply("PUT /repos/owner/community/contents/community/posts/x.md", http.StatusCreated, map[string]any{})
	f.reply("POST /repos/owner/community/pulls", http.StatusCreated, map[string]any{"number": 21, "html_url": "https://github.com/owner/community/pull/21"})

	ctx := context.Background()
	sha, err := c.BranchSHA(ctx, DefaultBranch)
	require.NoError(t, err)
	if sha != "abc123" {
		t.Errorf("BranchSHA() = %q, wanted %q", sha, "abc123")
	}
	require.NoError(t, c.CreateBranch(ctx, sha, "post/x"))
	require.NoError(t, c.WriteFile(ctx, "post/x", "community/posts/x.md", "# hi", "post: hi"))
	p, err := c.CreateProposal(ctx, "post/x", DefaultBranch, "hi", "body")
	require.NoError(t, err)
	if p.Number != 21 {
		t.Errorf("CreateProposal().Number = %d, wanted 21", p.Number)
	}

	ref := f.Body("POST /repos/owner/community/git/refs")
	if ref["ref"] != "refs/heads/post/x" || ref["sha"] != "abc123" {
		t.Errorf("create ref body = %v, wanted refs/heads/post/x at abc123", ref)
	}
	file := f.Body("PUT /repos/owner/community/contents/community/posts/x.md")
	if file["branch"] != "post/x" || file["message"] != "post: hi" {
		t.Errorf("create file body = %v", file)
	}
	if file["content"] != base64.StdEncoding.EncodeToString([]byte("# hi")) {
		t.Errorf("content = %v, wanted base64 of %q", file["content"], "# hi")
	}
	pr := f.Body("POST /repos/owner/community/pulls")
	if pr["head"] != "post/x" || pr["base"] != DefaultBranch {
		t.Errorf("pull request body = %v", pr)
	}
}

func TestRepositoryAccess(t *testing.T) {
	f, c := newFakeGitHub(t)
	f.reply("POST /graphql", http.StatusOK, map[string]any{
		"data": map[string]any{
			"viewer": map[string]any{"login": "moderator"},
			"repository": map[string]any{
				"nameWithOwner":    "owner/community",
				"isPrivate":        false,
				"viewerPermission": "WRITE",
			},
		},
	})

	got, err := c.RepositoryAccess(context.Background())
	require.NoError(t, err)

	want := &Access{
		Viewer:     "moderator",
		Repository: "owner/community",
		Permission: githubv4.RepositoryPermissionWrite,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepositoryAccess() (-want +got):\n%s", diff)
	}
	if !got.CanModerate() {
		t.Error("CanModerate() = false, wanted true")
	}
	if got.Describe() != "push (write)" {
		t.Errorf("Describe() = %q, wanted %q", got.Describe(), "push (write)")
	}
}

func TestAccessDescribe(t *testing.T) {
	tests := []struct {
		perm        githubv4.RepositoryPermission
		want        string
		canModerate bool
	}{
		{githubv4.RepositoryPermissionAdmin, "admin", true},
		{githubv4.RepositoryPermissionMaintain, "push (write)", true},
		{githubv4.RepositoryPermissionTriage, "read-only", false},
		{githubv4.RepositoryPermissionRead, "read-only", false},
		{"", "none", false},
	}
	for _, tt := range tests {
		a := Access{Permission: tt.perm}
		if got := a.Describe(); got != tt.want {
			t.Errorf("Describe(%q) = %q, wanted %q", tt.perm, got, tt.want)
		}
		if got := a.CanModerate(); got != tt.canModerate {
			t.Errorf("CanModerate(%q) = %v, wanted %v", tt.perm, got, tt.canModerate)
		}
	}
}

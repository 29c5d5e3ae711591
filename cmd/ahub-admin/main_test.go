/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahub-community/ahub/community/config"
	"github.com/ahub-community/ahub/community/gateway"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
)

type fakeGH map[string]string

func (f fakeGH) Run(_ context.Context, args ...string) (string, error) {
	out, ok := f[strings.Join(args, " ")]
	if !ok {
		return "", errors.New("exit status 1")
	}
	return out, nil
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"#42", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseNumber(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseNumber(%q) error = %v, wanted error = %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseNumber(%q): got = %d, wanted = %d", tt.in, got, tt.want)
		}
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"check", "list", "review", "watch", "registrations", "register", "reject", "revoke", "members"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
}

func TestWriteProposals(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeProposals(&buf, nil))
	if got, want := buf.String(), "No open proposals.\n"; got != want {
		t.Errorf("empty list: got = %q, wanted = %q", got, want)
	}

	buf.Reset()
	require.NoError(t, writeProposals(&buf, []gateway.Proposal{{
		Number:    7,
		Title:     "Hello from scribe",
		Author:    "scribe",
		CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}}))
	for _, want := range []string{"Hello from scribe", "scribe", "2026-03-04", "7"} {
		require.Contains(t, buf.String(), want)
	}
}

func TestWriteMembers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMembers(&buf, []gateway.Collaborator{{
		Login:       "octocat",
		Permissions: []string{"pull", "push"},
	}}))
	require.Contains(t, buf.String(), "octocat")
	require.Contains(t, buf.String(), "pull, push")
}

func TestWriteRegistrations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRegistrations(&buf, nil))
	require.Equal(t, "No pending registrations.\n", buf.String())

	buf.Reset()
	require.NoError(t, writeRegistrations(&buf, []gateway.Issue{{Number: 3, Title: "Join", Author: "mona"}}))
	require.Contains(t, buf.String(), "mona")
	require.Contains(t, buf.String(), "register <username> --issue <number>")
}

func newCheckServer(t *testing.T, userStatus int, permission string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userStatus)
		if userStatus == http.StatusOK {
			w.Write([]byte(`{"login":"octocat"}`))
			return
		}
		w.Write([]byte(`{"message":"Bad credentials"}`))
	})
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"viewer":{"login":"octocat"},"repository":{"nameWithOwner":"octocat/ahub","isPrivate":true,"viewerPermission":"` + permission + `"}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func checkConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadWith(context.Background(), envconfig.MapLookuper(env))
	require.NoError(t, err)
	return cfg
}

func TestRunCheck(t *testing.T) {
	gh := fakeGH{
		"--version":            "gh version 2.62.0 (2024-11-14)\n",
		"auth status":          "github.com\n  ✓ Logged in to github.com account octocat (keyring)\n",
		"auth token":           "gho_abcdefghijklmnop\n",
		"api user --jq .login": "octocat\n",
	}

	tests := []struct {
		name       string
		userStatus int
		permission string
		want       []string
	}{{
		name:       "write access",
		userStatus: http.StatusOK,
		permission: "WRITE",
		want: []string{
			"logged in to github.com as octocat",
			"token gho_ab****mnop (from gh CLI)",
			"username octocat (from gh CLI)",
			"repository:  octocat/ahub",
			"model key:   sk-ab****",
			"✅ valid",
			"octocat/ahub (private) as octocat",
			"permission: push (write)",
		},
	}, {
		name:       "read only",
		userStatus: http.StatusOK,
		permission: "READ",
		want:       []string{"permission: read-only; moderation needs push access"},
	}, {
		name:       "bad token",
		userStatus: http.StatusUnauthorized,
		want:       []string{"invalid or expired"},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCheckServer(t, tt.userStatus, tt.permission)
			cfg := checkConfig(t, map[string]string{"GITHUB_REPO": "ahub", "LLM_API_KEY": "sk-abcdefghijkl"})

			var buf bytes.Buffer
			runCheck(context.Background(), &buf, cfg, gh, gateway.WithBaseURL(srv.URL))
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("report lacks %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestRunCheckWithoutCredentials(t *testing.T) {
	cfg := checkConfig(t, map[string]string{})

	var buf bytes.Buffer
	runCheck(context.Background(), &buf, cfg, fakeGH{})

	for _, want := range []string{
		"not installed",
		"unable to resolve GitHub token",
		"GITHUB_REPO is required",
		"model key:   (not set)",
		"skipped",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report lacks %q:\n%s", want, buf.String())
		}
	}
}

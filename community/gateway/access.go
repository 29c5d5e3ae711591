/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"
)

// Access describes what the authenticated account may do in the repository.
type Access struct {
	Viewer     string
	Repository string
	Permission githubv4.RepositoryPermission
	IsPrivate  bool
}

// Describe renders the permission the way operators talk about it.
func (a Access) Describe() string {
	switch a.Permission {
	case githubv4.RepositoryPermissionAdmin:
		return "admin"
	case githubv4.RepositoryPermissionMaintain, githubv4.RepositoryPermissionWrite:
		return "push (write)"
	case githubv4.RepositoryPermissionTriage, githubv4.RepositoryPermissionRead:
		return "read-only"
	default:
		return "none"
	}
}

// CanModerate reports whether the account can merge and close proposals.
func (a Access) CanModerate() bool {
	switch a.Permission {
	case githubv4.RepositoryPermissionAdmin, githubv4.RepositoryPermissionMaintain, githubv4.RepositoryPermissionWrite:
		return true
	}
	return false
}

// RepositoryAccess asks GraphQL for the viewer and its permission on the
// repository in one round trip.
func (c *Client) RepositoryAccess(ctx context.Context) (*Access, error) {
	var q struct {
		Viewer struct {
			Login githubv4.String
		}
		Repository struct {
			NameWithOwner    githubv4.String
			IsPrivate        githubv4.Boolean
			ViewerPermission githubv4.RepositoryPermission
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	if err := c.gql.Query(ctx, &q, map[string]any{
		"owner": githubv4.String(c.owner),
		"name":  githubv4.String(c.repo),
	}); err != nil {
		return nil, fmt.Errorf("querying access to %s: %w", c.FullName(), err)
	}
	return &Access{
		Viewer:     string(q.Viewer.Login),
		Repository: string(q.Repository.NameWithOwner),
		Permission: q.Repository.ViewerPermission,
		IsPrivate:  bool(q.Repository.IsPrivate),
	}, nil
}
